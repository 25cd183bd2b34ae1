// Package messaging delivers direct, project and system messages.
//
// Every message has a sent copy in the sender's partition (system messages
// have none) and one received copy per recipient. Deliveries to different
// recipients are independent: a failed delivery is logged and the remaining
// recipients are still served.
package messaging

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/logging"
	"github.com/jacentio/projectideas/internal/telemetry"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// Notifier tells a user they have unread messages. It is best effort.
type Notifier interface {
	NotifyUnreadMessages(ctx context.Context, user *model.User) error
}

// Dispatcher sends and reads messages.
type Dispatcher struct {
	store    *store.Store
	registry *store.Registry
	notifier Notifier
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logging.OrNop(logger) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = metrics }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher. A nil notifier disables notifications.
func New(s *store.Store, notifier Notifier, opts ...Option) *Dispatcher {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	d := &Dispatcher{
		store:    s,
		registry: s.Registry(),
		notifier: notifier,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendIndividualMessage sends content from senderID to the user named
// recipientUsername.
func (d *Dispatcher) SendIndividualMessage(ctx context.Context, senderID, recipientUsername, content string) error {
	sender, err := d.user(ctx, senderID)
	if err != nil {
		return err
	}
	recipient, err := store.FindOne[model.User](ctx, d.store,
		d.registry.QueryByType(model.KindUser).Where("username", recipientUsername))
	if err != nil {
		return err
	}

	now := d.now()
	if err := d.store.Create(ctx, model.NewSentIndividualMessage(senderID, recipientUsername, content, now)); err != nil {
		return err
	}
	d.deliver(ctx, model.NewReceivedIndividualMessage(recipient.UserID, sender.Username, content, now))
	return nil
}

// SendIndividualAdminMessage sends a system message to recipientID.
func (d *Dispatcher) SendIndividualAdminMessage(ctx context.Context, recipientID, content string) error {
	if _, err := d.user(ctx, recipientID); err != nil {
		return err
	}
	d.deliver(ctx, model.NewReceivedIndividualMessage(recipientID, model.AdminSender, content, d.now()))
	return nil
}

// SendGroupMessage sends content from senderID to every other member of
// projectID. The sender gets one sent copy and no received copy.
func (d *Dispatcher) SendGroupMessage(ctx context.Context, senderID, projectID, content string) error {
	sender, err := d.user(ctx, senderID)
	if err != nil {
		return err
	}
	project, err := store.Get[model.Project](ctx, d.store, model.KindProject, projectID, projectID)
	if err != nil {
		return err
	}

	now := d.now()
	if err := d.store.Create(ctx, model.NewSentGroupMessage(senderID, projectID, project.Name, content, now)); err != nil {
		return err
	}
	for _, member := range project.TeamMembers {
		if member.UserID == senderID {
			continue
		}
		d.deliver(ctx, model.NewReceivedGroupMessage(member.UserID, sender.Username, content, projectID, project.Name, now))
	}
	return nil
}

// SendGroupAdminMessage sends a system message to every member of projectID.
func (d *Dispatcher) SendGroupAdminMessage(ctx context.Context, projectID, content string) error {
	project, err := store.Get[model.Project](ctx, d.store, model.KindProject, projectID, projectID)
	if err != nil {
		return err
	}
	now := d.now()
	for _, member := range project.TeamMembers {
		d.deliver(ctx, model.NewReceivedGroupMessage(member.UserID, model.AdminSender, content, projectID, project.Name, now))
	}
	return nil
}

// deliver stores the received copy, bumps the recipient's unread counter and
// notifies them. Failures are logged, never returned.
func (d *Dispatcher) deliver(ctx context.Context, msg *model.ReceivedMessage) {
	log := d.logger.With(
		zap.String("recipientId", msg.UserID),
		zap.String("messageId", msg.ID),
		zap.String("type", string(msg.Type)),
	)

	if err := d.store.Create(ctx, msg); err != nil {
		log.Error("message delivery failed", zap.Error(err))
		d.metrics.AbsorbedFailure("messaging", "deliver")
		return
	}

	// The counter update is read-modify-write; concurrent deliveries to the
	// same user can lose an increment.
	recipient, err := d.user(ctx, msg.UserID)
	if err == nil {
		recipient.UnreadMessages++
		err = d.store.Replace(ctx, recipient)
	}
	if err != nil {
		log.Error("unread counter update failed", zap.Error(err))
		d.metrics.AbsorbedFailure("messaging", "unread_counter")
		return
	}

	if err := d.notifier.NotifyUnreadMessages(ctx, recipient); err != nil {
		log.Error("unread message notification failed", zap.Error(err))
		d.metrics.AbsorbedFailure("notify", "unread_messages")
	}
}

func (d *Dispatcher) user(ctx context.Context, userID string) (*model.User, error) {
	return store.Get[model.User](ctx, d.store, model.KindUser, userID, userID)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUnreadMessages(context.Context, *model.User) error { return nil }
