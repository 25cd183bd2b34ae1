// Package notify publishes email notification events to an SQS queue. A
// mail worker outside this module consumes the queue and sends the emails.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/jacentio/projectideas/model"
)

// Event types.
const (
	EventUnreadMessages = "unread_messages"
	EventWelcomeEmail   = "welcome_email"
)

// eventTypeAttribute carries the event type as an SQS message attribute so
// consumers can route without decoding the body.
const eventTypeAttribute = "event-type"

// SQSAPI is the subset of the SQS client used by Publisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Event is the JSON body of a published message.
type Event struct {
	Type                string `json:"type"`
	UserID              string `json:"userId"`
	Username            string `json:"username"`
	Email               string `json:"email"`
	UnreadMessages      int    `json:"unreadMessages,omitempty"`
	EmailSubscriptionID string `json:"emailSubscriptionId"`
	Time                int64  `json:"time"`
}

// Publisher publishes notification events.
type Publisher struct {
	client   SQSAPI
	queueURL string
	logger   *zap.Logger
	now      func() time.Time
}

// NewPublisher creates a Publisher for queueURL.
func NewPublisher(client SQSAPI, queueURL string, logger *zap.Logger) (*Publisher, error) {
	if queueURL == "" {
		return nil, errors.New("notify: queue url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, queueURL: queueURL, logger: logger, now: time.Now}, nil
}

// NotifyUnreadMessages asks for an unread messages reminder, unless the user
// opted out of them.
func (p *Publisher) NotifyUnreadMessages(ctx context.Context, user *model.User) error {
	if !user.NotificationPreference.WantsUnreadMessageEmails() {
		p.logger.Debug("user opted out of unread message emails", zap.String("userId", user.UserID))
		return nil
	}
	return p.publish(ctx, p.event(EventUnreadMessages, user))
}

// SendWelcomeEmail asks for the welcome email of a new user.
func (p *Publisher) SendWelcomeEmail(ctx context.Context, user *model.User) error {
	return p.publish(ctx, p.event(EventWelcomeEmail, user))
}

func (p *Publisher) event(eventType string, user *model.User) Event {
	return Event{
		Type:                eventType,
		UserID:              user.UserID,
		Username:            user.Username,
		Email:               user.Email,
		UnreadMessages:      user.UnreadMessages,
		EmailSubscriptionID: user.EmailSubscriptionID,
		Time:                p.now().Unix(),
	}
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			eventTypeAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(ev.Type),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	p.logger.Debug("notification published", zap.String("type", ev.Type), zap.String("userId", ev.UserID))
	return nil
}

// Nop drops every notification.
type Nop struct{}

// NotifyUnreadMessages does nothing.
func (Nop) NotifyUnreadMessages(context.Context, *model.User) error { return nil }

// SendWelcomeEmail does nothing.
func (Nop) SendWelcomeEmail(context.Context, *model.User) error { return nil }
