// Package manager keeps derived state consistent with primary document
// writes: upvote counters, tag usage counters, per-user back-references,
// denormalized usernames and the search index.
//
// None of these updates share a transaction with the write that triggers
// them. Counters are read-modify-write and two concurrent writers may lose an
// update; back-references are weak and readers drop the dangling ones.
package manager

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/logging"
	"github.com/jacentio/projectideas/internal/telemetry"
	"github.com/jacentio/projectideas/messaging"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// Search index names.
const (
	IdeaIndex    = "ideas"
	ProjectIndex = "projects"
	TagIndex     = "tags"
)

// searchLimit caps the ids requested from the searcher.
const searchLimit = 30

// SearchIndex mirrors documents into a full-text index. Failures are logged
// by the Manager and never fail the write that triggered them.
type SearchIndex interface {
	Index(ctx context.Context, index, id string, doc any) error
	Update(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
}

// Searcher returns the ids of the best matching documents, best first.
type Searcher interface {
	Search(ctx context.Context, index, query string, limit int) ([]string, error)
}

// Mailer sends transactional email.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, user *model.User) error
}

// Manager is the consistency and denormalization layer.
type Manager struct {
	store    *store.Store
	registry *store.Registry
	index    SearchIndex
	searcher Searcher
	mailer   Mailer
	messages *messaging.Dispatcher
	logger   *zap.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time

	streamedRenames bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSearchIndex sets the index kept in sync with ideas, projects and tags.
func WithSearchIndex(index SearchIndex) Option {
	return func(m *Manager) { m.index = index }
}

// WithSearcher sets the searcher used by SearchIdeas and SearchProjects.
func WithSearcher(searcher Searcher) Option {
	return func(m *Manager) { m.searcher = searcher }
}

// WithMailer sets the mailer used for welcome emails.
func WithMailer(mailer Mailer) Option {
	return func(m *Manager) { m.mailer = mailer }
}

// WithDispatcher sets the message dispatcher used for join request messages.
func WithDispatcher(d *messaging.Dispatcher) Option {
	return func(m *Manager) { m.messages = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrNop(logger) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithStreamedRenames leaves the username fan-out to the users table stream
// handler. UpdateUser then only stores the user.
func WithStreamedRenames() Option {
	return func(m *Manager) { m.streamedRenames = true }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager over s.
func New(s *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		registry: s.Registry(),
		index:    nopIndex{},
		searcher: nopIndex{},
		mailer:   nopIndex{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.messages == nil {
		m.messages = messaging.New(s, nil, messaging.WithLogger(m.logger), messaging.WithMetrics(m.metrics), messaging.WithClock(m.now))
	}
	return m
}

// Store returns the underlying gateway.
func (m *Manager) Store() *store.Store {
	return m.store
}

// Messages returns the message dispatcher.
func (m *Manager) Messages() *messaging.Dispatcher {
	return m.messages
}

func (m *Manager) tryIndex(ctx context.Context, index, id string, doc any) {
	if err := m.index.Index(ctx, index, id, doc); err != nil {
		m.collaboratorFailed("index", index, id, err)
	}
}

func (m *Manager) tryUpdateIndex(ctx context.Context, index, id string, doc any) {
	if err := m.index.Update(ctx, index, id, doc); err != nil {
		m.collaboratorFailed("update", index, id, err)
	}
}

func (m *Manager) tryDeleteIndex(ctx context.Context, index, id string) {
	if err := m.index.Delete(ctx, index, id); err != nil {
		m.collaboratorFailed("delete", index, id, err)
	}
}

func (m *Manager) collaboratorFailed(op, index, id string, err error) {
	m.logger.Error("search index "+op+" failed",
		zap.String("index", index),
		zap.String("id", id),
		zap.Error(err),
	)
	m.metrics.AbsorbedFailure("search", op)
}

// absorb logs a failed secondary update and swallows it. Expected absences
// are warnings; anything else is an error.
func (m *Manager) absorb(operation string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrEmptyResult) {
		m.logger.Warn(operation+": reference already gone", fields...)
	} else {
		m.logger.Error(operation+" failed", fields...)
	}
	m.metrics.AbsorbedFailure("manager", operation)
}

// invalidUserID reports ids that cannot name a user, as sent by signed-out clients.
func invalidUserID(userID string) bool {
	return userID == "" || userID == "null"
}

func (m *Manager) pageSize() int {
	return m.store.PageSize()
}

type nopIndex struct{}

func (nopIndex) Index(context.Context, string, string, any) error  { return nil }
func (nopIndex) Update(context.Context, string, string, any) error { return nil }
func (nopIndex) Delete(context.Context, string, string) error      { return nil }
func (nopIndex) Search(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}
func (nopIndex) SendWelcomeEmail(context.Context, *model.User) error { return nil }
