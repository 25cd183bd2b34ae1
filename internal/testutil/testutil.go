// Package testutil provides recording collaborators and an in-memory store
// for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/jacentio/projectideas/internal/memdb"
	"github.com/jacentio/projectideas/model"
	"github.com/jacentio/projectideas/store"
)

// NewStore returns a gateway over a fresh in-memory backend.
func NewStore(opts ...store.Option) (*store.Store, *memdb.DB) {
	db := memdb.New()
	return store.New(db, model.Registry(), store.DefaultConfig(), opts...), db
}

// IndexCall is one recorded search index call.
type IndexCall struct {
	Op    string
	Index string
	ID    string
}

// Index records search index calls and serves canned search results.
type Index struct {
	mu      sync.Mutex
	calls   []IndexCall
	results map[string][]string

	// Err, when set, is returned by every index, update and delete.
	Err error
}

// NewIndex creates an empty recording index.
func NewIndex() *Index {
	return &Index{results: make(map[string][]string)}
}

func (i *Index) record(op, index, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, IndexCall{Op: op, Index: index, ID: id})
	return i.Err
}

// Index records an index call.
func (i *Index) Index(_ context.Context, index, id string, _ any) error {
	return i.record("index", index, id)
}

// Update records an update call.
func (i *Index) Update(_ context.Context, index, id string, _ any) error {
	return i.record("update", index, id)
}

// Delete records a delete call.
func (i *Index) Delete(_ context.Context, index, id string) error {
	return i.record("delete", index, id)
}

// SetResults sets the ids Search returns for index.
func (i *Index) SetResults(index string, ids ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.results[index] = ids
}

// Search returns the canned results for index, capped at limit.
func (i *Index) Search(_ context.Context, index, _ string, limit int) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	ids := i.results[index]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return append([]string(nil), ids...), nil
}

// Calls returns the recorded calls.
func (i *Index) Calls() []IndexCall {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]IndexCall(nil), i.calls...)
}

// CallsFor returns the recorded calls of op on index.
func (i *Index) CallsFor(op, index string) []IndexCall {
	var out []IndexCall
	for _, c := range i.Calls() {
		if c.Op == op && c.Index == index {
			out = append(out, c)
		}
	}
	return out
}

// Users records the users passed to a mailer or notifier.
type Users struct {
	mu    sync.Mutex
	users []model.User

	// Err, when set, is returned after recording.
	Err error
}

func (u *Users) record(user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = append(u.users, *user)
	return u.Err
}

// SendWelcomeEmail records user.
func (u *Users) SendWelcomeEmail(_ context.Context, user *model.User) error {
	return u.record(user)
}

// NotifyUnreadMessages records user.
func (u *Users) NotifyUnreadMessages(_ context.Context, user *model.User) error {
	return u.record(user)
}

// Recorded returns the recorded users.
func (u *Users) Recorded() []model.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]model.User(nil), u.users...)
}
