// Package memdb provides an in-memory store.Backend for tests.
package memdb

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/projectideas/store"
)

// Fault is consulted before every operation; a non-nil result is returned
// instead of performing it. op is one of get, put, create, remove, find,
// count, execute.
type Fault func(op, container, id, partitionKey string) error

// Execution records one procedure run.
type Execution struct {
	Container    string
	PartitionKey string
}

type docKey struct {
	container    string
	partitionKey string
	id           string
}

// DB is an in-memory partitioned document store. Documents are returned in
// insertion order, so callers must not rely on any other ordering.
type DB struct {
	mu         sync.Mutex
	docs       map[docKey]store.Attributes
	order      []docKey
	fault      Fault
	executions []Execution
}

// New creates an empty DB.
func New() *DB {
	return &DB{docs: make(map[docKey]store.Attributes)}
}

// InjectFault installs f; nil removes it.
func (db *DB) InjectFault(f Fault) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fault = f
}

// Executions returns the procedure runs seen so far.
func (db *DB) Executions() []Execution {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]Execution(nil), db.executions...)
}

// Len returns the number of stored documents in a container.
func (db *DB) Len(container string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for k := range db.docs {
		if k.container == container {
			n++
		}
	}
	return n
}

func (db *DB) check(op, container, id, partitionKey string) error {
	if db.fault == nil {
		return nil
	}
	return db.fault(op, container, id, partitionKey)
}

// Get implements store.Backend.
func (db *DB) Get(_ context.Context, c store.Container, id, partitionKey string) (store.Attributes, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check("get", c.Name, id, partitionKey); err != nil {
		return nil, err
	}
	item, ok := db.docs[docKey{c.Name, partitionKey, id}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyItem(item), nil
}

// Put implements store.Backend.
func (db *DB) Put(_ context.Context, c store.Container, item store.Attributes, create bool) error {
	id := stringAttr(item, "id")
	pk := stringAttr(item, c.PartitionKey)

	db.mu.Lock()
	defer db.mu.Unlock()
	op := "put"
	if create {
		op = "create"
	}
	if err := db.check(op, c.Name, id, pk); err != nil {
		return err
	}
	key := docKey{c.Name, pk, id}
	if _, exists := db.docs[key]; exists {
		if create {
			return store.ErrConflict
		}
	} else {
		db.order = append(db.order, key)
	}
	db.docs[key] = copyItem(item)
	return nil
}

// Remove implements store.Backend.
func (db *DB) Remove(_ context.Context, c store.Container, id, partitionKey string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check("remove", c.Name, id, partitionKey); err != nil {
		return err
	}
	key := docKey{c.Name, partitionKey, id}
	if _, ok := db.docs[key]; !ok {
		return store.ErrNotFound
	}
	delete(db.docs, key)
	for i, k := range db.order {
		if k == key {
			db.order = append(db.order[:i], db.order[i+1:]...)
			break
		}
	}
	return nil
}

// Find implements store.Backend.
func (db *DB) Find(_ context.Context, q *store.Query) ([]store.Attributes, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	pk, _ := q.PartitionKeyValue()
	if err := db.check("find", q.Container.Name, "", pk); err != nil {
		return nil, err
	}
	return db.match(q), nil
}

// Count implements store.Backend.
func (db *DB) Count(_ context.Context, q *store.Query) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	pk, _ := q.PartitionKeyValue()
	if err := db.check("count", q.Container.Name, "", pk); err != nil {
		return 0, err
	}
	return len(db.match(q)), nil
}

func (db *DB) match(q *store.Query) []store.Attributes {
	var out []store.Attributes
	for _, key := range db.order {
		if key.container != q.Container.Name {
			continue
		}
		if item := db.docs[key]; q.Matches(item) {
			out = append(out, copyItem(item))
		}
	}
	return out
}

// Execute implements store.Backend. The procedure runs under the DB lock, so
// it is atomic with respect to every other operation.
func (db *DB) Execute(_ context.Context, c store.Container, partitionKey string, proc store.Procedure) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.check("execute", c.Name, "", partitionKey); err != nil {
		return err
	}
	db.executions = append(db.executions, Execution{Container: c.Name, PartitionKey: partitionKey})

	var items []store.Attributes
	for _, key := range db.order {
		if key.container == c.Name && key.partitionKey == partitionKey {
			items = append(items, copyItem(db.docs[key]))
		}
	}
	for _, item := range proc(items) {
		key := docKey{c.Name, partitionKey, stringAttr(item, "id")}
		if _, exists := db.docs[key]; !exists {
			db.order = append(db.order, key)
		}
		db.docs[key] = copyItem(item)
	}
	return nil
}

func copyItem(item store.Attributes) store.Attributes {
	out := make(store.Attributes, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func stringAttr(item store.Attributes, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
