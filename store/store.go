package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/jacentio/projectideas/internal/telemetry"
)

// Store is the document store gateway. It is the only component that talks to
// the Backend.
type Store struct {
	backend  Backend
	registry *Registry
	config   Config
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug traces and dangling reference warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a new Store instance.
func New(backend Backend, registry *Registry, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		backend:  backend,
		registry: registry,
		config:   config,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the kind registry.
func (s *Store) Registry() *Registry {
	return s.registry
}

// PageSize returns the configured default page size.
func (s *Store) PageSize() int {
	return s.config.PageSize
}

// Read performs a point read. A stored document whose type is outside the
// kind's family is reported as absent.
func (s *Store) Read(ctx context.Context, kind Kind, id, partitionKey string) (Attributes, error) {
	c := s.registry.ContainerOf(kind)
	start := time.Now()
	item, err := s.backend.Get(ctx, c, id, partitionKey)
	if err == nil && !s.registry.IsA(stringAttr(item, "type"), kind) {
		err = ErrNotFound
	}
	s.observe(c, "read", err, start)
	s.logger.Debug("store read",
		zap.String("container", c.Name),
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.String("partitionKey", partitionKey),
		zap.Error(err),
	)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Kind: kind, ID: id, PartitionKey: partitionKey}
		}
		return nil, err
	}
	return item, nil
}

// Exists reports whether a point read would succeed. Absence is not an error.
func (s *Store) Exists(ctx context.Context, kind Kind, id, partitionKey string) (bool, error) {
	_, err := s.Read(ctx, kind, id, partitionKey)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// QueryOne returns the first document matching q, or an *EmptyResultError.
func (s *Store) QueryOne(ctx context.Context, q *Query) (Attributes, error) {
	items, err := s.QueryAll(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &EmptyResultError{Kind: q.Kind, Query: q.String()}
	}
	return items[0], nil
}

// QueryAll returns every document matching q, ordered, windowed and projected
// as the query requests.
func (s *Store) QueryAll(ctx context.Context, q *Query) ([]Attributes, error) {
	items, err := s.window(ctx, q)
	if err != nil {
		return nil, err
	}
	return project(items, q.Projection), nil
}

// window returns the ordered and windowed documents matching q, before
// projection.
func (s *Store) window(ctx context.Context, q *Query) ([]Attributes, error) {
	start := time.Now()
	items, err := s.backend.Find(ctx, q)
	s.observe(q.Container, "query", err, start)
	s.logger.Debug("store query",
		zap.String("container", q.Container.Name),
		zap.Stringer("query", q),
		zap.Int("matched", len(items)),
		zap.Error(err),
	)
	if err != nil {
		return nil, err
	}

	if q.OrderField != "" {
		sort.SliceStable(items, func(i, j int) bool {
			cmp := compareAttrs(items[i][q.OrderField], items[j][q.OrderField])
			if q.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(items) {
			items = nil
		} else {
			items = items[q.Offset:]
		}
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items, nil
}

// project keeps field of every document. Documents without it are dropped.
func project(items []Attributes, field string) []Attributes {
	if field == "" {
		return items
	}
	projected := make([]Attributes, 0, len(items))
	for _, item := range items {
		if v, ok := item[field]; ok {
			projected = append(projected, Attributes{field: v})
		}
	}
	return projected
}

// Count returns the number of documents matching q.
func (s *Store) Count(ctx context.Context, q *Query) (int, error) {
	start := time.Now()
	n, err := s.backend.Count(ctx, q)
	s.observe(q.Container, "count", err, start)
	return n, err
}

// Page returns one page of q's results. It asks for one document more than
// the page holds; getting it back means another page follows. The projection
// is applied after that check, so documents it drops do not end the paging.
// Page numbers start at 1, and anything lower yields an empty page that is
// not the last.
func (s *Store) Page(ctx context.Context, q *Query, pageNumber, pageSize int) (Page[Attributes], error) {
	if pageNumber < 1 {
		return Page[Attributes]{Documents: []Attributes{}, LastPage: false}, nil
	}
	if pageSize < 1 {
		pageSize = s.config.PageSize
	}

	windowed := q.Clone().Window((pageNumber-1)*pageSize, pageSize+1)
	items, err := s.window(ctx, windowed)
	if err != nil {
		return Page[Attributes]{}, err
	}
	if len(items) == pageSize+1 {
		return Page[Attributes]{Documents: project(items[:pageSize], q.Projection), LastPage: false}, nil
	}
	return Page[Attributes]{Documents: project(items, q.Projection), LastPage: true}, nil
}

// HydratePage replaces a page of partition keys with the documents of kind
// living under them, in key order. Keys without a document are dropped with a
// warning; the page keeps its LastPage flag.
func (s *Store) HydratePage(ctx context.Context, keys Page[string], kind Kind) (Page[Attributes], error) {
	docs, err := s.HydrateKeys(ctx, keys.Documents, kind)
	if err != nil {
		return Page[Attributes]{}, err
	}
	return Page[Attributes]{Documents: docs, LastPage: keys.LastPage}, nil
}

// HydrateKeys fetches the documents of kind under each partition key and
// returns them in key order, dropping dangling keys.
func (s *Store) HydrateKeys(ctx context.Context, keys []string, kind Kind) ([]Attributes, error) {
	if len(keys) == 0 {
		return []Attributes{}, nil
	}
	q := s.registry.QueryByPartitionKeyList(keys, kind)
	items, err := s.QueryAll(ctx, q)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]Attributes, len(items))
	for _, item := range items {
		pk := stringAttr(item, q.Container.PartitionKey)
		if _, seen := byKey[pk]; !seen {
			byKey[pk] = item
		}
	}

	out := make([]Attributes, 0, len(keys))
	for _, key := range keys {
		item, ok := byKey[key]
		if !ok {
			s.logger.Warn("dropping dangling reference",
				zap.String("kind", string(kind)),
				zap.String("partitionKey", key),
			)
			s.metrics.DanglingReference(string(kind))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// Create stores a new document. Returns ErrConflict when a document with the
// same id already exists in the partition.
func (s *Store) Create(ctx context.Context, doc Document) error {
	return s.put(ctx, doc, true)
}

// Replace overwrites a document. No concurrency token is checked; the last
// writer wins.
func (s *Store) Replace(ctx context.Context, doc Document) error {
	return s.put(ctx, doc, false)
}

func (s *Store) put(ctx context.Context, doc Document, create bool) error {
	kind := doc.DocumentKind()
	c := s.registry.ContainerOf(kind)
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	item["id"] = &types.AttributeValueMemberS{Value: doc.DocumentID()}
	item["type"] = &types.AttributeValueMemberS{Value: string(kind)}
	item[c.PartitionKey] = &types.AttributeValueMemberS{Value: doc.PartitionKey()}

	op := "replace"
	if create {
		op = "create"
	}
	start := time.Now()
	err = s.backend.Put(ctx, c, item, create)
	s.observe(c, op, err, start)
	s.logger.Debug("store "+op,
		zap.String("container", c.Name),
		zap.String("kind", string(kind)),
		zap.String("id", doc.DocumentID()),
		zap.String("partitionKey", doc.PartitionKey()),
		zap.Error(err),
	)
	return err
}

// Delete removes a document. Returns a *NotFoundError when it is absent.
func (s *Store) Delete(ctx context.Context, kind Kind, id, partitionKey string) error {
	c := s.registry.ContainerOf(kind)
	start := time.Now()
	err := s.backend.Remove(ctx, c, id, partitionKey)
	s.observe(c, "delete", err, start)
	s.logger.Debug("store delete",
		zap.String("container", c.Name),
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.String("partitionKey", partitionKey),
		zap.Error(err),
	)
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id, PartitionKey: partitionKey}
	}
	return err
}

// Execute runs a partition-scoped procedure in the container holding kind.
func (s *Store) Execute(ctx context.Context, kind Kind, partitionKey string, proc Procedure) error {
	c := s.registry.ContainerOf(kind)
	start := time.Now()
	err := s.backend.Execute(ctx, c, partitionKey, proc)
	s.observe(c, "execute", err, start)
	s.logger.Debug("store execute",
		zap.String("container", c.Name),
		zap.String("partitionKey", partitionKey),
		zap.Error(err),
	)
	return err
}

func (s *Store) observe(c Container, op string, err error, start time.Time) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
	}
	s.metrics.ObserveOperation(c.Name, op, outcome, time.Since(start))
}
