package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attributes is a raw stored document.
type Attributes = map[string]types.AttributeValue

// Document is the interface for all storable types.
type Document interface {
	// DocumentID returns the id, unique within the document's partition.
	DocumentID() string

	// PartitionKey returns the value of the container's partition key attribute.
	PartitionKey() string

	// DocumentKind returns the concrete kind written to the "type" attribute.
	DocumentKind() Kind
}

// Page is one page of a paginated result.
type Page[T any] struct {
	// Documents holds at most one page worth of results.
	Documents []T

	// LastPage is true when no documents follow this page.
	LastPage bool
}

// Procedure is a partition-scoped rewrite executed atomically by the backend.
// It receives every document of one partition and returns the documents it
// changed; returning nothing leaves the partition untouched.
type Procedure func(items []Attributes) []Attributes

// Backend is the abstract partitioned document store behind a Store.
type Backend interface {
	// Get performs a point read. Returns ErrNotFound when absent.
	Get(ctx context.Context, c Container, id, partitionKey string) (Attributes, error)

	// Put writes a document. With create set, an existing document yields ErrConflict.
	Put(ctx context.Context, c Container, item Attributes, create bool) error

	// Remove deletes a document. Returns ErrNotFound when absent.
	Remove(ctx context.Context, c Container, id, partitionKey string) error

	// Find returns every document matching the query's restrictions.
	// Ordering, offset, limit and projection are applied by the Store.
	Find(ctx context.Context, q *Query) ([]Attributes, error)

	// Count returns the number of documents matching the query's restrictions.
	Count(ctx context.Context, q *Query) (int, error)

	// Execute runs a procedure against a single partition.
	Execute(ctx context.Context, c Container, partitionKey string, proc Procedure) error
}
