package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a point read or delete targets a document that doesn't exist.
	ErrNotFound = errors.New("projectideas: document not found")

	// ErrEmptyResult is returned when a query expected to yield one document yields none.
	ErrEmptyResult = errors.New("projectideas: query returned no documents")

	// ErrConflict is returned when creating a document whose id already exists in its partition.
	ErrConflict = errors.New("projectideas: document already exists")
)

// NotFoundError describes a failed point read.
type NotFoundError struct {
	Kind         Kind
	ID           string
	PartitionKey string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("projectideas: %s with id %q and partition key %q not found", e.Kind, e.ID, e.PartitionKey)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// EmptyResultError describes a single-document query that matched nothing.
type EmptyResultError struct {
	Kind  Kind
	Query string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("projectideas: no %s matched query %s", e.Kind, e.Query)
}

// Is reports whether target is ErrEmptyResult.
func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}
