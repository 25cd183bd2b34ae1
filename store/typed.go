package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

// Get reads a document of kind and decodes it into T.
func Get[T any](ctx context.Context, s *Store, kind Kind, id, partitionKey string) (*T, error) {
	item, err := s.Read(ctx, kind, id, partitionKey)
	if err != nil {
		return nil, err
	}
	return decode[T](item)
}

// FindOne runs q and decodes the first match into T.
func FindOne[T any](ctx context.Context, s *Store, q *Query) (*T, error) {
	item, err := s.QueryOne(ctx, q)
	if err != nil {
		return nil, err
	}
	return decode[T](item)
}

// FindAll runs q and decodes every match into T.
func FindAll[T any](ctx context.Context, s *Store, q *Query) ([]T, error) {
	items, err := s.QueryAll(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](items)
}

// FindPage runs a page query and decodes the page into T.
func FindPage[T any](ctx context.Context, s *Store, q *Query, pageNumber, pageSize int) (Page[T], error) {
	page, err := s.Page(ctx, q, pageNumber, pageSize)
	if err != nil {
		return Page[T]{}, err
	}
	docs, err := decodeAll[T](page.Documents)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Documents: docs, LastPage: page.LastPage}, nil
}

// Hydrate resolves a page of partition keys into documents of kind, decoded into T.
func Hydrate[T any](ctx context.Context, s *Store, keys Page[string], kind Kind) (Page[T], error) {
	page, err := s.HydratePage(ctx, keys, kind)
	if err != nil {
		return Page[T]{}, err
	}
	docs, err := decodeAll[T](page.Documents)
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Documents: docs, LastPage: page.LastPage}, nil
}

// HydrateList resolves partition keys into documents of kind, decoded into T.
func HydrateList[T any](ctx context.Context, s *Store, keys []string, kind Kind) ([]T, error) {
	items, err := s.HydrateKeys(ctx, keys, kind)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](items)
}

// Values runs q projected onto field and returns the string values.
func Values(ctx context.Context, s *Store, q *Query, field string) ([]string, error) {
	items, err := s.QueryAll(ctx, q.Clone().Select(field))
	if err != nil {
		return nil, err
	}
	return stringValues(items, field), nil
}

// ValuePage runs a page query projected onto field.
func ValuePage(ctx context.Context, s *Store, q *Query, field string, pageNumber, pageSize int) (Page[string], error) {
	page, err := s.Page(ctx, q.Clone().Select(field), pageNumber, pageSize)
	if err != nil {
		return Page[string]{}, err
	}
	return Page[string]{Documents: stringValues(page.Documents, field), LastPage: page.LastPage}, nil
}

func stringValues(items []Attributes, field string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := stringAttr(item, field); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func decode[T any](item Attributes) (*T, error) {
	var v T
	if err := attributevalue.UnmarshalMap(item, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return &v, nil
}

func decodeAll[T any](items []Attributes) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := decode[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}
