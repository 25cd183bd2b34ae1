// Package store is the document store access layer for projectideas.
//
// A [Registry] names the containers (physical collections, each with one
// partition key attribute) and the document kinds stored in them. Kinds form
// families: an abstract kind such as "ReceivedMessage" expands to its concrete
// variants, and every stored document carries its concrete variant in the
// "type" attribute.
//
// # Queries
//
// Queries are built from the registry so the partition key restriction and
// the variant expansion are never left out:
//
//	q := reg.QueryByPartitionKey(userID, "ReceivedMessage").
//	    Where("unread", true).
//	    OrderByDesc("timeSent")
//
// # Gateway
//
// [Store] is the only component that touches a [Backend]. It performs point
// reads, single and multi document queries, counts, page queries and the
// hydration of weak references. Generic helpers such as [Get], [FindAll] and
// [FindPage] decode results into model types.
//
// Two backends exist: [DynamoBackend] keeps each container in its own
// DynamoDB table, and internal/memdb keeps everything in memory for tests.
//
// # Errors
//
//   - [ErrNotFound] - point read or delete target is absent
//   - [ErrEmptyResult] - a single document query matched nothing
//   - [ErrConflict] - a created document already exists
package store
