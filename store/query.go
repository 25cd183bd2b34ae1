package store

import (
	"fmt"
	"strings"
)

// Operator is a restriction operator.
type Operator int

const (
	// OpEqual matches when the attribute equals the single value.
	OpEqual Operator = iota
	// OpIn matches when the attribute equals any of the values.
	OpIn
	// OpContains matches when the list attribute contains the single value.
	OpContains
	// OpAny matches when any of the nested conditions match.
	OpAny
)

// Condition is a single query restriction.
type Condition struct {
	Field  string
	Op     Operator
	Values []any
	Any    []Condition
}

// Eq returns an equality condition.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEqual, Values: []any{value}}
}

// In returns a membership condition.
func In(field string, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

// Contains returns a list-contains condition.
func Contains(field string, value any) Condition {
	return Condition{Field: field, Op: OpContains, Values: []any{value}}
}

// AnyOf returns a disjunction of conditions.
func AnyOf(conds ...Condition) Condition {
	return Condition{Op: OpAny, Any: conds}
}

// Query is a kind-restricted query against one container.
// Restrictions are conjunctive.
type Query struct {
	// Kind is the (possibly abstract) kind the query was built for.
	Kind Kind

	// Container is the container the query runs against.
	Container Container

	// Types holds the concrete type names matched by Kind.
	Types []string

	// Conditions are additional restrictions.
	Conditions []Condition

	// Projection, when set, names the single attribute returned by Values.
	Projection string

	// OrderField and Descending control result ordering.
	OrderField string
	Descending bool

	// Offset and Limit window the ordered results (Limit 0 = no limit).
	Offset int
	Limit  int
}

// QueryByType returns a query matching every concrete variant of kind.
func (r *Registry) QueryByType(kind Kind) *Query {
	types := r.ConcreteTypes(kind)
	return &Query{
		Kind:      kind,
		Container: r.ContainerOf(kind),
		Types:     append([]string(nil), types...),
	}
}

// QueryByPartitionKey restricts QueryByType to a single partition.
func (r *Registry) QueryByPartitionKey(partitionKey string, kind Kind) *Query {
	return r.QueryByType(kind).Where(r.PartitionKeyOf(kind), partitionKey)
}

// QueryByIDAndPartitionKey restricts QueryByType to one id within one partition.
func (r *Registry) QueryByIDAndPartitionKey(id, partitionKey string, kind Kind) *Query {
	return r.QueryByPartitionKey(partitionKey, kind).Where("id", id)
}

// QueryByPartitionKeyList restricts QueryByType to a list of partitions.
func (r *Registry) QueryByPartitionKeyList(partitionKeys []string, kind Kind) *Query {
	values := make([]any, len(partitionKeys))
	for i, pk := range partitionKeys {
		values[i] = pk
	}
	return r.QueryByType(kind).WhereIn(r.PartitionKeyOf(kind), values...)
}

// Where adds an equality restriction.
func (q *Query) Where(field string, value any) *Query {
	q.Conditions = append(q.Conditions, Eq(field, value))
	return q
}

// WhereIn adds a membership restriction.
func (q *Query) WhereIn(field string, values ...any) *Query {
	q.Conditions = append(q.Conditions, In(field, values...))
	return q
}

// WhereContains adds a list-contains restriction.
func (q *Query) WhereContains(field string, value any) *Query {
	q.Conditions = append(q.Conditions, Contains(field, value))
	return q
}

// WhereAny adds a disjunction of restrictions.
func (q *Query) WhereAny(conds ...Condition) *Query {
	q.Conditions = append(q.Conditions, AnyOf(conds...))
	return q
}

// OrderBy orders results ascending by field.
func (q *Query) OrderBy(field string) *Query {
	q.OrderField, q.Descending = field, false
	return q
}

// OrderByDesc orders results descending by field.
func (q *Query) OrderByDesc(field string) *Query {
	q.OrderField, q.Descending = field, true
	return q
}

// Select projects results onto a single attribute.
func (q *Query) Select(field string) *Query {
	q.Projection = field
	return q
}

// Window sets offset and limit.
func (q *Query) Window(offset, limit int) *Query {
	q.Offset, q.Limit = offset, limit
	return q
}

// Clone returns a deep enough copy to be modified independently.
func (q *Query) Clone() *Query {
	c := *q
	c.Types = append([]string(nil), q.Types...)
	c.Conditions = append([]Condition(nil), q.Conditions...)
	return &c
}

// PartitionKeyValue returns the partition key value the query is pinned to, if any.
func (q *Query) PartitionKeyValue() (string, bool) {
	return q.equalityValue(q.Container.PartitionKey)
}

// IDValue returns the document id the query is pinned to, if any.
func (q *Query) IDValue() (string, bool) {
	return q.equalityValue("id")
}

func (q *Query) equalityValue(field string) (string, bool) {
	for _, c := range q.Conditions {
		if c.Op == OpEqual && c.Field == field {
			if s, ok := c.Values[0].(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// String renders the query in a SQL-like form for logs and errors.
func (q *Query) String() string {
	var b strings.Builder
	if q.Projection != "" {
		fmt.Fprintf(&b, "SELECT VALUE %s", q.Projection)
	} else {
		b.WriteString("SELECT *")
	}
	fmt.Fprintf(&b, " FROM %s WHERE type IN (%s)", q.Container.Name, quoteAll(stringsToAny(q.Types)))
	for _, c := range q.Conditions {
		b.WriteString(" AND ")
		b.WriteString(c.String())
	}
	if q.OrderField != "" {
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.OrderField, dir)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " OFFSET %d LIMIT %d", q.Offset, q.Limit)
	}
	return b.String()
}

func (c Condition) String() string {
	switch c.Op {
	case OpEqual:
		return fmt.Sprintf("%s = %s", c.Field, quote(c.Values[0]))
	case OpIn:
		return fmt.Sprintf("%s IN (%s)", c.Field, quoteAll(c.Values))
	case OpContains:
		return fmt.Sprintf("ARRAY_CONTAINS(%s, %s)", c.Field, quote(c.Values[0]))
	case OpAny:
		parts := make([]string, len(c.Any))
		for i, sub := range c.Any {
			parts[i] = sub.String()
		}
		return "(" + strings.Join(parts, " OR ") + ")"
	}
	return "?"
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return fmt.Sprint(v)
}

func quoteAll(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quote(v)
	}
	return strings.Join(parts, ", ")
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
