package store

import (
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Matches reports whether a stored document satisfies the query's type and
// condition restrictions. Backends without a native filter language use it to
// evaluate queries in process.
func (q *Query) Matches(item Attributes) bool {
	if !q.matchesType(item) {
		return false
	}
	for _, c := range q.Conditions {
		if !c.Matches(item) {
			return false
		}
	}
	return true
}

func (q *Query) matchesType(item Attributes) bool {
	typeName := stringAttr(item, "type")
	for _, t := range q.Types {
		if t == typeName {
			return true
		}
	}
	return false
}

// Matches reports whether a stored document satisfies the condition.
func (c Condition) Matches(item Attributes) bool {
	switch c.Op {
	case OpEqual, OpIn:
		attr, ok := item[c.Field]
		if !ok {
			return false
		}
		got := normalizeAttr(attr)
		for _, v := range c.Values {
			if reflect.DeepEqual(got, normalize(v)) {
				return true
			}
		}
		return false
	case OpContains:
		attr, ok := item[c.Field]
		if !ok {
			return false
		}
		want := normalize(c.Values[0])
		switch list := normalizeAttr(attr).(type) {
		case []any:
			for _, elem := range list {
				if reflect.DeepEqual(elem, want) {
					return true
				}
			}
		case string:
			if s, ok := want.(string); ok {
				return strings.Contains(list, s)
			}
		}
		return false
	case OpAny:
		for _, sub := range c.Any {
			if sub.Matches(item) {
				return true
			}
		}
		return false
	}
	return false
}

// normalize converts a Go value to the form it takes after a store round trip,
// so that an int restriction compares equal to a stored number.
func normalize(v any) any {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return v
	}
	return normalizeAttr(av)
}

func normalizeAttr(av types.AttributeValue) any {
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return nil
	}
	if set, ok := out.([]string); ok {
		list := make([]any, len(set))
		for i, s := range set {
			list[i] = s
		}
		return list
	}
	return out
}

// compareAttrs orders two attribute values of the same scalar kind.
// Missing values sort first.
func compareAttrs(a, b types.AttributeValue) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	switch x := normalizeAttr(a).(type) {
	case string:
		if y, ok := normalizeAttr(b).(string); ok {
			return strings.Compare(x, y)
		}
	case float64:
		if y, ok := normalizeAttr(b).(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	case bool:
		if y, ok := normalizeAttr(b).(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
	}
	return 0
}

func stringAttr(item Attributes, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
