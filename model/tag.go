package model

import (
	"github.com/jacentio/projectideas/internal/keys"
	"github.com/jacentio/projectideas/store"
)

// Tag counts how many live ideas or projects reference a name. The tags
// container is partitioned by type, so all idea tags share one partition and
// all project tags another.
type Tag struct {
	ID     string     `dynamodbav:"id" json:"id"`
	Type   store.Kind `dynamodbav:"type" json:"type"`
	Name   string     `dynamodbav:"name" json:"name"`
	Usages int        `dynamodbav:"usages" json:"usages"`
}

// NewTag creates an unused tag of kind (KindIdeaTag or KindProjectTag).
func NewTag(kind store.Kind, name string) *Tag {
	return &Tag{ID: keys.TagID(name), Type: kind, Name: name}
}

func (t *Tag) DocumentID() string       { return t.ID }
func (t *Tag) PartitionKey() string     { return string(t.Type) }
func (t *Tag) DocumentKind() store.Kind { return t.Type }
