// Package keys generates document ids.
package keys

import (
	"net/url"

	"github.com/google/uuid"
)

// NewID returns a random document id.
func NewID() string {
	return uuid.NewString()
}

// TagID encodes a tag name for use as a document id, so names with
// characters such as '#', '/' or spaces stay addressable.
func TagID(name string) string {
	return url.QueryEscape(name)
}
