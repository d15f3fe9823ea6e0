package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixDocument = "doc"
	PrefixObject   = "obj"
	PrefixStroke   = "stroke"
	PrefixRevision = "snap"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewDocumentID() string { return New(PrefixDocument) }
func NewObjectID() string   { return New(PrefixObject) }
func NewStrokeID() string   { return New(PrefixStroke) }
func NewRevisionID() string { return New(PrefixRevision) }

// Validate reports whether id is a well-formed typeid carrying expectedPrefix.
func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
