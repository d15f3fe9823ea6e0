// Package asset stores binary blobs such as board thumbnails.
package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("asset not found")
	ErrInvalidKey = errors.New("invalid asset key")
)

// Store is a flat key/value blob store. Keys are slash-separated relative
// paths.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ThumbnailKey is where a document's thumbnail lives.
func ThumbnailKey(documentID string) string {
	return "thumbnails/" + documentID + ".png"
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
