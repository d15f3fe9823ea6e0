// Package storage persists board and drawing-region documents.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid document")
)

type Kind string

const (
	// KindBoard documents hold a scene.
	KindBoard Kind = "board"
	// KindDrawing documents hold the strokes of one drawing region.
	KindDrawing Kind = "drawing"
)

func (k Kind) Valid() bool {
	return k == KindBoard || k == KindDrawing
}

type Document struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Revision  int       `json:"revision"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is what an editor needs from persistence.
type Store interface {
	LoadContent(ctx context.Context, documentID string) ([]byte, error)
	SaveContent(ctx context.Context, documentID string, content []byte) error
	CreateDocument(ctx context.Context, ownerID string, kind Kind, title string, initial []byte) (*Document, error)
	UploadThumbnail(ctx context.Context, documentID string, png []byte) error
}

// Repository adds the metadata queries the document server needs.
type Repository interface {
	Store
	Get(ctx context.Context, documentID string) (*Document, error)
	List(ctx context.Context, ownerID string) ([]Document, error)
	Thumbnail(ctx context.Context, documentID string) ([]byte, error)
}
