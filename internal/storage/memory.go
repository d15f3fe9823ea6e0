package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inkboard/inkboard/internal/typeid"
)

type memDoc struct {
	meta      Document
	content   []byte
	thumbnail []byte
}

// Memory is an in-process Repository. It backs tests and single-process
// deployments without a database.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*memDoc
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*memDoc), now: time.Now}
}

func (m *Memory) CreateDocument(_ context.Context, ownerID string, kind Kind, title string, initial []byte) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalid, kind)
	}
	now := m.now().UTC()
	d := &memDoc{
		meta: Document{
			ID:        typeid.NewDocumentID(),
			OwnerID:   ownerID,
			Kind:      kind,
			Title:     title,
			Revision:  1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		content: append([]byte(nil), initial...),
	}
	m.mu.Lock()
	m.docs[d.meta.ID] = d
	m.mu.Unlock()
	meta := d.meta
	return &meta, nil
}

func (m *Memory) LoadContent(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d.content...), nil
}

func (m *Memory) SaveContent(_ context.Context, id string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.content = append([]byte(nil), content...)
	d.meta.Revision++
	d.meta.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) UploadThumbnail(_ context.Context, id string, png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	d.thumbnail = append([]byte(nil), png...)
	return nil
}

func (m *Memory) Thumbnail(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok || d.thumbnail == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), d.thumbnail...), nil
}

func (m *Memory) Get(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	meta := d.meta
	return &meta, nil
}

// List returns the owner's documents, most recently updated first.
func (m *Memory) List(_ context.Context, ownerID string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Document{}
	for _, d := range m.docs {
		if d.meta.OwnerID == ownerID {
			out = append(out, d.meta)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
