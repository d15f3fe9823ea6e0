// Package board serves documents over HTTP: metadata, content, thumbnails,
// PDF export and the live save channel.
package board

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"log/slog"

	"github.com/inkboard/inkboard/internal/document"
	"github.com/inkboard/inkboard/internal/storage"
	"github.com/inkboard/inkboard/internal/typeid"
)

const defaultTitle = "Untitled board"

// Broadcaster fans a saved revision out to the document's subscribers,
// skipping the connection that wrote it.
type Broadcaster interface {
	BroadcastSaved(documentID string, revision int, content []byte, writerClientID string)
}

// Thumbnailer renders a board preview when none has been uploaded.
type Thumbnailer interface {
	Thumbnail(doc *document.Document, regions map[string]*document.RegionDocument) ([]byte, error)
}

// Exporter writes a board as PDF.
type Exporter interface {
	PDF(w io.Writer, title string, doc *document.Document, regions map[string]*document.RegionDocument) error
}

type Service struct {
	repo        storage.Repository
	broadcaster Broadcaster
	thumbs      Thumbnailer
	exporter    Exporter
}

// NewService wires the document repository. broadcaster, thumbs and exporter
// may be nil; the matching features are then disabled.
func NewService(repo storage.Repository, broadcaster Broadcaster, thumbs Thumbnailer, exporter Exporter) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, thumbs: thumbs, exporter: exporter}
}

// authorize returns the document if userID owns it.
func (s *Service) authorize(ctx context.Context, documentID, userID string) (*storage.Document, error) {
	if err := typeid.Validate(documentID, typeid.PrefixDocument); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrNotFound, err)
	}
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != userID {
		return nil, storage.ErrForbidden
	}
	return doc, nil
}

// normalize validates content for kind and returns its canonical encoding.
// Empty content becomes the empty document of that kind.
func normalize(kind storage.Kind, content []byte) ([]byte, error) {
	switch kind {
	case storage.KindBoard:
		if len(bytes.TrimSpace(content)) == 0 {
			return document.Encode(document.NewEmptyDocument())
		}
		out, err := document.Canonical(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
		}
		return out, nil
	case storage.KindDrawing:
		if len(bytes.TrimSpace(content)) == 0 {
			return document.EncodeRegion(document.NewEmptyRegionDocument())
		}
		region, err := document.DecodeRegion(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalid, err)
		}
		return document.EncodeRegion(region)
	}
	return nil, fmt.Errorf("%w: kind %q", storage.ErrInvalid, kind)
}

func (s *Service) Create(ctx context.Context, userID string, kind storage.Kind, title string, content []byte) (*storage.Document, error) {
	if kind == "" {
		kind = storage.KindBoard
	}
	if title == "" {
		title = defaultTitle
	}
	initial, err := normalize(kind, content)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateDocument(ctx, userID, kind, title, initial)
}

func (s *Service) Get(ctx context.Context, documentID, userID string) (*storage.Document, error) {
	return s.authorize(ctx, documentID, userID)
}

func (s *Service) List(ctx context.Context, userID string) ([]storage.Document, error) {
	return s.repo.List(ctx, userID)
}

func (s *Service) Content(ctx context.Context, documentID, userID string) ([]byte, error) {
	if _, err := s.authorize(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.repo.LoadContent(ctx, documentID)
}

// SaveContent stores a new revision and announces it to every subscriber but
// the writer.
func (s *Service) SaveContent(ctx context.Context, documentID, userID string, content []byte, writerClientID string) (*storage.Document, error) {
	meta, err := s.authorize(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: empty content", storage.ErrInvalid)
	}
	canonical, err := normalize(meta.Kind, content)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveContent(ctx, documentID, canonical); err != nil {
		return nil, err
	}
	saved, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("reload document: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSaved(documentID, saved.Revision, canonical, writerClientID)
	}
	return saved, nil
}

// Thumbnail returns the uploaded preview, rendering one from the stored
// content when nothing has been uploaded yet.
func (s *Service) Thumbnail(ctx context.Context, documentID, userID string) ([]byte, error) {
	meta, err := s.authorize(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	png, err := s.repo.Thumbnail(ctx, documentID)
	if err == nil || !errors.Is(err, storage.ErrNotFound) || s.thumbs == nil || meta.Kind != storage.KindBoard {
		return png, err
	}
	doc, regions, err := s.loadBoard(ctx, meta)
	if err != nil {
		return nil, err
	}
	return s.thumbs.Thumbnail(doc, regions)
}

func (s *Service) PutThumbnail(ctx context.Context, documentID, userID string, png []byte) error {
	if _, err := s.authorize(ctx, documentID, userID); err != nil {
		return err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil || format != "png" {
		return fmt.Errorf("%w: thumbnail is not a PNG image", storage.ErrInvalid)
	}
	return s.repo.UploadThumbnail(ctx, documentID, png)
}

// ExportPDF writes the board, including region strokes, to w.
func (s *Service) ExportPDF(ctx context.Context, documentID, userID string, w io.Writer) error {
	if s.exporter == nil {
		return errors.New("pdf export is not configured")
	}
	meta, err := s.authorize(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if meta.Kind != storage.KindBoard {
		return fmt.Errorf("%w: only boards can be exported", storage.ErrInvalid)
	}
	doc, regions, err := s.loadBoard(ctx, meta)
	if err != nil {
		return err
	}
	return s.exporter.PDF(w, meta.Title, doc, regions)
}

// loadBoard decodes a board and the regions it references. Regions that are
// missing, unreadable or owned by someone else are left out and render empty.
func (s *Service) loadBoard(ctx context.Context, meta *storage.Document) (*document.Document, map[string]*document.RegionDocument, error) {
	content, err := s.repo.LoadContent(ctx, meta.ID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := document.Decode(content)
	if err != nil {
		return nil, nil, fmt.Errorf("decode board %s: %w", meta.ID, err)
	}
	regions := make(map[string]*document.RegionDocument)
	for _, o := range doc.Objects {
		if o.Kind != document.KindDrawingRegion {
			continue
		}
		region, err := s.loadRegion(ctx, meta.OwnerID, o.ExternalDocumentID)
		if err != nil {
			slog.Warn("skip region", "board", meta.ID, "region", o.ExternalDocumentID, "error", err)
			continue
		}
		regions[o.ExternalDocumentID] = region
	}
	return doc, regions, nil
}

func (s *Service) loadRegion(ctx context.Context, ownerID, id string) (*document.RegionDocument, error) {
	if _, err := s.authorize(ctx, id, ownerID); err != nil {
		return nil, err
	}
	data, err := s.repo.LoadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return document.DecodeRegion(data)
}
