//go:build !(js && wasm)

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkboard/inkboard/internal/asset"
	"github.com/inkboard/inkboard/internal/typeid"
)

// Postgres keeps every saved content as a new revision; loads return the
// latest. Thumbnails go to the asset store.
type Postgres struct {
	pool   *pgxpool.Pool
	assets asset.Store
}

func NewPostgres(pool *pgxpool.Pool, assets asset.Store) *Postgres {
	return &Postgres{pool: pool, assets: assets}
}

func (p *Postgres) CreateDocument(ctx context.Context, ownerID string, kind Kind, title string, initial []byte) (*Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalid, kind)
	}
	doc := &Document{ID: typeid.NewDocumentID(), OwnerID: ownerID, Kind: kind, Title: title, Revision: 1}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO documents (id, owner_id, kind, title) VALUES ($1, $2, $3, $4)
			 RETURNING created_at, updated_at`,
			doc.ID, ownerID, string(kind), title).Scan(&doc.CreatedAt, &doc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO document_revisions (id, document_id, revision, content) VALUES ($1, $2, 1, $3)`,
			typeid.NewRevisionID(), doc.ID, initial)
		if err != nil {
			return fmt.Errorf("insert initial revision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (p *Postgres) LoadContent(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	err := p.pool.QueryRow(ctx,
		`SELECT content FROM document_revisions WHERE document_id = $1 ORDER BY revision DESC LIMIT 1`,
		id).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load content: %w", err)
	}
	return content, nil
}

func (p *Postgres) SaveContent(ctx context.Context, id string, content []byte) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE documents SET updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("touch document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO document_revisions (id, document_id, revision, content)
			 SELECT $1, $2, COALESCE(MAX(revision), 0) + 1, $3 FROM document_revisions WHERE document_id = $2`,
			typeid.NewRevisionID(), id, content)
		if err != nil {
			return fmt.Errorf("insert revision: %w", err)
		}
		return nil
	})
}

func (p *Postgres) UploadThumbnail(ctx context.Context, id string, png []byte) error {
	key := asset.ThumbnailKey(id)
	tag, err := p.pool.Exec(ctx, `UPDATE documents SET thumbnail_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("record thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := p.assets.Put(ctx, key, png, "image/png"); err != nil {
		return fmt.Errorf("upload thumbnail: %w", err)
	}
	return nil
}

func (p *Postgres) Thumbnail(ctx context.Context, id string) ([]byte, error) {
	var key *string
	err := p.pool.QueryRow(ctx, `SELECT thumbnail_key FROM documents WHERE id = $1`, id).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get thumbnail key: %w", err)
	}
	if key == nil {
		return nil, ErrNotFound
	}
	data, err := p.assets.Get(ctx, *key)
	if errors.Is(err, asset.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

const documentColumns = `d.id, d.owner_id, d.kind, d.title, d.created_at, d.updated_at,
	COALESCE((SELECT MAX(revision) FROM document_revisions r WHERE r.document_id = d.id), 0)`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var kind string
	if err := row.Scan(&d.ID, &d.OwnerID, &kind, &d.Title, &d.CreatedAt, &d.UpdatedAt, &d.Revision); err != nil {
		return nil, err
	}
	d.Kind = Kind(kind)
	return &d, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*Document, error) {
	d, err := scanDocument(p.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (p *Postgres) List(ctx context.Context, ownerID string) ([]Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents d WHERE d.owner_id = $1 ORDER BY d.updated_at DESC, d.id DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}
