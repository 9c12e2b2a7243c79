package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/store"
)

func (c *Client) GetDocuments(ctx context.Context, collection string) ([]entity.Document, error) {
	if _, err := c.GetCatalog(ctx, collection); err != nil {
		return nil, err
	}
	return c.documents(ctx, collection)
}

func (c *Client) documents(ctx context.Context, collection string) ([]entity.Document, error) {
	rows, err := c.pool.Query(ctx, `SELECT id, doc FROM documents WHERE collection = $1 ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func decodeDocument(id string, raw []byte) (entity.Document, error) {
	var doc entity.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return entity.Document{}, fmt.Errorf("decoding document %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// UpdateEntity applies p to one catalog document. The catalog must be
// unlocked.
func (c *Client) UpdateEntity(ctx context.Context, collection, id string, p patch.Payload) error {
	cat, err := c.GetCatalog(ctx, collection)
	if err != nil {
		return err
	}
	if cat.Locked {
		return fmt.Errorf("updating %s in %q: %w", id, collection, store.ErrLocked)
	}
	return c.updateDocument(ctx, collection, id, p)
}

// updateDocument applies every op in one transaction. jsonb_set only creates
// the final key, so missing parents of a set path are created first.
func (c *Client) updateDocument(ctx context.Context, collection, id string, p patch.Payload) error {
	if p.IsEmpty() {
		return nil
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT true FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	for _, op := range p {
		if len(op.Path) == 0 {
			return fmt.Errorf("applying %s: %w", op.Kind, patch.ErrEmptyPath)
		}
		path := []string(op.Path)

		switch op.Kind {
		case patch.OpSet:
			for i := 1; i < len(path); i++ {
				_, err := tx.Exec(ctx, `
UPDATE documents SET doc = jsonb_set(doc, $3::text[], '{}'::jsonb, true)
WHERE collection = $1 AND id = $2 AND doc #> $3::text[] IS NULL
`, collection, id, path[:i])
				if err != nil {
					return fmt.Errorf("creating parent of %s: %w", op.Path, err)
				}
			}

			raw, err := json.Marshal(op.Value)
			if err != nil {
				return fmt.Errorf("encoding value for %s: %w", op.Path, err)
			}
			_, err = tx.Exec(ctx, `
UPDATE documents SET doc = jsonb_set(doc, $3::text[], $4::jsonb, true), updated_at = now()
WHERE collection = $1 AND id = $2
`, collection, id, path, string(raw))
			if err != nil {
				return fmt.Errorf("setting %s: %w", op.Path, err)
			}
		case patch.OpDelete:
			_, err := tx.Exec(ctx, `
UPDATE documents SET doc = doc #- $3::text[], updated_at = now()
WHERE collection = $1 AND id = $2
`, collection, id, path)
			if err != nil {
				return fmt.Errorf("deleting %s: %w", op.Path, err)
			}
		default:
			return fmt.Errorf("applying %s: unknown operation", op.Kind)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document update: %w", err)
	}
	return nil
}

func (c *Client) InsertDocument(ctx context.Context, collection string, doc entity.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("inserting into %s: document has no id", collection)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.ID, err)
	}

	_, err = c.pool.Exec(ctx, `
INSERT INTO documents (collection, id, doc, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (collection, id) DO UPDATE SET
    doc = EXCLUDED.doc,
    updated_at = EXCLUDED.updated_at
`, collection, doc.ID, string(raw))
	if err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *Client) WorldDocuments(ctx context.Context, kind entity.Kind) ([]entity.Document, error) {
	return c.documents(ctx, store.WorldCollection(kind))
}

func (c *Client) GetWorldDocument(ctx context.Context, kind entity.Kind, id string) (*entity.Document, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		store.WorldCollection(kind), id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting world document: %w", err)
	}
	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) UpdateWorldEntity(ctx context.Context, kind entity.Kind, id string, p patch.Payload) error {
	return c.updateDocument(ctx, store.WorldCollection(kind), id, p)
}
