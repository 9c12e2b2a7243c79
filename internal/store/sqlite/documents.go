package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

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
	rows, err := c.db.QueryContext(ctx, `SELECT id, doc FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var id, raw string
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

func (c *Client) document(ctx context.Context, collection, id string) (*entity.Document, error) {
	var raw string
	err := c.db.QueryRowContext(ctx, `SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func decodeDocument(id, raw string) (entity.Document, error) {
	var doc entity.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
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

func (c *Client) updateDocument(ctx context.Context, collection, id string, p patch.Payload) error {
	if p.IsEmpty() {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("document %s/%s: %w", collection, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	updated, err := applyPayload(raw, p)
	if err != nil {
		return fmt.Errorf("patching %s/%s: %w", collection, id, err)
	}
	if !gjson.Valid(updated) {
		return fmt.Errorf("patching %s/%s: result is not valid JSON", collection, id)
	}

	_, err = tx.ExecContext(ctx, `
	UPDATE documents SET doc = ?, updated_at = datetime('now')
	WHERE collection = ? AND id = ?
	`, updated, collection, id)
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	if err := tx.Commit(); err != nil {
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

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO documents (collection, id, doc, updated_at)
	VALUES (?, ?, ?, datetime('now'))
	ON CONFLICT (collection, id) DO UPDATE SET
		doc = excluded.doc,
		updated_at = excluded.updated_at
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
	return c.document(ctx, store.WorldCollection(kind), id)
}

func (c *Client) UpdateWorldEntity(ctx context.Context, kind entity.Kind, id string, p patch.Payload) error {
	return c.updateDocument(ctx, store.WorldCollection(kind), id, p)
}
