package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lancermigrate/internal/store"
)

const catalogColumns = `collection, title, package, entity, locked, protected`

func scanCatalog(row pgx.Row) (store.Catalog, error) {
	var c store.Catalog
	err := row.Scan(&c.Collection, &c.Title, &c.Metadata.Package, &c.Metadata.Entity, &c.Locked, &c.Protected)
	return c, err
}

func (c *Client) ListCatalogs(ctx context.Context) ([]store.Catalog, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+catalogColumns+` FROM catalogs ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("listing catalogs: %w", err)
	}
	defer rows.Close()

	var catalogs []store.Catalog
	for rows.Next() {
		cat, err := scanCatalog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog: %w", err)
		}
		catalogs = append(catalogs, cat)
	}
	return catalogs, rows.Err()
}

func (c *Client) GetCatalog(ctx context.Context, collection string) (*store.Catalog, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+catalogColumns+` FROM catalogs WHERE collection = $1`, collection)
	cat, err := scanCatalog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("catalog %q: %w", collection, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog: %w", err)
	}
	return &cat, nil
}

func (c *Client) CreateCatalog(ctx context.Context, cat store.Catalog) error {
	pkg := cat.Metadata.Package
	if pkg == "" {
		pkg = store.WorldPackage
	}

	_, err := c.pool.Exec(ctx, `
INSERT INTO catalogs (collection, title, package, entity, locked, protected)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (collection) DO UPDATE SET
    title = EXCLUDED.title,
    package = EXCLUDED.package,
    entity = EXCLUDED.entity
`, cat.Collection, cat.Title, pkg, cat.Metadata.Entity, cat.Locked, cat.Protected)
	if err != nil {
		return fmt.Errorf("creating catalog: %w", err)
	}
	return nil
}

// Configure sets the lock flag. Unlocking a protected catalog is silently
// ignored.
func (c *Client) Configure(ctx context.Context, collection string, locked bool) error {
	tag, err := c.pool.Exec(ctx, `
UPDATE catalogs SET locked = $1
WHERE collection = $2 AND ($1 OR NOT protected)
`, locked, collection)
	if err != nil {
		return fmt.Errorf("configuring catalog: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := c.GetCatalog(ctx, collection); err != nil {
			return err
		}
	}
	return nil
}

// MigrateBaseline normalizes the storage layout of every document in the
// catalog: data becomes an object and a non-object flags field is dropped.
func (c *Client) MigrateBaseline(ctx context.Context, collection string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := []string{
		`UPDATE documents SET doc = jsonb_set(doc, '{data}', '{}'::jsonb, true), updated_at = now()
		 WHERE collection = $1 AND jsonb_typeof(doc->'data') IS DISTINCT FROM 'object'`,
		`UPDATE documents SET doc = doc - 'flags', updated_at = now()
		 WHERE collection = $1 AND doc ? 'flags' AND jsonb_typeof(doc->'flags') <> 'object'`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, collection); err != nil {
			return fmt.Errorf("migrating baseline of %s: %w", collection, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing baseline migration: %w", err)
	}
	return nil
}

// DeleteCatalog removes the catalog and its documents. Locked catalogs are
// refused with store.ErrLocked.
func (c *Client) DeleteCatalog(ctx context.Context, collection string) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked bool
	err = tx.QueryRow(ctx, `SELECT locked FROM catalogs WHERE collection = $1 FOR UPDATE`, collection).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("catalog %q: %w", collection, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	if locked {
		return fmt.Errorf("deleting catalog %q: %w", collection, store.ErrLocked)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM catalogs WHERE collection = $1`, collection); err != nil {
		return fmt.Errorf("deleting catalog: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing catalog deletion: %w", err)
	}
	return nil
}
