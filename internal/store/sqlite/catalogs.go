package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lancermigrate/internal/store"
)

const catalogColumns = `collection, title, package, entity, locked, protected`

func scanCatalog(row interface{ Scan(...any) error }) (store.Catalog, error) {
	var c store.Catalog
	var locked, protected int
	if err := row.Scan(&c.Collection, &c.Title, &c.Metadata.Package, &c.Metadata.Entity, &locked, &protected); err != nil {
		return store.Catalog{}, err
	}
	c.Locked = locked != 0
	c.Protected = protected != 0
	return c, nil
}

func (c *Client) ListCatalogs(ctx context.Context) ([]store.Catalog, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+catalogColumns+` FROM catalogs ORDER BY collection`)
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
	row := c.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalogs WHERE collection = ?`, collection)
	cat, err := scanCatalog(row)
	if errors.Is(err, sql.ErrNoRows) {
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

	_, err := c.db.ExecContext(ctx, `
	INSERT INTO catalogs (collection, title, package, entity, locked, protected)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (collection) DO UPDATE SET
		title = excluded.title,
		package = excluded.package,
		entity = excluded.entity
	`, cat.Collection, cat.Title, pkg, cat.Metadata.Entity, boolInt(cat.Locked), boolInt(cat.Protected))
	if err != nil {
		return fmt.Errorf("creating catalog: %w", err)
	}
	return nil
}

// Configure sets the lock flag. Unlocking a protected catalog is silently
// ignored.
func (c *Client) Configure(ctx context.Context, collection string, locked bool) error {
	res, err := c.db.ExecContext(ctx, `
	UPDATE catalogs SET locked = ?
	WHERE collection = ? AND (? = 1 OR protected = 0)
	`, boolInt(locked), collection, boolInt(locked))
	if err != nil {
		return fmt.Errorf("configuring catalog: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("configuring catalog: %w", err)
	}
	if n == 0 {
		if _, err := c.GetCatalog(ctx, collection); err != nil {
			return err
		}
	}
	return nil
}

// MigrateBaseline normalizes the storage layout of every document in the
// catalog: data becomes an object and a non-object flags field is dropped.
func (c *Client) MigrateBaseline(ctx context.Context, collection string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`UPDATE documents SET doc = json_set(doc, '$.data', json('{}')), updated_at = datetime('now')
		 WHERE collection = ? AND json_type(doc, '$.data') IS NOT 'object'`,
		`UPDATE documents SET doc = json_remove(doc, '$.flags'), updated_at = datetime('now')
		 WHERE collection = ? AND json_type(doc, '$.flags') IS NOT NULL AND json_type(doc, '$.flags') != 'object'`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, collection); err != nil {
			return fmt.Errorf("migrating baseline of %s: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing baseline migration: %w", err)
	}
	return nil
}

// DeleteCatalog removes the catalog and its documents. Locked catalogs are
// refused with store.ErrLocked.
func (c *Client) DeleteCatalog(ctx context.Context, collection string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx, `SELECT locked FROM catalogs WHERE collection = ?`, collection).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("catalog %q: %w", collection, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	if locked != 0 {
		return fmt.Errorf("deleting catalog %q: %w", collection, store.ErrLocked)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalogs WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("deleting catalog: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog deletion: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
