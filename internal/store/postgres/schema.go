package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// Runs as one implicit transaction; IF NOT EXISTS keeps it idempotent.
	ddl := `
CREATE TABLE IF NOT EXISTS catalogs (
    collection TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    package    TEXT NOT NULL DEFAULT 'world',
    entity     TEXT NOT NULL,
    locked     BOOLEAN NOT NULL DEFAULT TRUE,
    protected  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    doc        JSONB NOT NULL DEFAULT '{}',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);

CREATE TABLE IF NOT EXISTS settings (
    namespace TEXT NOT NULL,
    key       TEXT NOT NULL,
    value     TEXT NOT NULL,
    PRIMARY KEY (namespace, key)
);
`
	_, err := c.pool.Exec(ctx, ddl)
	if err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
