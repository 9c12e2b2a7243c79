package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (c *Client) GetSetting(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := c.pool.QueryRow(ctx, `SELECT value FROM settings WHERE namespace = $1 AND key = $2`, namespace, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s.%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (c *Client) SetSetting(ctx context.Context, namespace, key, value string) error {
	_, err := c.pool.Exec(ctx, `
INSERT INTO settings (namespace, key, value) VALUES ($1, $2, $3)
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value
`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("setting %s.%s: %w", namespace, key, err)
	}
	return nil
}
