package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

func (c *Client) GetSetting(ctx context.Context, namespace, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting setting %s.%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (c *Client) SetSetting(ctx context.Context, namespace, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO settings (namespace, key, value) VALUES (?, ?, ?)
	ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value
	`, namespace, key, value)
	if err != nil {
		return fmt.Errorf("setting %s.%s: %w", namespace, key, err)
	}
	return nil
}
