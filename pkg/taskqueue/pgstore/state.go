package pgstore

import (
	"context"

	"github.com/dmitrymomot/agentscheduler/pkg/pg"
)

// GetValue implements taskqueue.StateStore
func (s *Store) GetValue(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(ctx, "SELECT value FROM app_state WHERE key = $1", key).Scan(&v)
	if pg.IsNotFoundError(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.fail(ctx, "get_state", err)
	}
	return v, true, nil
}

// SetValue implements taskqueue.StateStore
func (s *Store) SetValue(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO app_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return s.fail(ctx, "set_state", err)
	}
	return nil
}
