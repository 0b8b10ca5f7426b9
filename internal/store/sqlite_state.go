package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func (s *Store) SetPendingRevisions(ctx context.Context, queueID string, count int) error {
	if count < 0 {
		count = 0
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_state (queue_id, pending_revisions, updated_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(queue_id) DO UPDATE SET pending_revisions=excluded.pending_revisions, updated_utc=excluded.updated_utc
	`, queueID, count, now); err != nil {
		return fmt.Errorf("set pending revisions: %w", err)
	}
	return nil
}

func (s *Store) PendingRevisions(ctx context.Context, queueID string) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT pending_revisions FROM queue_state WHERE queue_id = ?`, queueID)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get pending revisions: %w", err)
	}
	return count, nil
}

func (s *Store) SetAppState(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value, updated_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_utc=excluded.updated_utc
	`, key, value, now); err != nil {
		return fmt.Errorf("set app state: %w", err)
	}
	return nil
}

func (s *Store) GetAppState(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get app state: %w", err)
	}
	return value, true, nil
}

func (s *Store) DeleteAppState(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete app state: %w", err)
	}
	return nil
}
