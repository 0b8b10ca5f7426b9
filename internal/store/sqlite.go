package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS iterations (
			queue_id TEXT NOT NULL,
			iteration_id TEXT NOT NULL,
			build_number INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL,
			productive INTEGER NOT NULL DEFAULT 0,
			text TEXT,
			first_failed_step TEXT,
			failure_logs_json TEXT NOT NULL DEFAULT '[]',
			revision TEXT,
			open_source_revision TEXT,
			started_utc TEXT,
			finished_utc TEXT,
			reported_utc TEXT NOT NULL,
			reported_unix_nano INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(queue_id, iteration_id)
		);`,
		`CREATE TABLE IF NOT EXISTS queue_state (
			queue_id TEXT PRIMARY KEY,
			pending_revisions INTEGER NOT NULL DEFAULT 0,
			updated_utc TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS app_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_utc TEXT NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	if err := s.addColumnIfMissing("iterations", "open_source_revision", "TEXT"); err != nil {
		return err
	}
	if err := s.addColumnIfMissing("iterations", "reported_unix_nano", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DROP INDEX IF EXISTS idx_iterations_queue_order`); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_iterations_queue_recency ON iterations(queue_id, build_number DESC, reported_unix_nano DESC)`); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) addColumnIfMissing(table, col, typ string) error {
	_, err := s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col, typ))
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "duplicate column name") {
		return fmt.Errorf("add column %s.%s: %w", table, col, err)
	}
	return nil
}
