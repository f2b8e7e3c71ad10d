// Package cache keeps the extracted text of messages in a local SQLite file
// so later runs can skip fetching them again.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/bscott/mailcloud/internal/mailbox"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

type Entry struct {
	Ref          mailbox.MessageRef `db:"ref"`
	Text         string             `db:"text"`
	PartsSkipped int                `db:"parts_skipped"`
	RunID        string             `db:"run_id"`
	FetchedAt    int64              `db:"fetched_at"`
}

// Store is safe for concurrent use. Entries are scoped by namespace so the
// same file can hold refs from different providers.
type Store struct {
	db        *sqlx.DB
	namespace string
}

var migrations = []struct {
	version int
	sql     string
}{
	{1, `
		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
		CREATE TABLE IF NOT EXISTS texts (
			namespace     TEXT    NOT NULL,
			ref           TEXT    NOT NULL,
			text          TEXT    NOT NULL,
			parts_skipped INTEGER NOT NULL DEFAULT 0,
			run_id        TEXT    NOT NULL DEFAULT '',
			fetched_at    INTEGER NOT NULL,
			PRIMARY KEY (namespace, ref)
		);
		INSERT INTO schema_version (version) VALUES (1);`},
}

func Open(path, namespace string) (*Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	if path != Memory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &Store{db: db, namespace: namespace}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	current := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Get returns the cached entry for ref. ok is false on a miss.
func (s *Store) Get(ctx context.Context, ref mailbox.MessageRef) (entry Entry, ok bool, err error) {
	err = s.db.GetContext(ctx, &entry, `
		SELECT ref, text, parts_skipped, run_id, fetched_at
		FROM texts WHERE namespace = ? AND ref = ?`,
		s.namespace, string(ref),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache entry %s: %w", ref, err)
	}
	return entry, true, nil
}

// Put inserts or replaces the entry for e.Ref. A zero FetchedAt is set to now.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.FetchedAt == 0 {
		e.FetchedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO texts (namespace, ref, text, parts_skipped, run_id, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.namespace, string(e.Ref), e.Text, e.PartsSkipped, e.RunID, e.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("writing cache entry %s: %w", e.Ref, err)
	}
	return nil
}

// Len counts the entries in this store's namespace.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM texts WHERE namespace = ?", s.namespace); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Clear removes every entry in this store's namespace.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM texts WHERE namespace = ?", s.namespace); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}
