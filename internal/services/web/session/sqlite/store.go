// Package sqlite provides a durable SQLite-backed session store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/failuretoload/datamonster-web/internal/platform/storage/sqlitemigrate"
	"github.com/failuretoload/datamonster-web/internal/services/web/session"
	"github.com/failuretoload/datamonster-web/internal/services/web/session/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists browser-session records in SQLite.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ session.Store = (*Store)(nil)

// Open opens and migrates the store at path. A positive ttl hides records
// older than ttl and lets Prune remove them.
func Open(ctx context.Context, path string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, db, migrations.FS, "."); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get loads the record for sessionID.
func (s *Store) Get(ctx context.Context, sessionID string) (session.Record, bool, error) {
	if s == nil || s.db == nil {
		return session.Record{}, false, session.ErrStoreNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return session.Record{}, false, nil
	}

	var (
		record    session.Record
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, token, updated_at FROM web_sessions WHERE session_id = ? AND updated_at >= ?`,
		sessionID, s.cutoff(),
	).Scan(&record.SessionID, &record.Token, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Record{}, false, nil
	}
	if err != nil {
		return session.Record{}, false, fmt.Errorf("get session: %w", err)
	}
	record.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return record, true, nil
}

// Put upserts record.
func (s *Store) Put(ctx context.Context, record session.Record) error {
	if s == nil || s.db == nil {
		return session.ErrStoreNotConfigured
	}
	normalized, ok := session.Normalize(record, s.now())
	if !ok {
		return fmt.Errorf("session id and token are required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO web_sessions (session_id, token, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		normalized.SessionID, normalized.Token, normalized.UpdatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Delete removes the record for sessionID.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return session.ErrStoreNotConfigured
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE session_id = ?`, strings.TrimSpace(sessionID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Prune deletes records older than the store ttl and returns how many were
// removed. It is a no-op without a ttl.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, session.ErrStoreNotConfigured
	}
	if s.ttl <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM web_sessions WHERE updated_at < ?`, s.cutoff())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return result.RowsAffected()
}

func (s *Store) cutoff() int64 {
	if s.ttl <= 0 {
		return 0
	}
	return s.now().Add(-s.ttl).UnixMilli()
}
