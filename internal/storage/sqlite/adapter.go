package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	"github.com/janwilmake/flaredream.dash/internal/storage"
)

// sqliteStorage implements the CacheStore interface for SQLite
type sqliteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string, opts ...storage.Option) (storage.CacheStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db, now: storage.ApplyOptions(opts).Now}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS dashboard_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate dashboard_cache: %w", err)
	}
	return nil
}

// Get returns the payload stored under key; expired rows read as absent
func (s *sqliteStorage) Get(ctx context.Context, key domain.CacheKey) (string, bool, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM dashboard_cache WHERE cache_key = ?`,
		key.String(),
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if storage.Expired(s.now(), fromUnixMilli(expiresAt)) {
		return "", false, nil
	}
	return payload, true, nil
}

// Put stores a single payload
func (s *sqliteStorage) Put(ctx context.Context, key domain.CacheKey, content string, ttl time.Duration) error {
	return s.PutAll(ctx, []domain.CacheEntry{{Key: key, Payload: content}}, ttl)
}

// PutAll upserts every entry inside one transaction
func (s *sqliteStorage) PutAll(ctx context.Context, entries []domain.CacheEntry, ttl time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dashboard_cache (cache_key, payload, expires_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	expiresAt := toUnixMilli(storage.ExpiresAt(s.now(), ttl))
	for _, e := range entries {
		if err := e.Key.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.Key.String(), e.Payload, expiresAt); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

func toUnixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
