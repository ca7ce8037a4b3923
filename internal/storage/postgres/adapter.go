package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	"github.com/janwilmake/flaredream.dash/internal/storage"
)

// postgresStorage implements the CacheStore interface for PostgreSQL
type postgresStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStorage creates a new PostgreSQL storage instance
func NewPostgresStorage(connStr string, opts ...storage.Option) (storage.CacheStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &postgresStorage{db: db, now: storage.ApplyOptions(opts).Now}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *postgresStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS dashboard_cache (
		cache_key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		expires_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate dashboard_cache: %w", err)
	}
	return nil
}

// Get returns the payload stored under key; expired rows read as absent
func (s *postgresStorage) Get(ctx context.Context, key domain.CacheKey) (string, bool, error) {
	var payload string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM dashboard_cache WHERE cache_key = $1`,
		key.String(),
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if expiresAt.Valid && storage.Expired(s.now(), expiresAt.Time) {
		return "", false, nil
	}
	return payload, true, nil
}

// Put stores a single payload
func (s *postgresStorage) Put(ctx context.Context, key domain.CacheKey, content string, ttl time.Duration) error {
	return s.PutAll(ctx, []domain.CacheEntry{{Key: key, Payload: content}}, ttl)
}

// PutAll upserts every entry inside one transaction
func (s *postgresStorage) PutAll(ctx context.Context, entries []domain.CacheEntry, ttl time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var expiresAt sql.NullTime
	if t := storage.ExpiresAt(s.now(), ttl); !t.IsZero() {
		expiresAt = sql.NullTime{Time: t.UTC(), Valid: true}
	}

	for _, e := range entries {
		if err := e.Key.Validate(); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dashboard_cache (cache_key, payload, expires_at, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (cache_key) DO UPDATE SET
				payload = EXCLUDED.payload,
				expires_at = EXCLUDED.expires_at,
				updated_at = NOW()
		`, e.Key.String(), e.Payload, expiresAt)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", e.Key, err)
		}
	}

	return tx.Commit()
}

// Close closes the database connection
func (s *postgresStorage) Close() error {
	return s.db.Close()
}
