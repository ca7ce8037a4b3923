package storage

import (
	"context"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// CacheStore is the abstract interface for the rendered-dashboard cache.
//
// Get reports found=false for a missing or expired key; absence is not an error.
// PutAll writes every entry or none of them, so sibling artifacts of one refresh
// never become visible half-updated.
type CacheStore interface {
	Get(ctx context.Context, key domain.CacheKey) (content string, found bool, err error)
	Put(ctx context.Context, key domain.CacheKey, content string, ttl time.Duration) error
	PutAll(ctx context.Context, entries []domain.CacheEntry, ttl time.Duration) error

	// Connection management
	Close() error
}

// Options holds settings shared by the adapters
type Options struct {
	Now func() time.Time
}

// Option configures an adapter
type Option func(*Options)

// WithClock overrides the clock used for expiry decisions
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// ApplyOptions resolves opts over the defaults
func ApplyOptions(opts []Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// ExpiresAt returns the absolute expiry for a ttl; a non-positive ttl never expires
func ExpiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// Expired reports whether an entry with the given expiry is no longer readable
func Expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
