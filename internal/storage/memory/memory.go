package memory

import (
	"context"
	"sync"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	"github.com/janwilmake/flaredream.dash/internal/storage"
)

type entry struct {
	payload   string
	expiresAt time.Time // zero => no TTL
}

// memoryStorage implements the CacheStore interface in process memory
type memoryStorage struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStorage creates an empty in-memory cache store
func NewMemoryStorage(opts ...storage.Option) storage.CacheStore {
	o := storage.ApplyOptions(opts)
	return &memoryStorage{
		entries: make(map[string]entry),
		now:     o.Now,
	}
}

// Get returns the payload stored under key; expired entries read as absent
func (s *memoryStorage) Get(ctx context.Context, key domain.CacheKey) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()
	if !ok || storage.Expired(s.now(), e.expiresAt) {
		return "", false, nil
	}
	return e.payload, true, nil
}

// Put stores a single payload
func (s *memoryStorage) Put(ctx context.Context, key domain.CacheKey, content string, ttl time.Duration) error {
	return s.PutAll(ctx, []domain.CacheEntry{{Key: key, Payload: content}}, ttl)
}

// PutAll stores every entry under one lock
func (s *memoryStorage) PutAll(ctx context.Context, entries []domain.CacheEntry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := e.Key.Validate(); err != nil {
			return err
		}
	}
	expiresAt := storage.ExpiresAt(s.now(), ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Key.String()] = entry{payload: e.Payload, expiresAt: expiresAt}
	}
	return nil
}

// Close is a no-op
func (s *memoryStorage) Close() error {
	return nil
}
