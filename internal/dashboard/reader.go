package dashboard

import (
	"context"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
	"github.com/janwilmake/flaredream.dash/internal/storage"
	"github.com/janwilmake/flaredream.dash/internal/visibility"
)

// Page is a cached dashboard as served to one viewer
type Page struct {
	Username string
	Tier     domain.Tier
	Format   domain.Format
	Content  string
	Found    bool
}

// KeyStatus reports whether one cache key currently holds a readable entry
type KeyStatus struct {
	Key     domain.CacheKey
	Present bool
	Size    int
}

// Reader serves cached dashboards. It never fetches or renders; a miss tells the
// caller a refresh is needed.
type Reader struct {
	store storage.CacheStore
}

// NewReader creates a reader over store
func NewReader(store storage.CacheStore) *Reader {
	return &Reader{store: store}
}

// Read looks up the dashboard of username in format at the tier viewer may see
func (r *Reader) Read(ctx context.Context, username string, viewer *domain.Viewer, format domain.Format) (*Page, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NewBadRequestError("username is required")
	}

	tier := visibility.Resolve(viewer, username).ReadTier()
	key := domain.CacheKey{Username: username, Tier: tier, Format: format}

	content, found, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read dashboard cache", err)
	}
	return &Page{Username: username, Tier: tier, Format: format, Content: content, Found: found}, nil
}

// Inventory reports the state of every cache key of username
func (r *Reader) Inventory(ctx context.Context, username string) ([]KeyStatus, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NewBadRequestError("username is required")
	}

	var statuses []KeyStatus
	for _, tier := range []domain.Tier{domain.TierPublic, domain.TierPrivate} {
		for _, key := range domain.KeysFor(username, tier) {
			content, found, err := r.store.Get(ctx, key)
			if err != nil {
				return nil, apperrors.NewInternalError("failed to read dashboard cache", err)
			}
			statuses = append(statuses, KeyStatus{Key: key, Present: found, Size: len(content)})
		}
	}
	return statuses, nil
}
