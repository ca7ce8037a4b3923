package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
	"github.com/janwilmake/flaredream.dash/internal/storage/memory"
)

func seed(t *testing.T, entries ...domain.CacheEntry) *Reader {
	t.Helper()
	store := memory.NewMemoryStorage()
	require.NoError(t, store.PutAll(context.Background(), entries, 0))
	return NewReader(store)
}

func TestRead_PrivateNeverFallsBackToPublic(t *testing.T) {
	r := seed(t, domain.CacheEntry{
		Key:     domain.CacheKey{Username: "carol", Tier: domain.TierPublic, Format: domain.FormatMarkup},
		Payload: "public page",
	})

	page, err := r.Read(context.Background(), "carol", &domain.Viewer{Login: "carol", Credential: "tok"}, domain.FormatMarkup)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPrivate, page.Tier)
	assert.False(t, page.Found)
	assert.Empty(t, page.Content)
}

func TestRead_TierByViewer(t *testing.T) {
	r := seed(t,
		domain.CacheEntry{Key: domain.CacheKey{Username: "dora", Tier: domain.TierPublic, Format: domain.FormatMarkup}, Payload: "public markup"},
		domain.CacheEntry{Key: domain.CacheKey{Username: "dora", Tier: domain.TierPublic, Format: domain.FormatPlaintext}, Payload: "public text"},
		domain.CacheEntry{Key: domain.CacheKey{Username: "dora", Tier: domain.TierPrivate, Format: domain.FormatMarkup}, Payload: "private markup"},
	)

	tests := []struct {
		name   string
		viewer *domain.Viewer
		format domain.Format
		want   string
		tier   domain.Tier
	}{
		{name: "anonymous", viewer: nil, format: domain.FormatMarkup, want: "public markup", tier: domain.TierPublic},
		{name: "stranger", viewer: &domain.Viewer{Login: "eve", Credential: "x"}, format: domain.FormatPlaintext, want: "public text", tier: domain.TierPublic},
		{name: "owner", viewer: &domain.Viewer{Login: "DORA", Credential: "tok"}, format: domain.FormatMarkup, want: "private markup", tier: domain.TierPrivate},
		{name: "owner without credential", viewer: &domain.Viewer{Login: "dora"}, format: domain.FormatMarkup, want: "public markup", tier: domain.TierPublic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := r.Read(context.Background(), "Dora", tt.viewer, tt.format)
			require.NoError(t, err)
			assert.True(t, page.Found)
			assert.Equal(t, tt.want, page.Content)
			assert.Equal(t, tt.tier, page.Tier)
			assert.Equal(t, "dora", page.Username)
		})
	}
}

func TestRead_Miss(t *testing.T) {
	page, err := seed(t).Read(context.Background(), "nobody", nil, domain.FormatPlaintext)
	require.NoError(t, err)
	assert.False(t, page.Found)
}

func TestRead_StoreError(t *testing.T) {
	r := seed(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx, "nobody", nil, domain.FormatMarkup)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.CodeOf(err))
}

func TestInventory(t *testing.T) {
	r := seed(t, domain.CacheEntry{
		Key:     domain.CacheKey{Username: "finn", Tier: domain.TierPublic, Format: domain.FormatPlaintext},
		Payload: "hello",
	})

	statuses, err := r.Inventory(context.Background(), "finn")
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	present := map[string]int{}
	for _, s := range statuses {
		if s.Present {
			present[s.Key.String()] = s.Size
		}
	}
	assert.Equal(t, map[string]int{"dashboard:finn:public:plaintext": 5}, present)
}
