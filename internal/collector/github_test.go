package collector

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
)

func newGitHubServer(t *testing.T) (*httptest.Server, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, mux
}

func TestGitHubFetcher_Anonymous(t *testing.T) {
	server, mux := newGitHubServer(t)
	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "owner", r.URL.Query().Get("type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"svc","owner":{"login":"alice"},"html_url":"https://github.com/alice/svc",
			"private":false,"stargazers_count":3,"size":42,"topics":["edge"],"created_at":"2024-01-01T00:00:00Z"}]`))
	})

	f, err := NewGitHubFetcher(GitHubOptions{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := f.FetchRepositories(context.Background(), "alice", "")
	require.NoError(t, err)
	require.Len(t, result.Repositories, 1)

	repo := result.Repositories[0]
	assert.Equal(t, "alice/svc", repo.FullName())
	assert.Equal(t, 3, repo.Stars)
	assert.Equal(t, int64(42), repo.Size)
	assert.Equal(t, []string{"edge"}, repo.Topics)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), repo.CreatedAt)
}

func TestGitHubFetcher_AuthenticatedListsOwnRepos(t *testing.T) {
	server, mux := newGitHubServer(t)
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"login":"Bob"}`))
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "owner", r.URL.Query().Get("affiliation"))
		_, _ = w.Write([]byte(`[{"name":"a","owner":{"login":"bob"}},{"name":"b","owner":{"login":"bob"},"private":true}]`))
	})

	f, err := NewGitHubFetcher(GitHubOptions{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := f.FetchRepositories(context.Background(), "bob", "tok")
	require.NoError(t, err)
	require.Len(t, result.Repositories, 2)
	assert.True(t, result.Repositories[1].Private, "fetcher must not filter private repositories")
}

func TestGitHubFetcher_RejectsCredentialOfAnotherAccount(t *testing.T) {
	server, mux := newGitHubServer(t)
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"login":"mallory"}`))
	})
	var listed atomic.Bool
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		listed.Store(true)
		_, _ = w.Write([]byte(`[{"name":"secret","owner":{"login":"mallory"},"private":true}]`))
	})

	f, err := NewGitHubFetcher(GitHubOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = f.FetchRepositories(context.Background(), "bob", "tok")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
	assert.False(t, listed.Load())
}

func TestGitHubFetcher_UpstreamError(t *testing.T) {
	server, mux := newGitHubServer(t)
	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f, err := NewGitHubFetcher(GitHubOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = f.FetchRepositories(context.Background(), "alice", "")
	assert.True(t, apperrors.IsUpstreamFetch(err))
}

func TestGitHubContents_FetchFile(t *testing.T) {
	server, mux := newGitHubServer(t)
	mux.HandleFunc("/repos/alice/svc/contents/wrangler.toml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		content := base64.StdEncoding.EncodeToString([]byte("name = \"svc\"\n"))
		_, _ = fmt.Fprintf(w, `{"type":"file","encoding":"base64","name":"wrangler.toml","path":"wrangler.toml","content":%q}`, content)
	})
	mux.HandleFunc("/repos/alice/svc/contents/wrangler.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	c, err := NewGitHubContents(GitHubOptions{BaseURL: server.URL, ServiceToken: "service"})
	require.NoError(t, err)
	repo := &domain.Repository{Owner: "alice", Name: "svc"}

	data, err := c.FetchFile(context.Background(), repo, "wrangler.toml", "")
	require.NoError(t, err)
	assert.Equal(t, "name = \"svc\"\n", string(data))

	_, err = c.FetchFile(context.Background(), repo, "wrangler.json", "")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGitHubContents_RateLimited(t *testing.T) {
	server, mux := newGitHubServer(t)
	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	mux.HandleFunc("/repos/alice/svc/contents/wrangler.toml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	})

	limiter := NewRateLimiter(0, nil)
	c, err := NewGitHubContents(GitHubOptions{BaseURL: server.URL, RateLimiter: limiter})
	require.NoError(t, err)

	_, err = c.FetchFile(context.Background(), &domain.Repository{Owner: "alice", Name: "svc"}, "wrangler.toml", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimited(err))

	remaining, gotReset := limiter.Quota()
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.Equal(gotReset))
}

func TestRateLimiter_ObserveAndQuota(t *testing.T) {
	rl := NewRateLimiter(0, nil)
	reset := time.Now().Add(time.Minute)
	rl.Observe(4000, reset)

	require.NoError(t, rl.Wait(context.Background()))
	remaining, gotReset := rl.Quota()
	assert.Equal(t, 3999, remaining, "each call spends one unit of quota")
	assert.Equal(t, reset, gotReset)
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(0, nil)
	rl.Observe(0, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_SpacesConcurrentCallers(t *testing.T) {
	const delay = 20 * time.Millisecond
	rl := NewRateLimiter(delay, nil)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rl.Wait(context.Background()))
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 3*delay)
}

func TestRateLimiter_ResumesAfterReset(t *testing.T) {
	rl := NewRateLimiter(0, nil)
	rl.Observe(0, time.Now().Add(15*time.Millisecond))

	require.NoError(t, rl.Wait(context.Background()))
	remaining, _ := rl.Quota()
	assert.Greater(t, remaining, 1000)
}
