package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
)

func TestAggregatorFetcher_BareArray(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"owner":{"login":"alice"},"name":"svc","description":"a worker","html_url":"https://github.com/alice/svc",
			 "default_branch":"main","created_at":"2024-01-02T03:04:05Z","updated_at":"2024-02-03T04:05:06Z",
			 "topics":["cloudflare","workers"],"private":false,"homepage":"","stargazers_count":7,"language":"TypeScript"},
			{"full_name":"alice/notes","name":"notes","private":true},
			{"description":"no name, rejected"}
		]`))
	}))
	t.Cleanup(server.Close)

	f := NewAggregatorFetcher(server.URL+"/repos/", nil, nil)
	result, err := f.FetchRepositories(context.Background(), "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, "/repos/alice", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	require.Len(t, result.Repositories, 2)

	svc := result.Repositories[0]
	assert.Equal(t, "alice", svc.Owner)
	assert.Equal(t, "svc", svc.Name)
	require.NotNil(t, svc.Description)
	assert.Equal(t, "a worker", *svc.Description)
	assert.Nil(t, svc.Homepage, "blank homepage collapses to absent")
	assert.Equal(t, []string{"cloudflare", "workers"}, svc.Topics)
	assert.Equal(t, 7, svc.Stars)
	assert.Equal(t, 2024, svc.CreatedAt.Year())

	notes := result.Repositories[1]
	assert.Equal(t, "alice", notes.Owner)
	assert.True(t, notes.Private)
	assert.Equal(t, "https://github.com/alice/notes", notes.URL)
	assert.Equal(t, "main", notes.DefaultBranch)
	assert.Nil(t, notes.Language)
}

func TestAggregatorFetcher_CompositeWithLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"repositories":[{"name":"svc","owner":{"login":"bob"}}],
			"lists":[{"name":"favorites","repos":["bob/svc"]},{"name":"","repos":["bob/x"]}]
		}`))
	}))
	t.Cleanup(server.Close)

	f := NewAggregatorFetcher(server.URL, nil, nil)
	result, err := f.FetchRepositories(context.Background(), "bob", "")
	require.NoError(t, err)

	require.Len(t, result.Repositories, 1)
	require.Len(t, result.Lists, 1)
	assert.Equal(t, "favorites", result.Lists[0].Name)
	assert.Equal(t, []string{"bob/svc"}, result.Lists[0].Repos)
}

func TestAggregatorFetcher_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `{"error":"down"}`},
		{"not found", http.StatusNotFound, ``},
		{"malformed", http.StatusOK, `"just a string"`},
		{"empty", http.StatusOK, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			f := NewAggregatorFetcher(server.URL, nil, nil)
			_, err := f.FetchRepositories(context.Background(), "alice", "")
			require.Error(t, err)
			assert.True(t, apperrors.IsUpstreamFetch(err), "got %v", err)
		})
	}
}

func TestAggregatorFetcher_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	f := NewAggregatorFetcher(url, nil, nil)
	_, err := f.FetchRepositories(context.Background(), "alice", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamFetch(err))
}
