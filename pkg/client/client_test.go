package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

func TestGetDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/alice", r.URL.Path)
		assert.Equal(t, "plaintext", r.URL.Query().Get("format"))
		assert.Equal(t, "alice", r.Header.Get("X-Viewer-Login"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("X-Dashboard-Tier", "private")
		_, _ = w.Write([]byte("# alice's repositories"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithViewer("alice", "tok"))
	page, err := c.GetDashboard(context.Background(), "alice", domain.FormatPlaintext)
	require.NoError(t, err)
	assert.Equal(t, domain.TierPrivate, page.Tier)
	assert.Equal(t, "# alice's repositories", page.Content)
}

func TestGetDashboard_NotGenerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-Viewer-Login"))
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_GENERATED","message":"trigger a refresh"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetDashboard(context.Background(), "bob", domain.FormatMarkup)
	require.Error(t, err)
	assert.True(t, IsNotGenerated(err))
	assert.Contains(t, err.Error(), "404")
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/dashboard/bob/refresh", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"refresh_id":"r1","username":"bob","tier":"public","public_count":2,"keys":["dashboard:bob:public:markup","dashboard:bob:public:plaintext"]}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL).Refresh(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "r1", res.RefreshID)
	assert.Equal(t, 2, res.PublicCount)
	assert.Len(t, res.Keys, 2)
}

func TestRefresh_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Refresh(context.Background(), "bob")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.False(t, IsNotGenerated(err))
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewClient(srv.URL).HealthCheck(context.Background()))
}
