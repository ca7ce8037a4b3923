// Package app wires the configured components into a running dashboard service.
package app

import (
	"fmt"
	"log/slog"

	"github.com/janwilmake/flaredream.dash/internal/collector"
	"github.com/janwilmake/flaredream.dash/internal/config"
	"github.com/janwilmake/flaredream.dash/internal/dashboard"
	"github.com/janwilmake/flaredream.dash/internal/detector"
	"github.com/janwilmake/flaredream.dash/internal/renderer"
	"github.com/janwilmake/flaredream.dash/internal/storage"
	"github.com/janwilmake/flaredream.dash/internal/storage/memory"
	"github.com/janwilmake/flaredream.dash/internal/storage/postgres"
	"github.com/janwilmake/flaredream.dash/internal/storage/sqlite"
)

// App holds the long-lived components shared by every request
type App struct {
	Store        storage.CacheStore
	Detector     *detector.Detector
	Orchestrator *dashboard.Orchestrator
	Reader       *dashboard.Reader
}

// New builds the application from cfg. The caller owns the returned App and
// must Close it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	limiter := collector.NewRateLimiter(cfg.GitHubMinDelay, logger)
	ghOpts := collector.GitHubOptions{
		ServiceToken: cfg.GitHubToken,
		BaseURL:      cfg.GitHubAPIURL,
		RateLimiter:  limiter,
		Logger:       logger,
	}

	fetcher, err := NewFetcher(cfg, ghOpts, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	contents, err := collector.NewGitHubContents(ghOpts)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize content fetcher: %w", err)
	}
	r, err := renderer.New()
	if err != nil {
		store.Close()
		return nil, err
	}

	det := detector.New(contents,
		detector.WithProbeTimeout(cfg.ProbeTimeout),
		detector.WithLogger(logger),
	)
	orch := dashboard.NewOrchestrator(fetcher, det, r, store,
		dashboard.WithTTL(cfg.CacheTTL),
		dashboard.WithConcurrency(cfg.ProbeConcurrency),
		dashboard.WithRefreshTimeout(cfg.RefreshTimeout),
		dashboard.WithLogger(logger),
	)

	return &App{
		Store:        store,
		Detector:     det,
		Orchestrator: orch,
		Reader:       dashboard.NewReader(store),
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}

// NewStore opens the cache store selected by cfg.StorageType
func NewStore(cfg *config.Config) (storage.CacheStore, error) {
	switch cfg.StorageType {
	case "memory":
		return memory.NewMemoryStorage(), nil
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	case "sqlite", "":
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

// NewFetcher builds the repository list fetcher selected by cfg.FetchSource
func NewFetcher(cfg *config.Config, ghOpts collector.GitHubOptions, logger *slog.Logger) (collector.Fetcher, error) {
	switch cfg.FetchSource {
	case "github":
		return collector.NewGitHubFetcher(ghOpts)
	case "aggregator", "":
		return collector.NewAggregatorFetcher(cfg.AggregatorURL, nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetch source %q", cfg.FetchSource)
	}
}
