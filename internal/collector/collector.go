package collector

import (
	"context"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// Fetcher retrieves the full repository list for a username. When credential is
// non-empty the upstream is expected to include private repositories. Fetchers
// never filter by privacy and never retry.
type Fetcher interface {
	FetchRepositories(ctx context.Context, username, credential string) (*domain.FetchResult, error)
}

// ContentFetcher retrieves raw file content from a repository. A missing file is
// reported as an errors.ErrCodeNotFound AppError.
type ContentFetcher interface {
	FetchFile(ctx context.Context, repo *domain.Repository, path, credential string) ([]byte, error)
}
