package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
)

// GitHubOptions configures the GitHub-backed collectors
type GitHubOptions struct {
	// ServiceToken is used when the caller supplies no credential
	ServiceToken string
	// BaseURL overrides the API root (GitHub Enterprise, tests)
	BaseURL     string
	RateLimiter RateLimiter
	Logger      *slog.Logger
}

// githubClients builds go-github clients authenticated per call
type githubClients struct {
	serviceToken string
	baseURL      *url.URL
	rateLimiter  RateLimiter
	logger       *slog.Logger
}

func newGitHubClients(opts GitHubOptions) (*githubClients, error) {
	g := &githubClients{
		serviceToken: opts.ServiceToken,
		rateLimiter:  opts.RateLimiter,
		logger:       opts.Logger,
	}
	if g.rateLimiter == nil {
		g.rateLimiter = NewRateLimiter(0, opts.Logger)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL: %w", err)
		}
		g.baseURL = u
	}
	return g, nil
}

// client returns a client authenticated with credential, or with the service token
func (g *githubClients) client(credential string) *github.Client {
	token := credential
	if token == "" {
		token = g.serviceToken
	}

	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(hc)
	if g.baseURL != nil {
		client.BaseURL = g.baseURL
	}
	return client
}

// updateRateLimitFromResponse updates the rate limiter from API response
func (g *githubClients) updateRateLimitFromResponse(resp *github.Response) {
	if resp != nil && resp.Rate.Limit > 0 && resp.Rate.Remaining >= 0 {
		g.rateLimiter.Observe(resp.Rate.Remaining, resp.Rate.Reset.Time)
	}
}

// githubFetcher implements Fetcher using the GitHub REST API
type githubFetcher struct {
	clients *githubClients
}

// NewGitHubFetcher creates a Fetcher that lists repositories through the GitHub API.
// With a credential it lists the authenticated user's own repositories, including private ones.
func NewGitHubFetcher(opts GitHubOptions) (Fetcher, error) {
	clients, err := newGitHubClients(opts)
	if err != nil {
		return nil, err
	}
	return &githubFetcher{clients: clients}, nil
}

// FetchRepositories retrieves all repositories owned by username
func (f *githubFetcher) FetchRepositories(ctx context.Context, username, credential string) (*domain.FetchResult, error) {
	client := f.clients.client(credential)

	user := username
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if credential != "" {
		if err := f.checkTokenOwner(ctx, client, username); err != nil {
			return nil, err
		}
		// /user/repos includes private repositories of the token owner
		user = ""
		opts.Affiliation = "owner"
	} else {
		opts.Type = "owner"
	}

	result := &domain.FetchResult{}
	for {
		if err := f.clients.rateLimiter.Wait(ctx); err != nil {
			return nil, apperrors.NewUpstreamFetchError("rate limiter wait aborted", err)
		}

		repos, resp, err := client.Repositories.List(ctx, user, opts)
		if err != nil {
			return nil, apperrors.NewUpstreamFetchError(fmt.Sprintf("failed to list repositories for %s", username), err)
		}

		f.clients.updateRateLimitFromResponse(resp)

		for _, repo := range repos {
			result.Repositories = append(result.Repositories, convertRepository(repo, username))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	f.clients.logger.Debug("listed repositories from github", "username", username,
		"count", len(result.Repositories), "authenticated", credential != "")
	return result, nil
}

// checkTokenOwner rejects a credential that authenticates someone other than username
func (f *githubFetcher) checkTokenOwner(ctx context.Context, client *github.Client, username string) error {
	if err := f.clients.rateLimiter.Wait(ctx); err != nil {
		return apperrors.NewUpstreamFetchError("rate limiter wait aborted", err)
	}
	me, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		return apperrors.NewUpstreamFetchError("failed to resolve credential owner", err)
	}
	f.clients.updateRateLimitFromResponse(resp)

	if !strings.EqualFold(me.GetLogin(), username) {
		f.clients.logger.Warn("credential owner mismatch", "username", username, "login", me.GetLogin())
		return apperrors.NewBadRequestError(fmt.Sprintf("credential does not belong to %s", username))
	}
	return nil
}

func convertRepository(repo *github.Repository, username string) *domain.Repository {
	owner := repo.GetOwner().GetLogin()
	if owner == "" {
		owner = username
	}
	return &domain.Repository{
		Owner:         owner,
		Name:          repo.GetName(),
		Description:   optionalString(repo.Description),
		URL:           repo.GetHTMLURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		CreatedAt:     repo.GetCreatedAt().Time.UTC(),
		UpdatedAt:     repo.GetUpdatedAt().Time.UTC(),
		Topics:        append([]string(nil), repo.Topics...),
		Archived:      repo.GetArchived(),
		Private:       repo.GetPrivate(),
		Homepage:      optionalString(repo.Homepage),
		Stars:         repo.GetStargazersCount(),
		Watchers:      repo.GetWatchersCount(),
		Forks:         repo.GetForksCount(),
		OpenIssues:    repo.GetOpenIssuesCount(),
		Size:          int64(repo.GetSize()),
		Language:      optionalString(repo.Language),
	}
}

// githubContents implements ContentFetcher using the contents API
type githubContents struct {
	clients *githubClients
}

// NewGitHubContents creates a ContentFetcher backed by GET /repos/{owner}/{repo}/contents/{path}
func NewGitHubContents(opts GitHubOptions) (ContentFetcher, error) {
	clients, err := newGitHubClients(opts)
	if err != nil {
		return nil, err
	}
	return &githubContents{clients: clients}, nil
}

// FetchFile returns the decoded content of path on the repository's default branch
func (c *githubContents) FetchFile(ctx context.Context, repo *domain.Repository, path, credential string) ([]byte, error) {
	if err := c.clients.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	client := c.clients.client(credential)
	file, _, resp, err := client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, nil)
	c.clients.updateRateLimitFromResponse(resp)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, apperrors.NewNotFoundError(repo.FullName() + "/" + path)
		}
		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			c.clients.rateLimiter.Observe(0, rateErr.Rate.Reset.Time)
			return nil, apperrors.NewRateLimitedError(fmt.Sprintf("rate limited reading %s from %s", path, repo.FullName()))
		}
		return nil, fmt.Errorf("failed to get %s from %s: %w", path, repo.FullName(), err)
	}
	if file == nil {
		// path resolved to a directory
		return nil, apperrors.NewNotFoundError(repo.FullName() + "/" + path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s from %s: %w", path, repo.FullName(), err)
	}
	return []byte(content), nil
}
