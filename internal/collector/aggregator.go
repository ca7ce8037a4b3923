package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
)

const maxAggregatorBody = 32 << 20

// aggregatorFetcher implements Fetcher against the repository aggregation endpoint
type aggregatorFetcher struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAggregatorFetcher creates a fetcher that calls GET {baseURL}/{username}
func NewAggregatorFetcher(baseURL string, httpClient *http.Client, logger *slog.Logger) Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &aggregatorFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchRepositories retrieves the repository list for username
func (f *aggregatorFetcher) FetchRepositories(ctx context.Context, username, credential string) (*domain.FetchResult, error) {
	endpoint := f.baseURL + "/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError("failed to build aggregation request", err)
	}
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError("aggregation request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAggregatorBody))
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError("failed to read aggregation response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewUpstreamFetchError(
			fmt.Sprintf("aggregation endpoint returned %d for %s", resp.StatusCode, username), nil)
	}

	result, err := decodeAggregation(body, username)
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError("malformed aggregation response", err)
	}

	f.logger.Debug("fetched repositories", "username", username,
		"count", len(result.Repositories), "lists", len(result.Lists), "authenticated", credential != "")
	return result, nil
}

// Wire schema of the aggregation endpoint. Optional fields are pointers so absence
// stays distinguishable from empty values.
type wireOwner struct {
	Login string `json:"login"`
}

type wireRepository struct {
	Owner           *wireOwner `json:"owner"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     *string    `json:"description"`
	HTMLURL         string     `json:"html_url"`
	DefaultBranch   string     `json:"default_branch"`
	CreatedAt       *string    `json:"created_at"`
	UpdatedAt       *string    `json:"updated_at"`
	Topics          []string   `json:"topics"`
	Archived        bool       `json:"archived"`
	Private         bool       `json:"private"`
	Homepage        *string    `json:"homepage"`
	StargazersCount int        `json:"stargazers_count"`
	WatchersCount   int        `json:"watchers_count"`
	ForksCount      int        `json:"forks_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	Size            int64      `json:"size"`
	Language        *string    `json:"language"`
}

type wireList struct {
	Name  string   `json:"name"`
	Repos []string `json:"repos"`
}

type wireComposite struct {
	Repositories []wireRepository `json:"repositories"`
	Repos        []wireRepository `json:"repos"`
	Lists        []wireList       `json:"lists"`
}

// decodeAggregation accepts either a bare array of repositories or a composite
// object carrying the array alongside list metadata.
func decodeAggregation(body []byte, username string) (*domain.FetchResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	var wires []wireRepository
	var lists []wireList
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &wires); err != nil {
			return nil, err
		}
	case '{':
		var composite wireComposite
		if err := json.Unmarshal(trimmed, &composite); err != nil {
			return nil, err
		}
		wires = composite.Repositories
		if wires == nil {
			wires = composite.Repos
		}
		lists = composite.Lists
	default:
		return nil, fmt.Errorf("unexpected payload starting with %q", trimmed[0])
	}

	result := &domain.FetchResult{}
	for i := range wires {
		if repo := wires[i].toDomain(username); repo != nil {
			result.Repositories = append(result.Repositories, repo)
		}
	}
	for _, l := range lists {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		result.Lists = append(result.Lists, domain.RepoList{Name: l.Name, Repos: append([]string(nil), l.Repos...)})
	}
	return result, nil
}

// toDomain converts a wire record; records without a name are rejected (nil)
func (w *wireRepository) toDomain(username string) *domain.Repository {
	name := strings.TrimSpace(w.Name)
	if name == "" {
		return nil
	}

	owner := username
	switch {
	case w.Owner != nil && w.Owner.Login != "":
		owner = w.Owner.Login
	case strings.Contains(w.FullName, "/"):
		owner = strings.SplitN(w.FullName, "/", 2)[0]
	}

	htmlURL := w.HTMLURL
	if htmlURL == "" {
		htmlURL = "https://github.com/" + owner + "/" + name
	}
	branch := w.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	return &domain.Repository{
		Owner:         owner,
		Name:          name,
		Description:   optionalString(w.Description),
		URL:           htmlURL,
		DefaultBranch: branch,
		CreatedAt:     parseTimestamp(w.CreatedAt),
		UpdatedAt:     parseTimestamp(w.UpdatedAt),
		Topics:        append([]string(nil), w.Topics...),
		Archived:      w.Archived,
		Private:       w.Private,
		Homepage:      optionalString(w.Homepage),
		Stars:         w.StargazersCount,
		Watchers:      w.WatchersCount,
		Forks:         w.ForksCount,
		OpenIssues:    w.OpenIssuesCount,
		Size:          w.Size,
		Language:      optionalString(w.Language),
	}
}

// optionalString collapses blank strings to nil
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func parseTimestamp(s *string) time.Time {
	if s == nil || *s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
