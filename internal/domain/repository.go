package domain

import "time"

// Repository represents a GitHub repository as returned by the upstream fetch
type Repository struct {
	Owner         string
	Name          string
	Description   *string
	URL           string
	DefaultBranch string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Topics        []string
	Archived      bool
	Private       bool
	Homepage      *string
	Stars         int
	Watchers      int
	Forks         int
	OpenIssues    int
	Size          int64
	Language      *string
}

// FullName returns "owner/name"
func (r *Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// RepoList is a named collection of repositories ("owner/name") attached to a fetch result
type RepoList struct {
	Name  string
	Repos []string
}

// FetchResult is the raw, unfiltered upstream response for one username
type FetchResult struct {
	Repositories []*Repository
	Lists        []RepoList
}
