package domain

import (
	"strings"
	"time"
)

// Tier is the visibility tier a snapshot or cache entry belongs to
type Tier string

const (
	TierPublic  Tier = "public"
	TierPrivate Tier = "private"
)

// Format is the output format of a rendered dashboard
type Format string

const (
	FormatMarkup    Format = "markup"
	FormatPlaintext Format = "plaintext"
)

// Formats lists every output format in write order
var Formats = []Format{FormatMarkup, FormatPlaintext}

// ParseFormat maps user input to a Format, defaulting to markup
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "plaintext", "plain", "text", "txt", "md", "markdown":
		return FormatPlaintext
	default:
		return FormatMarkup
	}
}

// Viewer is the authenticated identity making a request. A nil *Viewer is anonymous.
type Viewer struct {
	Login      string
	Credential string
}

// SnapshotRepository is a repository optionally annotated with its deploy config
type SnapshotRepository struct {
	Repository
	Deploy *DeployConfig
}

// Snapshot is the repository set rendered for one username and tier
type Snapshot struct {
	Username     string
	GeneratedAt  time.Time
	Tier         Tier
	Repositories []SnapshotRepository
	Lists        []RepoList
}

// HasPrivate reports whether any contained repository is private
func (s *Snapshot) HasPrivate() bool {
	for i := range s.Repositories {
		if s.Repositories[i].Private {
			return true
		}
	}
	return false
}
