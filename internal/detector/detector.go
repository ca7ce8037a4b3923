// Package detector finds and parses a repository's worker deployment config.
package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/collector"
	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// Format identifies how a candidate file is parsed
type Format int

const (
	FormatTOML Format = iota
	FormatJSON
	FormatJSONC
)

// Candidate is one config file name probed for, with its parse format
type Candidate struct {
	Path   string
	Format Format
}

// DefaultCandidates is the probe order; the first file found and parsed wins.
var DefaultCandidates = []Candidate{
	{Path: "wrangler.toml", Format: FormatTOML},
	{Path: "wrangler.json", Format: FormatJSON},
	{Path: "wrangler.jsonc", Format: FormatJSONC},
}

// Detector probes repositories for a deploy config
type Detector struct {
	contents   collector.ContentFetcher
	candidates []Candidate
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithCandidates replaces the probe list
func WithCandidates(candidates []Candidate) Option {
	return func(d *Detector) {
		d.candidates = append([]Candidate(nil), candidates...)
	}
}

// WithProbeTimeout bounds every individual content request
func WithProbeTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.timeout = timeout
	}
}

// WithLogger sets the logger used for probe diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// New creates a Detector reading files through contents
func New(contents collector.ContentFetcher, opts ...Option) *Detector {
	d := &Detector{
		contents:   contents,
		candidates: DefaultCandidates,
		timeout:    5 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the deploy config of repo, or nil when no candidate is present
// and parseable. Misses, timeouts, transport errors and parse errors all move on
// to the next candidate; none of them fail the detection.
func (d *Detector) Detect(ctx context.Context, repo *domain.Repository, credential string) *domain.DeployConfig {
	it := newCandidateIterator(d.candidates)
	for c, ok := it.Next(); ok; c, ok = it.Next() {
		if ctx.Err() != nil {
			return nil
		}

		data, err := d.fetch(ctx, repo, c.Path, credential)
		if err != nil {
			d.logger.Debug("config probe miss", "repo", repo.FullName(), "path", c.Path, "error", err)
			continue
		}

		cfg, err := Parse(c, data)
		if err != nil {
			d.logger.Debug("config parse failed", "repo", repo.FullName(), "path", c.Path, "error", err)
			continue
		}
		return cfg
	}
	return nil
}

func (d *Detector) fetch(ctx context.Context, repo *domain.Repository, path, credential string) ([]byte, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.contents.FetchFile(ctx, repo, path, credential)
}

// candidateIterator yields candidates in order, once each
type candidateIterator struct {
	candidates []Candidate
	pos        int
}

func newCandidateIterator(candidates []Candidate) *candidateIterator {
	return &candidateIterator{candidates: candidates}
}

// Next returns the next candidate, or false when the list is exhausted
func (it *candidateIterator) Next() (Candidate, bool) {
	if it.pos >= len(it.candidates) {
		return Candidate{}, false
	}
	c := it.candidates[it.pos]
	it.pos++
	return c, true
}
