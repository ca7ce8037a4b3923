// Package dashboard regenerates cached dashboards and serves them back.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/janwilmake/flaredream.dash/internal/collector"
	"github.com/janwilmake/flaredream.dash/internal/domain"
	apperrors "github.com/janwilmake/flaredream.dash/internal/errors"
	"github.com/janwilmake/flaredream.dash/internal/renderer"
	"github.com/janwilmake/flaredream.dash/internal/storage"
	"github.com/janwilmake/flaredream.dash/internal/visibility"
)

const (
	DefaultTTL            = 24 * time.Hour
	DefaultConcurrency    = 6
	DefaultRefreshTimeout = 2 * time.Minute
)

// ConfigDetector finds the deploy config of one repository, or nil
type ConfigDetector interface {
	Detect(ctx context.Context, repo *domain.Repository, credential string) *domain.DeployConfig
}

// Renderer turns a snapshot into its rendered forms
type Renderer interface {
	Render(username, viewer string, snap *domain.Snapshot) (*renderer.Output, error)
}

// Result describes a completed refresh
type Result struct {
	RefreshID    string
	Username     string
	Tier         domain.Tier
	GeneratedAt  time.Time
	PublicCount  int
	PrivateCount int
	Deployable   int
	Keys         []domain.CacheKey
}

// Orchestrator performs refreshes: fetch, detect, render, then write every
// artifact of the refresh in one atomic cache write
type Orchestrator struct {
	fetcher     collector.Fetcher
	detector    ConfigDetector
	renderer    Renderer
	store       storage.CacheStore
	ttl         time.Duration
	concurrency int
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
	group       singleflight.Group
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithTTL sets how long written entries stay readable
func WithTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.ttl = ttl
	}
}

// WithConcurrency caps the number of repositories probed at once
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// WithRefreshTimeout bounds one shared refresh, independent of its callers
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// WithClock overrides the clock stamped into snapshots
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(fetcher collector.Fetcher, detector ConfigDetector, r Renderer, store storage.CacheStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		detector:    detector,
		renderer:    r,
		store:       store,
		ttl:         DefaultTTL,
		concurrency: DefaultConcurrency,
		timeout:     DefaultRefreshTimeout,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.timeout <= 0 {
		o.timeout = DefaultRefreshTimeout
	}
	return o
}

// Refresh regenerates the dashboards of username on behalf of viewer. The public
// tier is always written; the private tier only when viewer owns username and
// presented a credential. On any error the cache is left exactly as it was.
//
// Concurrent refreshes for the same username and tier share one execution. The
// shared work is detached from every caller's cancellation and bounded by the
// refresh timeout instead; a caller whose ctx ends stops waiting, the others
// still receive the result.
func (o *Orchestrator) Refresh(ctx context.Context, username string, viewer *domain.Viewer) (*Result, error) {
	username = domain.NormalizeUsername(username)
	if username == "" {
		return nil, apperrors.NewBadRequestError("username is required")
	}
	res := visibility.Resolve(viewer, username)

	key := username + ":" + string(res.ReadTier())
	ch := o.group.DoChan(key, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
		defer cancel()
		return o.refresh(rctx, username, res)
	})

	select {
	case <-ctx.Done():
		o.logger.Debug("refresh caller gone", "username", username, "tier", res.ReadTier())
		return nil, apperrors.NewInternalError("refresh abandoned by caller", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			o.logger.Debug("refresh coalesced", "username", username, "tier", res.ReadTier())
		}
		return r.Val.(*Result), nil
	}
}

func (o *Orchestrator) refresh(ctx context.Context, username string, res visibility.Resolution) (*Result, error) {
	refreshID := uuid.New().String()
	logger := o.logger.With("refresh_id", refreshID, "username", username)
	started := time.Now()

	credential := ""
	if res.UseCredential {
		credential = res.Credential
	}

	fetched, err := o.fetcher.FetchRepositories(ctx, username, credential)
	if err != nil {
		logger.Warn("repository fetch failed", "error", err)
		if apperrors.CodeOf(err) == "" {
			err = apperrors.NewUpstreamFetchError(fmt.Sprintf("failed to fetch repositories for %s", username), err)
		}
		return nil, err
	}

	repos := fetched.Repositories
	deploys := o.detectAll(ctx, repos, credential)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewInternalError("refresh cancelled", err)
	}

	generatedAt := o.now().UTC()
	all := make([]domain.SnapshotRepository, 0, len(repos))
	for i, repo := range repos {
		all = append(all, domain.SnapshotRepository{Repository: *repo, Deploy: deploys[i]})
	}

	public := &domain.Snapshot{
		Username:     username,
		GeneratedAt:  generatedAt,
		Tier:         domain.TierPublic,
		Repositories: publicOnly(all),
		Lists:        fetched.Lists,
	}
	snapshots := []snapshotFor{{snap: public}}

	result := &Result{
		RefreshID:   refreshID,
		Username:    username,
		Tier:        domain.TierPublic,
		GeneratedAt: generatedAt,
		PublicCount: len(public.Repositories),
		Deployable:  countDeployable(public.Repositories),
	}

	if res.UseCredential {
		private := &domain.Snapshot{
			Username:     username,
			GeneratedAt:  generatedAt,
			Tier:         domain.TierPrivate,
			Repositories: all,
			Lists:        fetched.Lists,
		}
		snapshots = append(snapshots, snapshotFor{snap: private, viewer: username})
		result.Tier = domain.TierPrivate
		result.PrivateCount = len(all)
		result.Deployable = countDeployable(all)
	}

	if err := checkTiers(snapshots); err != nil {
		logger.Error("tier check failed", "error", err)
		return nil, err
	}

	var entries []domain.CacheEntry
	for _, s := range snapshots {
		out, err := o.renderer.Render(username, s.viewer, s.snap)
		if err != nil {
			logger.Error("render failed", "tier", s.snap.Tier, "error", err)
			return nil, apperrors.NewInternalError("failed to render dashboard", err)
		}
		for _, key := range domain.KeysFor(username, s.snap.Tier) {
			entries = append(entries, domain.CacheEntry{Key: key, Payload: out.Get(key.Format)})
			result.Keys = append(result.Keys, key)
		}
	}

	if err := o.store.PutAll(ctx, entries, o.ttl); err != nil {
		logger.Error("cache write failed", "entries", len(entries), "error", err)
		return nil, apperrors.NewCacheWriteError(fmt.Sprintf("failed to store dashboards for %s", username), err)
	}

	logger.Info("refresh complete",
		"tier", result.Tier,
		"public", result.PublicCount,
		"private", result.PrivateCount,
		"deployable", result.Deployable,
		"duration", time.Since(started),
	)
	return result, nil
}

// snapshotFor pairs a snapshot with the viewer it is rendered for. Public pages
// are rendered for nobody in particular so they never depend on who refreshed.
type snapshotFor struct {
	snap   *domain.Snapshot
	viewer string
}

// checkTiers refuses to write a public snapshot that holds a private repository
func checkTiers(snapshots []snapshotFor) error {
	for _, s := range snapshots {
		if s.snap.Tier == domain.TierPublic && s.snap.HasPrivate() {
			return apperrors.NewInternalError(
				fmt.Sprintf("public snapshot for %s contains a private repository", s.snap.Username), nil)
		}
	}
	return nil
}

// detectAll probes every repository with at most o.concurrency probes in flight.
// The result is index-aligned with repos.
func (o *Orchestrator) detectAll(ctx context.Context, repos []*domain.Repository, credential string) []*domain.DeployConfig {
	deploys := make([]*domain.DeployConfig, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			deploys[i] = o.detector.Detect(gctx, repo, credential)
			return nil
		})
	}
	_ = g.Wait()

	return deploys
}

func publicOnly(repos []domain.SnapshotRepository) []domain.SnapshotRepository {
	out := make([]domain.SnapshotRepository, 0, len(repos))
	for _, r := range repos {
		if !r.Private {
			out = append(out, r)
		}
	}
	return out
}

func countDeployable(repos []domain.SnapshotRepository) int {
	n := 0
	for _, r := range repos {
		if r.Deploy != nil {
			n++
		}
	}
	return n
}

// String summarises the result for logs and the CLI
func (r *Result) String() string {
	keys := make([]string, 0, len(r.Keys))
	for _, k := range r.Keys {
		keys = append(keys, k.String())
	}
	return fmt.Sprintf("refresh %s: %s (%s tier, %d public, %d private, %d deployable) wrote %s",
		r.RefreshID, r.Username, r.Tier, r.PublicCount, r.PrivateCount, r.Deployable, strings.Join(keys, ", "))
}
