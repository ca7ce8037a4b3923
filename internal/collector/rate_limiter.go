package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQuota = 5000 // requests per hour for an authenticated GitHub client
	quotaReserve = 10
)

// RateLimiter paces GitHub API calls. Probes of many repositories share one
// limiter, so Wait must be safe for concurrent use.
type RateLimiter interface {
	Wait(ctx context.Context) error
	Quota() (remaining int, reset time.Time)
	Observe(remaining int, reset time.Time)
}

// quotaLimiter spaces calls by minDelay and, when the observed quota is nearly
// spent, holds every caller until the quota resets
type quotaLimiter struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	minDelay  time.Duration
	next      time.Time // earliest start of the next call
	logger    *slog.Logger
}

// NewRateLimiter creates a limiter enforcing minDelay between calls
func NewRateLimiter(minDelay time.Duration, logger *slog.Logger) RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &quotaLimiter{
		remaining: defaultQuota,
		reset:     time.Now().Add(time.Hour),
		minDelay:  minDelay,
		logger:    logger,
	}
}

// Wait blocks until the caller's reserved slot starts or ctx ends
func (l *quotaLimiter) Wait(ctx context.Context) error {
	start := l.reserve()
	d := time.Until(start)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve books the next call slot and returns its start time
func (l *quotaLimiter) reserve() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	start := now
	if l.next.After(start) {
		start = l.next
	}

	if l.remaining <= quotaReserve {
		if l.reset.After(start) {
			l.logger.Warn("github quota nearly spent, waiting for reset",
				"remaining", l.remaining, "wait", l.reset.Sub(now).Round(time.Second))
			start = l.reset
		}
		// assume a fresh quota once the reset has passed
		l.remaining = defaultQuota
		l.reset = start.Add(time.Hour)
	}
	l.remaining--

	l.next = start.Add(l.minDelay)
	return start
}

// Quota returns the last observed quota
func (l *quotaLimiter) Quota() (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining, l.reset
}

// Observe records the quota reported by an API response
func (l *quotaLimiter) Observe(remaining int, reset time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining = remaining
	l.reset = reset
}
