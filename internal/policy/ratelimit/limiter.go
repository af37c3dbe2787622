// Package ratelimit paces outbound catalog calls with per-endpoint token
// buckets.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/binbuddy/internal/metrics"
)

// Config holds rate limiter configuration. Rates are requests per minute;
// zero or negative means unlimited.
type Config struct {
	DefaultPerMinute int
	// Endpoints overrides the default rate per endpoint name.
	Endpoints map[string]int
	Burst     int
}

// Limiter manages per-endpoint rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cfg      Config
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		cfg:      cfg,
	}
}

// Wait blocks until a token is available for endpoint, respecting the context.
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	limiter := l.limiterFor(endpoint)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(endpoint, waited)
	}
	return nil
}

func (l *Limiter) limiterFor(endpoint string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[endpoint]; ok {
		return limiter
	}
	perMinute := l.cfg.DefaultPerMinute
	if v, ok := l.cfg.Endpoints[endpoint]; ok {
		perMinute = v
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	limiter := rate.NewLimiter(limit, l.cfg.Burst)
	l.limiters[endpoint] = limiter
	return limiter
}
