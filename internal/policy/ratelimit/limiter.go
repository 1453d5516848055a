// Package ratelimit paces catalog requests with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Config holds pacer configuration.
type Config struct {
	// Pause is the minimum spacing between requests; zero disables pacing.
	Pause time.Duration
	// Burst is the number of requests allowed back to back (default 1).
	Burst int
	// OnDelay, when set, receives every wait that actually blocked.
	OnDelay func(time.Duration)
}

// Pacer implements crawler.Pacer. All workers of a crawl share one bucket
// since they all hit the same catalog host.
type Pacer struct {
	limiter *rate.Limiter
	onDelay func(time.Duration)
}

// New creates a Pacer.
func New(cfg Config) *Pacer {
	limit := rate.Inf
	if cfg.Pause > 0 {
		limit = rate.Every(cfg.Pause)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, burst),
		onDelay: cfg.OnDelay,
	}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if p.onDelay != nil {
		if waited := time.Since(start); waited > time.Millisecond {
			p.onDelay(waited)
		}
	}
	return nil
}
