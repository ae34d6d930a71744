// Package ratelimit paces outbound directory calls with a per-guild
// token bucket. The pacing is advisory: it spreads sweep and provision
// batches out so the remote platform's own limiter is rarely hit, but
// correctness never depends on it.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer manages per-guild rate limiting. Each guild gets its own
// independent token bucket.
type Pacer struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a pacer allowing rps operations per second per guild with
// the given burst.
func New(rps float64, burst int) *Pacer {
	return &Pacer{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until an operation for the guild is allowed or the
// context is canceled.
func (p *Pacer) Wait(ctx context.Context, guildID string) error {
	return p.getLimiter(guildID).Wait(ctx)
}

// getLimiter returns the limiter for a guild, creating one if needed.
func (p *Pacer) getLimiter(guildID string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[guildID]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if limiter, exists = p.limiters[guildID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(p.limit, p.burst)
	p.limiters[guildID] = limiter
	return limiter
}
