package fetcher

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Pacer spaces upstream calls with a token bucket. Sustained rate limiting
// triggers a run-wide slowdown instead of immediate re-retries: Slowdown
// halves the rate down to a floor. A Pacer lives for one run and is passed
// in explicitly, never shared across runs.
type Pacer struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rps     float64
	floor   float64
}

// NewPacer creates a pacer allowing rps calls per second with the given burst.
func NewPacer(rps float64, burst int) *Pacer {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		rps:     rps,
		floor:   rps / 8,
	}
}

// Wait blocks until the next call is allowed or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Slowdown halves the allowed rate, flooring at an eighth of the initial
// rate. Called whenever the provider answers with a rate limit.
func (p *Pacer) Slowdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.rps / 2
	if next < p.floor {
		next = p.floor
	}
	if next == p.rps {
		return
	}
	p.rps = next
	p.limiter.SetLimit(rate.Limit(next))
	log.Warn().Float64("rate_per_sec", next).Msg("provider rate limited, slowing down run-wide pacing")
}

// Rate returns the current allowed calls per second.
func (p *Pacer) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rps
}
