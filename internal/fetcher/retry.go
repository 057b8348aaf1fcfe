package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"ValueSentinel/internal/model"
)

// RetryConfig bounds the retry loop around transient fetch failures.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig returns the retry defaults: 3 attempts, exponential
// backoff starting at one second, capped at 30 seconds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// RetryingFetcher wraps a Fetcher with pacing and a bounded retry loop.
// RateLimited and Timeout failures are retried with exponential backoff and
// jitter; NotFound and MalformedData are terminal for the ticker. Every
// RateLimited answer also slows the shared pacer down.
type RetryingFetcher struct {
	Inner Fetcher
	Pacer *Pacer
	Cfg   RetryConfig
}

// NewRetryingFetcher wraps inner with retry and pacing behavior.
func NewRetryingFetcher(inner Fetcher, pacer *Pacer, cfg RetryConfig) *RetryingFetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &RetryingFetcher{Inner: inner, Pacer: pacer, Cfg: cfg}
}

func (f *RetryingFetcher) Name() string { return f.Inner.Name() }

// Fetch runs the inner fetch under the retry policy. The returned error is
// always a *model.FetchError unless the context was cancelled.
func (f *RetryingFetcher) Fetch(ctx context.Context, symbol string) (*model.FundamentalsRecord, error) {
	var lastErr *model.FetchError
	for attempt := 1; attempt <= f.Cfg.MaxAttempts; attempt++ {
		if f.Pacer != nil {
			if err := f.Pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		rec, err := f.Inner.Fetch(ctx, symbol)
		if err == nil {
			return rec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var fe *model.FetchError
		if !errors.As(err, &fe) {
			fe = &model.FetchError{Symbol: symbol, Kind: model.FetchUnknown, Err: err}
		}
		lastErr = fe

		if fe.Kind == model.FetchRateLimited && f.Pacer != nil {
			f.Pacer.Slowdown()
		}
		if !fe.Retryable() || attempt == f.Cfg.MaxAttempts {
			return nil, fe
		}

		delay := f.backoff(attempt)
		log.Warn().Str("symbol", symbol).Int("attempt", attempt).
			Str("kind", string(fe.Kind)).Dur("backoff", delay).
			Msg("transient fetch failure, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoff returns the delay before the next attempt: base doubled per
// attempt, capped, with up to 50% random jitter added.
func (f *RetryingFetcher) backoff(attempt int) time.Duration {
	delay := f.Cfg.BaseDelay << uint(attempt-1)
	if delay > f.Cfg.MaxDelay {
		delay = f.Cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
