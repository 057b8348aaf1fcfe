package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"ValueSentinel/internal/engine"
	"ValueSentinel/internal/fetcher"
	"ValueSentinel/internal/model"
	"ValueSentinel/internal/notifier"
	"ValueSentinel/internal/recorder"
	"ValueSentinel/internal/store"
	"ValueSentinel/internal/universe"
)

// Runner drives one complete screening run: universe → fetch → evaluate →
// persist → notify. All collaborators are injected; the Runner holds no
// state of its own beyond configuration, so constructing one per run is cheap.
type Runner struct {
	Universe *universe.Source
	Fetcher  fetcher.Fetcher
	Criteria engine.Criteria
	Store    *store.Store
	Recorder recorder.Recorder
	Notifier notifier.Notifier

	Workers         int
	LockFile        string
	RefreshUniverse bool
	Force           bool
}

// Run executes one screening pass. It returns a RunResult once every ticker
// has a terminal decision and persistence is durably written. A cancelled
// run persists nothing; a persistence failure is returned as an error so
// the run is never reported successful with partial artifacts.
func (r *Runner) Run(ctx context.Context) (*model.RunResult, error) {
	lock, err := store.AcquireLock(r.LockFile, r.Force)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release run lock")
		}
	}()

	symbols, err := r.Universe.Resolve(ctx, r.RefreshUniverse)
	if err != nil {
		return nil, fmt.Errorf("resolve universe: %w", err)
	}

	runTS := time.Now()
	log.Info().Int("symbols", len(symbols)).Int("workers", r.Workers).
		Str("source", r.Fetcher.Name()).Msg("screening run starting")

	decisions := r.screen(ctx, symbols)
	if ctx.Err() != nil {
		// In-flight fetches have finished or timed out by now; persist
		// nothing so committed artifacts stay intact.
		return nil, ctx.Err()
	}

	res := &model.RunResult{RunTimestamp: runTS, Decisions: decisions}
	res.Stats = r.account(res)
	res.Stats.Duration = time.Since(runTS)

	if err := r.persist(res); err != nil {
		return res, err
	}
	res.Stats.Persisted = true

	r.notify(ctx, res)
	r.record(res)

	log.Info().
		Int("processed", res.Stats.Processed).
		Int("qualified", res.Stats.Qualified).
		Int("fetch_failed", res.Stats.FetchFailed).
		Dur("duration", res.Stats.Duration).
		Bool("persisted", res.Stats.Persisted).
		Bool("notified", res.Stats.Notified).
		Msg("screening run completed")
	return res, nil
}

// screen fans symbols out over a bounded worker pool. Results land in an
// index-keyed slice, so the audit order always matches the universe order
// no matter how fetches interleave.
func (r *Runner) screen(ctx context.Context, symbols []string) []model.Decision {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	decisions := make([]model.Decision, len(symbols))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, sym := range symbols {
		select {
		case <-ctx.Done():
			wg.Wait()
			return decisions
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, symbol string) {
			defer wg.Done()
			defer func() { <-sem }()
			decisions[idx] = r.screenOne(ctx, symbol)
		}(i, sym)
	}

	wg.Wait()
	return decisions
}

// screenOne produces the terminal decision for a single ticker. A fetch
// failure is recorded and isolated; it never aborts the run.
func (r *Runner) screenOne(ctx context.Context, symbol string) model.Decision {
	rec, err := r.Fetcher.Fetch(ctx, symbol)
	if err != nil {
		if ctx.Err() != nil {
			return model.Decision{Symbol: symbol, FetchErr: model.FetchTimeout}
		}
		kind := model.FetchKindOf(err)
		log.Warn().Str("symbol", symbol).Str("kind", string(kind)).Err(err).Msg("fetch failed")
		return engine.FailedFetch(symbol, kind)
	}

	d := engine.Evaluate(rec, r.Criteria)
	if d.Qualifies {
		log.Info().Str("symbol", symbol).Msg("qualifies")
	} else {
		log.Debug().Str("symbol", symbol).Msg("does not qualify")
	}
	return d
}

func (r *Runner) account(res *model.RunResult) model.RunStats {
	st := model.RunStats{Processed: len(res.Decisions)}
	for i := range res.Decisions {
		d := &res.Decisions[i]
		if d.FetchErr != "" {
			st.FetchFailed++
		}
		if d.Qualifies {
			st.Qualified++
		}
	}
	return st
}

// persist commits the run's artifacts in order: audit append, qualifier
// write, then prune. Prune only runs after the new file is committed and
// its own per-file failures are non-fatal.
func (r *Runner) persist(res *model.RunResult) error {
	if err := r.Store.AppendAudit(res.RunTimestamp, res.Decisions); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	if err := r.Store.WriteQualifiers(res.RunTimestamp, res.Qualifiers()); err != nil {
		return fmt.Errorf("write qualifier file: %w", err)
	}
	if err := r.Store.Prune(); err != nil {
		log.Warn().Err(err).Msg("qualifier pruning failed")
	}
	return nil
}

// notify hands the finalized qualifier list to the notification boundary.
// A notification failure is reported in the stats but never fails the run.
func (r *Runner) notify(ctx context.Context, res *model.RunResult) {
	if r.Notifier == nil {
		return
	}
	payload := &notifier.Payload{
		RunTimestamp: res.RunTimestamp,
		Qualifiers:   res.Qualifiers(),
		Stats:        res.Stats,
	}
	if err := r.Notifier.Notify(ctx, payload); err != nil {
		res.Stats.NotifyErr = err.Error()
		log.Error().Err(err).Msg("notification failed (screening result unaffected)")
		return
	}
	if _, ok := r.Notifier.(notifier.NoopNotifier); !ok {
		res.Stats.Notified = true
	}
}

func (r *Runner) record(res *model.RunResult) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.RecordRun(res); err != nil {
		log.Warn().Err(err).Msg("failed to record run history")
	}
}
