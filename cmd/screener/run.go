package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ValueSentinel/internal/config"
	"ValueSentinel/internal/engine"
	"ValueSentinel/internal/fetcher"
	"ValueSentinel/internal/notifier"
	"ValueSentinel/internal/recorder"
	"ValueSentinel/internal/runner"
	"ValueSentinel/internal/scheduler"
	"ValueSentinel/internal/store"
	"ValueSentinel/internal/universe"
)

func runCmd(ctx context.Context) *cobra.Command {
	var (
		daemon  bool
		force   bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the screening pipeline (default: one pass, then exit)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			r, cleanup, err := buildRunner(cfg, force, refresh)
			if err != nil {
				return err
			}
			defer cleanup()

			if !daemon {
				_, err := r.Run(ctx)
				return err
			}

			sched, err := scheduler.New(cfg.Schedule.DailyCron, func() {
				if _, err := r.Run(ctx); err != nil {
					log.Error().Err(err).Msg("scheduled run failed")
				}
			})
			if err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			log.Info().Str("cron", cfg.Schedule.DailyCron).Msg("daemon mode, waiting for schedule")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false, "keep running and screen on the configured cron schedule")
	cmd.Flags().BoolVar(&force, "force", false, "remove a stale run lock before starting")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh the ticker universe before screening")
	return cmd
}

// buildRunner wires all collaborators for a screening run from config.
func buildRunner(cfg *config.Config, force, refresh bool) (*runner.Runner, func(), error) {
	src := universe.NewSource(cfg.Universe.File, cfg.Universe.RefreshURLs)

	var base fetcher.Fetcher
	switch cfg.Fetch.Provider {
	case "yahoo":
		base = fetcher.NewYahooFetcher(time.Duration(cfg.Fetch.TimeoutSec) * time.Second)
	case "mock":
		base = fetcher.NewMockFetcher()
	default:
		return nil, nil, fmt.Errorf("unknown fetch provider %q", cfg.Fetch.Provider)
	}
	log.Info().Str("provider", base.Name()).Msg("data source selected")

	pacer := fetcher.NewPacer(cfg.Fetch.RatePerSec, cfg.Fetch.Burst)
	retryCfg := fetcher.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.Fetch.MaxAttempts
	ftch := fetcher.NewRetryingFetcher(base, pacer, retryCfg)

	st, err := store.NewStore(cfg.Results.Dir, cfg.Results.AuditFile, cfg.Results.KeepRuns)
	if err != nil {
		return nil, nil, err
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	cleanup := func() {}
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, run history disabled")
		} else {
			rec = sr
			cleanup = func() { sr.Close() }
		}
	}

	var nt notifier.Notifier = notifier.NoopNotifier{}
	if cfg.Email.Enabled {
		nt = newEmailNotifier(cfg)
	}

	return &runner.Runner{
		Universe:        src,
		Fetcher:         ftch,
		Criteria:        criteriaFromConfig(cfg),
		Store:           st,
		Recorder:        rec,
		Notifier:        nt,
		Workers:         cfg.Fetch.Workers,
		LockFile:        cfg.Results.LockFile,
		RefreshUniverse: refresh || cfg.Universe.Refresh,
		Force:           force,
	}, cleanup, nil
}

func criteriaFromConfig(cfg *config.Config) engine.Criteria {
	return engine.Criteria{
		ExcludedIndustries:   cfg.Criteria.ExcludedIndustries,
		MinPrice:             cfg.Criteria.MinPrice,
		MarketCapFilter:      cfg.Criteria.MarketCapFilter,
		MinMarketCap:         cfg.Criteria.MinMarketCap,
		MaxDebtToEquity:      cfg.Criteria.MaxDebtToEquity,
		MaxPriceToBook:       cfg.Criteria.MaxPriceToBook,
		MinNetMargin:         cfg.Criteria.MinNetMargin,
		MaxAboveThreeYearLow: cfg.Criteria.MaxAboveThreeYearLow,
	}
}

func newEmailNotifier(cfg *config.Config) *notifier.EmailNotifier {
	return notifier.NewEmailNotifier(notifier.EmailConfig{
		To:           cfg.Email.To,
		From:         cfg.Email.From,
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		ClientID:     cfg.Email.ClientID,
		ClientSecret: cfg.Email.ClientSecret,
		RefreshToken: cfg.Email.RefreshToken,
		TokenURL:     cfg.Email.TokenURL,
	})
}
