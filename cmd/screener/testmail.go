package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"ValueSentinel/internal/config"
	"ValueSentinel/internal/notifier"
)

// testEmailCmd validates notifier connectivity and credentials with a fixed
// synthetic payload. It bypasses the pipeline entirely: no audit log entry,
// no qualifier file, no pruning.
func testEmailCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "test-email",
		Short: "Send a synthetic result email to verify notifier configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Email.Enabled {
				return notifier.ErrNotConfigured
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}

			nt := newEmailNotifier(cfg)
			if err := nt.Notify(ctx, notifier.TestPayload()); err != nil {
				return fmt.Errorf("test email: %w", err)
			}
			log.Info().Str("to", cfg.Email.To).Msg("test email sent")
			return nil
		},
	}
}
