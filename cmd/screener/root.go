package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

// Execute runs the CLI. Two modes: a full screening run (optionally as a
// cron daemon) and a test-email connectivity check.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "screener",
		Short:         "Daily value screener for U.S.-listed equities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "path to config file")

	root.AddCommand(runCmd(ctx))
	root.AddCommand(testEmailCmd(ctx))
	return root.ExecuteContext(ctx)
}
