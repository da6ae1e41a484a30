// Package cli implements referralctl, the operator tool for the referral
// ledger.
package cli

import (
	"context"
	"fmt"

	"storefront/internal/app"
	"storefront/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "referralctl",
	Short: "Operate the storefront referral commission engine",
	Long: `referralctl inspects the commission tier table and repairs referrer
stats. It reads the same environment as the API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// withContainer connects to the configured backends for one command run.
func withContainer(ctx context.Context, fn func(c *app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}
