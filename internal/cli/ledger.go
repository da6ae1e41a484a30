package cli

import (
	"fmt"

	"storefront/internal/app"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(drainQueueCmd)
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute USER_ID",
	Short: "Rebuild a referrer's stats from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *app.Container) error {
			stats, err := c.Referrals.RecomputeStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"%s: %d referrals, %d successful, tier %d at %d%%, pending %.2f, paid %.2f\n",
				stats.UserID, stats.TotalReferrals, stats.SuccessfulReferrals,
				stats.CurrentTier, stats.CurrentCommissionRate, stats.PendingEarnings, stats.PaidEarnings)
			return nil
		})
	},
}

var drainQueueCmd = &cobra.Command{
	Use:   "drain-queue",
	Short: "Run one pass over the recompute retry queue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), func(c *app.Container) error {
			result, err := c.Retrier.Drain(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "processed %d: %d recomputed, %d retried, %d dropped\n",
				result.Processed, result.Succeeded, result.Retried, result.Dropped)
			return nil
		})
	},
}
