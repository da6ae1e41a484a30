package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tiersCmd)
	rootCmd.AddCommand(resolveCmd)
}

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Print the commission tier table",
	Args:  cobra.NoArgs,
	RunE:  runTiers,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve SUCCESSFUL_REFERRALS",
	Short: "Show the tier and progress for a successful referral count",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

func loadTiers() (*services.TierTable, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return services.LoadTierTable(cfg.Referral.Tiers)
}

func runTiers(cmd *cobra.Command, args []string) error {
	table, err := loadTiers()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tREFERRALS\tRATE")
	for _, t := range table.Tiers() {
		fmt.Fprintf(w, "%d\t%s\t%d%%\n", t.Tier, referralRange(t), t.Rate)
	}
	return w.Flush()
}

func referralRange(t models.CommissionTier) string {
	if t.IsUnbounded() {
		return fmt.Sprintf("%d+", t.MinReferrals)
	}
	return fmt.Sprintf("%d-%d", t.MinReferrals, t.MaxReferrals)
}

func runResolve(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("successful referrals must be a non-negative integer, got %q", args[0])
	}

	table, err := loadTiers()
	if err != nil {
		return err
	}
	progress, err := table.Resolve(n)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tier %d at %d%%\n", progress.Tier, progress.Rate)
	if progress.NextTier != nil && progress.ReferralsToNextTier != nil {
		fmt.Fprintf(out, "%d more to tier %d (%.0f%% of the way)\n",
			*progress.ReferralsToNextTier, progress.NextTier.Tier, progress.ProgressPercent)
	} else {
		fmt.Fprintln(out, "top tier")
	}
	return nil
}
