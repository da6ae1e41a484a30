package cli

import (
	"fmt"
	"time"

	"storefront/internal/config"
	"storefront/internal/middleware"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("role", "", "Role claim, e.g. admin")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Mint a bearer token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if role == "" {
			role = "customer"
		}

		token, err := middleware.IssueToken(cfg.Security.JWTSecret, args[0], role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
