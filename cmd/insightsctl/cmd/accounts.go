package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/creator-insights/api"
	"github.com/pilab-dev/creator-insights/domain"
	"github.com/pilab-dev/creator-insights/internal/app"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <accountID>",
	Short: "Exchange an account's long-lived credential for a fresh one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			account, err := a.Tokens.ForceRefresh(ctx, args[0])
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), api.RefreshResponse{Success: true, TokenExpiresAt: account.TokenExpiresAt})
		})
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview <accountID>",
	Short: "Print the analytics report of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days < 1 || days > 365 {
			return fmt.Errorf("--days must be between 1 and 365")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.Analytics.Report(ctx, args[0], domain.LastDays(time.Now().UTC(), days))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), report)
		})
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <accountID>",
	Short: "Run a profile, media, insights or all sync for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("type")
		typ, ok := domain.ParseSyncType(raw)
		if !ok {
			return fmt.Errorf("unknown sync type %q", raw)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			entry, err := a.Sync.Sync(ctx, args[0], typ)
			if entry == nil {
				return err
			}
			if perr := printResult(cmd.OutOrStdout(), api.SyncResponse{
				Success: entry.Status != domain.SyncStatusFailed,
				Log:     entry,
			}); perr != nil {
				return perr
			}
			if entry.Status == domain.SyncStatusFailed {
				return err
			}
			return nil
		})
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all",
	Short: "Sync every connected account once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			results, err := a.Sync.SyncAllAccounts(ctx)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), api.CronSyncResponse{Success: true, Results: results})
		})
	},
}

func init() {
	overviewCmd.Flags().Int("days", 30, "window length in days")
	syncCmd.Flags().String("type", string(domain.SyncTypeAll), "sync type: profile, media, insights or all")

	rootCmd.AddCommand(refreshCmd, overviewCmd, syncCmd, syncAllCmd)
}
