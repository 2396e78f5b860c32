package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupDays       int
	cleanupFailedOnly bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old execution records",
	Long: `Delete execution records older than --days (default: retention_days from
config). With --failed-only, delete every failed record regardless of age.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		var deleted int64
		if cleanupFailedOnly {
			deleted, err = a.service.ClearFailed(ctx)
		} else {
			var days *int
			if cmd.Flags().Changed("days") {
				days = &cleanupDays
			}
			deleted, err = a.service.Cleanup(ctx, days)
		}
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted_count": deleted})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully cleaned up %d old records\n", deleted)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVarP(&cleanupDays, "days", "d", 0, "Delete records older than this many days")
	cleanupCmd.Flags().BoolVar(&cleanupFailedOnly, "failed-only", false, "Delete all failed records")
}
