package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/pkg/types"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats [command]",
	Short: "Show execution statistics for a command or the dashboard summary",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			stats, err := a.service.Stats(ctx, args[0], statsDays)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(out, stats)
			}
			headerColor.Fprintf(out, "%s (last %d days)\n", args[0], statsDays)
			return printAggregate(out, stats)
		}

		dash, err := a.service.DashboardStats(ctx)
		if err != nil {
			return err
		}
		popular, err := a.service.Popular(ctx, commander.DefaultPopularLimit)
		if err != nil {
			return err
		}
		failed, err := a.service.Failed(ctx, commander.DefaultFailedLimit)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(out, map[string]any{
				"dashboard": dash,
				"popular":   popular,
				"failed":    failed,
			})
		}
		return printDashboard(out, dash, popular, failed)
	},
}

func init() {
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", commander.DefaultStatsDays, "Window in days for per-command statistics")
}

func printAggregate(w io.Writer, s types.AggregateStats) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Executions\t%d\n", s.TotalExecutions)
	fmt.Fprintf(tw, "Successful\t%s\n", successColor.Sprint(s.SuccessfulExecutions))
	fmt.Fprintf(tw, "Failed\t%s\n", failedColor.Sprint(s.FailedExecutions))
	fmt.Fprintf(tw, "Pending\t%s\n", pendingColor.Sprint(s.PendingExecutions))
	fmt.Fprintf(tw, "Success rate\t%s\n", percent(s.SuccessRate))
	fmt.Fprintf(tw, "Avg time\t%.2fs\n", s.AvgExecutionTime)
	fmt.Fprintf(tw, "Min / max\t%.2fs / %.2fs\n", s.MinExecutionTime, s.MaxExecutionTime)
	return tw.Flush()
}

func printDashboard(w io.Writer, d *types.DashboardStats, popular []types.PopularCommand, failed []types.FailedCommand) error {
	headerColor.Fprintln(w, "Dashboard")
	tw := newTable(w)
	fmt.Fprintf(tw, "Commands\t%d\n", d.TotalCommands)
	fmt.Fprintf(tw, "Scheduled\t%d\n", d.ScheduledCommands)
	fmt.Fprintf(tw, "Executions\t%d\n", d.TotalExecutions)
	fmt.Fprintf(tw, "Successful\t%s\n", successColor.Sprint(d.SuccessfulExecutions))
	fmt.Fprintf(tw, "Failed\t%s\n", failedColor.Sprint(d.FailedExecutions))
	fmt.Fprintf(tw, "Pending\t%s\n", pendingColor.Sprint(d.PendingExecutions))
	fmt.Fprintf(tw, "Success rate\t%s\n", percent(d.SuccessRate))
	fmt.Fprintf(tw, "Avg time\t%.2fs\n", d.AvgExecutionTime)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(popular) > 0 {
		headerColor.Fprintln(w, "\nMost run")
		tw = newTable(w)
		for _, p := range popular {
			fmt.Fprintf(tw, "%s\t%d\n", p.CommandName, p.ExecutionCount)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		headerColor.Fprintln(w, "\nFailing")
		tw = newTable(w)
		for _, f := range failed {
			fmt.Fprintf(tw, "%s\t%s\tlast %s\n", f.CommandName, failedColor.Sprint(f.FailureCount), ago(f.LastFailedAt))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.RecentActivity) > 0 {
		headerColor.Fprintln(w, "\nRecent")
		tw = newTable(w)
		for _, r := range d.RecentActivity {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.CommandName, statusLabel(r.Status), ago(r.StartedAt))
		}
		return tw.Flush()
	}
	return nil
}
