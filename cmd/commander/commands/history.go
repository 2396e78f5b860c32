package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/pkg/types"
)

var (
	historyLimit int
	historyUser  string
	historyFrom  string
	historyTo    string
)

const dateLayout = "2006-01-02"

var historyCmd = &cobra.Command{
	Use:   "history [command]",
	Short: "Show recent executions of a command, a user, or everything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		var records []types.ExecutionRecord
		switch {
		case historyFrom != "" || historyTo != "":
			var from, to time.Time
			if from, to, err = dateRange(historyFrom, historyTo); err != nil {
				return err
			}
			records, err = a.service.Between(ctx, from, to)
		case len(args) == 1:
			records, err = a.service.History(ctx, args[0], historyLimit)
		case historyUser != "":
			records, err = a.service.ByUser(ctx, historyUser, historyLimit)
		default:
			records, err = a.service.Recent(ctx, historyLimit)
		}
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No executions recorded.")
			return nil
		}

		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "ID\tCOMMAND\tSTATUS\tEXIT\tDURATION\tUSER\tSTARTED")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.ID, r.CommandName, statusLabel(r.Status), r.ReturnCode,
				seconds(r.ExecutionTime), orDash(r.ExecutedBy), ago(r.StartedAt))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", commander.DefaultHistoryLimit, "Maximum number of executions")
	historyCmd.Flags().StringVar(&historyUser, "user", "", "Only executions by this user")
	historyCmd.Flags().StringVar(&historyFrom, "from", "", "Executions started on or after this date (YYYY-MM-DD)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "Executions started on or before this date (YYYY-MM-DD)")
}

// dateRange parses inclusive local dates into a half-open [from, to) range.
// A missing from means the epoch, a missing to means today.
func dateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from time.Time
	if fromStr != "" {
		t, err := time.ParseInLocation(dateLayout, fromStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, types.NewValidationError("from", "invalid --from date %q", fromStr)
		}
		from = t
	}
	to := time.Now()
	if toStr != "" {
		t, err := time.ParseInLocation(dateLayout, toStr, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, types.NewValidationError("to", "invalid --to date %q", toStr)
		}
		to = t
	}
	y, m, d := to.Date()
	return from, time.Date(y, m, d+1, 0, 0, 0, 0, time.Local), nil
}
