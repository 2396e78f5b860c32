package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "List scheduled commands and their next run",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		entries := a.service.Schedule()
		if jsonOut {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scheduled commands.")
			return nil
		}

		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "COMMAND\tCRON\tNEXT RUN\tDESCRIPTION")
		for _, e := range entries {
			next := "-"
			if e.NextRunAt != nil {
				next = e.NextRunAt.Local().Format("2006-01-02 15:04")
			}
			if !e.Valid {
				next = failedColor.Sprint(e.Error)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Command, e.Cron, next, e.Description)
		}
		return tw.Flush()
	},
}
