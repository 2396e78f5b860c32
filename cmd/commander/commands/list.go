package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/pkg/types"
)

var (
	listCategory string
	listSearch   string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered commands with their last execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		views, err := a.service.ListWithExecutionData(context.Background())
		if err != nil {
			return err
		}
		views = filterViews(views, a.service.Search(listSearch), listSearch != "")
		if listCategory != "" {
			views = filterViews(views, a.service.ByCategory(listCategory), true)
		}

		if jsonOut {
			return printJSON(cmd.OutOrStdout(), views)
		}
		if len(views) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No commands found.")
			return nil
		}

		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "NAME\tCATEGORY\tLAST STATUS\tLAST RUN\tRUNS\tSUCCESS\tDESCRIPTION")
		for _, v := range views {
			status, when := types.ExecutionStatus(""), "-"
			if v.LastExecution != nil {
				status = v.LastExecution.Status
				when = agoRFC3339(v.LastExecution.StartedAt)
			}
			name := v.Name
			if v.Disabled {
				name += " (disabled)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				name, catalog.CategoryOf(v.Name), statusLabel(status), when,
				v.Stats.TotalExecutions, percent(v.Stats.SuccessRate), v.Description)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "Only commands in this category")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only commands whose name or description matches")
}

// filterViews keeps the views named in keep. With apply false, views is returned as is.
func filterViews(views []types.CommandView, keep []types.CommandDescriptor, apply bool) []types.CommandView {
	if !apply {
		return views
	}
	names := make(map[string]bool, len(keep))
	for _, d := range keep {
		names[d.Name] = true
	}
	out := views[:0]
	for _, v := range views {
		if names[v.Name] {
			out = append(out, v)
		}
	}
	return out
}
