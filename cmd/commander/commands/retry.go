package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var retryUser string

var retryCmd = &cobra.Command{
	Use:   "retry <command>",
	Short: "Run a command again with the arguments of its last execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyColorFlag()

		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		result, err := a.service.Retry(ctx, args[0], cliUser(retryUser))
		if err != nil {
			return err
		}
		return reportResult(cmd, args[0], result)
	},
}

func init() {
	retryCmd.Flags().StringVarP(&retryUser, "user", "u", "", "User recorded as executed_by (default $USER)")
}
