package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/pkg/types"
)

var (
	runArgs []string
	runOpts []string
	runUser string
)

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a registered command and record the execution",
	Long: `Run a registered command with the same checks and tracking as the API.

Arguments are given as name=value pairs. Options are given as name=value, or
just name for flags that take no value:

  commander run report:build --arg period=weekly --opt force --opt format=csv`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArrayVarP(&runArgs, "arg", "a", nil, "Argument as name=value (repeatable)")
	runCmd.Flags().StringArrayVarP(&runOpts, "opt", "o", nil, "Option as name[=value] (repeatable)")
	runCmd.Flags().StringVarP(&runUser, "user", "u", "", "User recorded as executed_by (default $USER)")
}

func runRun(cmd *cobra.Command, args []string) error {
	applyColorFlag()

	arguments, err := parseParams(runArgs, false)
	if err != nil {
		return err
	}
	options, err := parseParams(runOpts, true)
	if err != nil {
		return err
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := a.service.Execute(ctx, commander.Request{
		Command:   args[0],
		Arguments: arguments,
		Options:   options,
		User:      cliUser(runUser),
	})
	return reportResult(cmd, args[0], result)
}

// reportResult prints the command output and a status line, and turns a
// failed run into an ExitError carrying its return code.
func reportResult(cmd *cobra.Command, name string, result types.ExecutionResult) error {
	if jsonOut {
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		out := result.Output
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		line := fmt.Sprintf("%s finished in %.2fs (exit %d)", name, result.ExecutionTime, result.ReturnCode)
		if result.Success {
			successColor.Fprintln(cmd.ErrOrStderr(), "✓ "+line)
		} else {
			failedColor.Fprintln(cmd.ErrOrStderr(), "✗ "+line)
		}
	}

	if !result.Success {
		code := result.ReturnCode
		if code == 0 {
			code = 1
		}
		return &ExitError{Code: code}
	}
	return nil
}

// parseParams turns name=value pairs into a parameter map. Repeated names
// collect into a list. With bare allowed, a name without '=' becomes true.
func parseParams(pairs []string, bare bool) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, hasValue := strings.Cut(pair, "=")
		name = strings.TrimLeft(strings.TrimSpace(name), "-")
		if name == "" {
			return nil, types.NewValidationError("params", "invalid parameter %q", pair)
		}

		var v any = value
		if !hasValue {
			if !bare {
				return nil, types.NewValidationError(name, "argument %q must be given as name=value", pair)
			}
			v = true
		}

		switch existing := params[name].(type) {
		case nil:
			params[name] = v
		case []any:
			params[name] = append(existing, v)
		default:
			params[name] = []any{existing, v}
		}
	}
	return params, nil
}

func cliUser(flag string) string {
	if flag != "" {
		return flag
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
