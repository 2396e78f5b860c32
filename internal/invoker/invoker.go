// Package invoker runs catalog commands and captures their combined output.
//
// Subprocess commands are started from an argv array, never through a
// shell, so argument values need no escaping. Each subprocess runs in its own
// process group, which is killed when the context is cancelled.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Exit codes reported when the command did not exit on its own.
const (
	ExitTimeout   = 124
	ExitCancelled = 130
)

// killGrace is how long a cancelled process group gets between SIGTERM and SIGKILL.
const killGrace = 3 * time.Second

// Result is the outcome of one invocation.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Invoker runs commands registered in a catalog.
type Invoker struct {
	catalog     *catalog.Catalog
	environment string
}

// New creates an invoker. environment is the host environment name; commands
// marked dev_only refuse to run when it is "production".
func New(cat *catalog.Catalog, environment string) *Invoker {
	return &Invoker{catalog: cat, environment: environment}
}

// Resolve looks up name and checks that it may run.
func (i *Invoker) Resolve(name string) (*catalog.Command, error) {
	cmd, ok := i.catalog.Lookup(name)
	if !ok {
		return nil, &types.CommandNotFoundError{Name: name, Suggestions: i.catalog.Suggest(name)}
	}
	if cmd.Disabled {
		return nil, &types.CommandLockedError{Name: name}
	}
	if cmd.DevOnly && strings.EqualFold(i.environment, "production") {
		return nil, &types.EnvironmentRestrictedError{Name: name, Environment: i.environment}
	}
	return cmd, nil
}

// Invoke runs name with the given arguments and options.
//
// A command that runs and exits non-zero is not an error: the exit code and
// output are in the Result. Errors are returned for commands that cannot run
// at all (unknown, disabled, restricted, invalid input, failed to start).
func (i *Invoker) Invoke(ctx context.Context, name string, args, opts map[string]any) (Result, error) {
	cmd, err := i.Resolve(name)
	if err != nil {
		return Result{}, err
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	if cmd.Handler != nil {
		return runHandler(ctx, cmd, args, opts), nil
	}

	argv, err := BuildArgv(cmd, args, opts)
	if err != nil {
		return Result{}, err
	}
	return runProcess(ctx, cmd, argv)
}

func runHandler(ctx context.Context, cmd *catalog.Command, args, opts map[string]any) (res Result) {
	var out strings.Builder
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(&out, "panic: %v\n", r)
			res = Result{ExitCode: 1, Output: out.String(), Duration: time.Since(start)}
		}
	}()

	code, err := cmd.Handler(ctx, catalog.Input{Arguments: args, Options: opts}, &out)
	if err != nil {
		if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
			out.WriteByte('\n')
		}
		out.WriteString(err.Error())
		if code == 0 {
			code = 1
		}
	}
	return Result{ExitCode: code, Output: out.String(), Duration: time.Since(start)}
}

func runProcess(ctx context.Context, cmd *catalog.Command, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("command %s has nothing to run", cmd.Name)
	}
	proc := exec.CommandContext(ctx, argv[0], argv[1:]...)
	proc.Dir = cmd.WorkDir
	proc.Env = buildEnv(cmd.Env)
	proc.WaitDelay = killGrace + time.Second
	setProcessGroup(proc)

	start := time.Now()
	output, err := proc.CombinedOutput()
	duration := time.Since(start)

	res := Result{Output: string(output), Duration: duration}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		res.ExitCode = ExitTimeout
		res.Output += fmt.Sprintf("\n\n[Command timed out after %s]", duration.Round(time.Millisecond))
		return res, nil
	case errors.Is(ctxErr, context.Canceled):
		res.ExitCode = ExitCancelled
		res.Output += "\n\n[Command cancelled]"
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("start %s: %w", argv[0], err)
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
	}
	return res, nil
}

func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
