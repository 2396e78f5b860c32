package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaravelPlus/commander/pkg/types"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"period=weekly", "tag=a", "tag=b", "--note=x=y"}, false)
	require.NoError(t, err)
	assert.Equal(t, "weekly", params["period"])
	assert.Equal(t, []any{"a", "b"}, params["tag"])
	assert.Equal(t, "x=y", params["note"])

	_, err = parseParams([]string{"period"}, false)
	assert.ErrorIs(t, err, types.ErrValidation)

	opts, err := parseParams([]string{"force", "format=csv"}, true)
	require.NoError(t, err)
	assert.Equal(t, true, opts["force"])
	assert.Equal(t, "csv", opts["format"])

	_, err = parseParams([]string{"=x"}, true)
	assert.Error(t, err)
}

func TestCliUser(t *testing.T) {
	assert.Equal(t, "alice", cliUser("alice"))
	t.Setenv("USER", "bob")
	assert.Equal(t, "bob", cliUser(""))
}

// setupProject writes a project config with a sqlite store under a temp
// directory and points the XDG paths there too.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("APP_ENV", "local")

	cfg := map[string]any{
		"database": map[string]any{
			"driver": "sqlite",
			"dsn":    filepath.Join(dir, "commander.db"),
		},
		"notification_channels": []string{},
		"commands": map[string]any{
			"greet": map[string]any{
				"description": "Print a greeting",
				"argv":        []string{"echo", "hello"},
			},
			"deploy:fail": map[string]any{
				"description": "Always fails",
				"argv":        []string{"sh", "-c", "echo broken; exit 3"},
			},
		},
		"schedule": []map[string]any{
			{"command": "greet", "cron": "0 * * * *", "description": "hourly"},
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commander.json"), data, 0644))
	return dir
}

// execute runs the root command with args and resets flag state afterwards.
func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"-C", dir, "--no-color"}, args...))
	t.Cleanup(func() { resetFlags(rootCmd.PersistentFlags()) })
	for _, c := range rootCmd.Commands() {
		c := c
		t.Cleanup(func() { resetFlags(c.Flags()) })
	}
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func TestRunAndHistory(t *testing.T) {
	dir := setupProject(t)

	stdout, stderr, err := execute(t, dir, "run", "greet", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, stdout, "hello")
	assert.Contains(t, stderr, "greet finished")

	stdout, _, err = execute(t, dir, "--json", "history", "greet")
	require.NoError(t, err)
	var records []types.ExecutionRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	require.Len(t, records, 1)
	assert.Equal(t, types.StatusSuccess, records[0].Status)
	require.NotNil(t, records[0].ExecutedBy)
	assert.Equal(t, "alice", *records[0].ExecutedBy)

	stdout, _, err = execute(t, dir, "history", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, stdout, "greet")
}

func TestRunFailurePropagatesExitCode(t *testing.T) {
	dir := setupProject(t)

	stdout, _, err := execute(t, dir, "run", "deploy:fail")
	var exit *ExitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 3, exit.Code)
	assert.Contains(t, stdout, "broken")

	_, _, err = execute(t, dir, "retry", "deploy:fail")
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 3, exit.Code)

	stdout, _, err = execute(t, dir, "--json", "stats", "deploy:fail")
	require.NoError(t, err)
	var stats types.AggregateStats
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.EqualValues(t, 2, stats.TotalExecutions)
	assert.EqualValues(t, 2, stats.FailedExecutions)
}

func TestRunUnknownCommand(t *testing.T) {
	dir := setupProject(t)

	stdout, _, err := execute(t, dir, "run", "gret")
	var exit *ExitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.Code)
	assert.Contains(t, stdout, "not found")
}

func TestRetryWithoutHistory(t *testing.T) {
	dir := setupProject(t)

	_, _, err := execute(t, dir, "retry", "greet")
	var notFound *types.NoPriorExecutionError
	assert.True(t, errors.As(err, &notFound))
}

func TestListStatsScheduleCleanup(t *testing.T) {
	dir := setupProject(t)

	_, _, err := execute(t, dir, "run", "greet")
	require.NoError(t, err)

	stdout, _, err := execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "greet")
	assert.Contains(t, stdout, "deploy:fail")

	stdout, _, err = execute(t, dir, "list", "--category", "deploy")
	require.NoError(t, err)
	assert.Contains(t, stdout, "deploy:fail")
	assert.NotContains(t, stdout, "Print a greeting")

	stdout, _, err = execute(t, dir, "stats")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dashboard")
	assert.Contains(t, stdout, "Most run")

	stdout, _, err = execute(t, dir, "schedule")
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 * * * *")

	stdout, _, err = execute(t, dir, "cleanup", "--days", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Successfully cleaned up 0 old records")

	_, _, err = execute(t, dir, "cleanup", "--days", "0")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestDateRange(t *testing.T) {
	from, to, err := dateRange("2024-03-01", "2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), from)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.Local), to)

	_, _, err = dateRange("03/01/2024", "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestHistoryByDate(t *testing.T) {
	dir := setupProject(t)

	_, _, err := execute(t, dir, "run", "greet")
	require.NoError(t, err)

	today := time.Now().Format(dateLayout)
	stdout, _, err := execute(t, dir, "--json", "history", "--from", today)
	require.NoError(t, err)
	var records []types.ExecutionRecord
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	assert.Len(t, records, 1)

	stdout, _, err = execute(t, dir, "--json", "history", "--to", "2000-01-01")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &records))
	assert.Empty(t, records)
}
