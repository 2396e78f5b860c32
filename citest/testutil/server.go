// Package testutil starts a commander server on a real port for
// integration tests and provides HTTP and SSE clients for it.
package testutil

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/metrics"
	"github.com/LaravelPlus/commander/internal/server"
	"github.com/LaravelPlus/commander/internal/storage"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Prefix is the URL prefix the test server mounts the API under.
const Prefix = "/admin/commander"

// TestServer wraps a server instance for testing
type TestServer struct {
	Server  *server.Server
	BaseURL string
	Config  *types.Config
	Store   *storage.Store
	Service *commander.Service
	Bus     *event.Bus
	TempDir string
	port    int
}

// TestServerOption configures TestServer
type TestServerOption func(*types.Config)

// WithCommand registers an extra subprocess command.
func WithCommand(name string, cmd types.CommandConfig) TestServerOption {
	return func(c *types.Config) {
		c.Commands[name] = cmd
	}
}

// WithEnvironment sets the host environment.
func WithEnvironment(env string) TestServerOption {
	return func(c *types.Config) {
		c.Environment = env
	}
}

// StartTestServer creates and starts a test server
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	tempDir, err := os.MkdirTemp("", "commander-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	appConfig := buildTestConfig(tempDir)
	for _, opt := range opts {
		opt(appConfig)
	}

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	store, err := storage.Open(appConfig.Database, appConfig.Table)
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	bus := event.NewBus()
	cat := catalog.New(tempDir, appConfig)
	svc := commander.New(appConfig, cat, store, bus)

	collector := metrics.NewCollector()
	collector.Attach(bus)
	collector.SetCommands(cat.Count())

	serverConfig := server.ConfigFrom(appConfig)
	serverConfig.Port = port
	serverConfig.Hostname = "127.0.0.1"

	srv := server.New(serverConfig, svc, collector)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		srv.Shutdown(context.Background())
		store.Close()
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return &TestServer{
		Server:  srv,
		BaseURL: baseURL,
		Config:  appConfig,
		Store:   store,
		Service: svc,
		Bus:     bus,
		TempDir: tempDir,
		port:    port,
	}, nil
}

// Stop shuts down the test server and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if ts.Server != nil {
		if err := ts.Server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if ts.Bus != nil {
		ts.Bus.Close()
	}
	if ts.Store != nil {
		ts.Store.Close()
	}
	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}
	return nil
}

// Client returns a new test client for this server
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL + Prefix + "/api")
}

// SSEClient returns a new SSE client for this server
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL + Prefix + "/api")
}

// buildTestConfig creates a configuration with a sqlite store in dir and a
// small set of subprocess commands.
func buildTestConfig(dir string) *types.Config {
	return &types.Config{
		Enabled:     true,
		URL:         Prefix,
		Environment: "local",
		Table:       "command_executions",
		Database: types.DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dir, "commander.db"),
		},
		Server: types.ServerConfig{
			RequestTimeout: 60,
			UserHeader:     "X-User-ID",
		},
		TrackOutput:        true,
		TrackArguments:     true,
		TrackOptions:       true,
		TrackExecutionTime: true,
		TrackUser:          true,
		MaxOutputLength:    10000,
		RetentionDays:      90,
		IgnoredCommands:    []string{"queue:*"},
		DisabledCommands:   []string{"db:wipe"},
		Commands: map[string]types.CommandConfig{
			"greet": {
				Description: "Print a greeting",
				Argv:        []string{"echo"},
				Arguments:   []types.ArgumentSpec{{Name: "name", Required: true}},
			},
			"report:fail": {
				Description: "Exit with status 2",
				Argv:        []string{"sh", "-c", "echo report failed; exit 2"},
			},
			"db:wipe": {
				Description: "Drop every table",
				Argv:        []string{"true"},
			},
			"queue:restart": {
				Description: "Restart queue workers",
				Argv:        []string{"echo", "restarted"},
			},
		},
		Schedule: []types.ScheduleEntry{
			{Command: "greet", Cron: "*/5 * * * *", Description: "Greets every five minutes"},
			{Command: "missing", Cron: "@daily"},
		},
	}
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer waits for the server to be ready
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(context.Background(), "/metrics")
		if err == nil && resp.IsSuccess() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server not ready after %v", timeout)
}
