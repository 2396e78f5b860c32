package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/metrics"
	"github.com/LaravelPlus/commander/internal/storage"
	"github.com/LaravelPlus/commander/pkg/types"
)

func testAppConfig() *types.Config {
	return &types.Config{
		Enabled:            true,
		URL:                "admin/commander",
		Environment:        "local",
		TrackOutput:        true,
		TrackArguments:     true,
		TrackOptions:       true,
		TrackExecutionTime: true,
		TrackUser:          true,
		MaxOutputLength:    10000,
		RetentionDays:      90,
		DisabledCommands:   []string{"migrate:fresh"},
		Server:             types.ServerConfig{UserHeader: "X-User-ID"},
	}
}

func setupTestServer(t *testing.T, cfg *types.Config) *Server {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.Open(types.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "commander.db")}, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })

	cat := catalog.New(dir, cfg)
	cat.Register(&catalog.Command{
		CommandDescriptor: types.CommandDescriptor{Name: "backup:run", Description: "Run the backup"},
		Handler: func(_ context.Context, in catalog.Input, out io.Writer) (int, error) {
			fmt.Fprintf(out, "backed up %v", in.Arguments["path"])
			return 0, nil
		},
	})
	cat.Register(&catalog.Command{
		CommandDescriptor: types.CommandDescriptor{Name: "report:build", Description: "Build reports"},
		Handler: func(_ context.Context, _ catalog.Input, out io.Writer) (int, error) {
			fmt.Fprint(out, "no data")
			return 3, nil
		},
	})
	cat.Register(&catalog.Command{
		CommandDescriptor: types.CommandDescriptor{Name: "migrate:fresh", Description: "Drop all tables"},
		Handler: func(context.Context, catalog.Input, io.Writer) (int, error) {
			t.Error("disabled command must not run")
			return 0, nil
		},
	})

	svc := commander.New(cfg, cat, store, bus)
	collector := metrics.NewCollector()
	collector.Attach(bus)
	return New(ConfigFrom(cfg), svc, collector)
}

func do(t *testing.T, srv *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, "/admin/commander"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func TestRun_ThenListShowsLastExecution(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "POST", "/api/run", map[string]any{"command": "list"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[types.ExecutionResult](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ReturnCode)
	assert.Contains(t, result.Output, "backup:run")
	assert.NotEmpty(t, result.StartedAt)
	assert.NotEmpty(t, result.CompletedAt)

	w = do(t, srv, "GET", "/api/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[[]types.CommandView](t, w)

	var found bool
	for _, v := range views {
		if v.Name != "list" {
			continue
		}
		found = true
		require.NotNil(t, v.LastExecution)
		require.NotNil(t, v.LastExecution.Success)
		assert.True(t, *v.LastExecution.Success)
		assert.Equal(t, int64(1), v.Stats.TotalExecutions)
	}
	assert.True(t, found, "list command is in the catalog")
}

func TestRun_Validation(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{"missing command", map[string]any{}, http.StatusBadRequest, "Command name is required"},
		{"no body", nil, http.StatusBadRequest, "Command name is required"},
		{"bad arguments", map[string]any{"command": "backup:run", "arguments": "x"}, http.StatusBadRequest, "The arguments field must be an object"},
		{"disabled", map[string]any{"command": "migrate:fresh"}, http.StatusForbidden, disabledMessage},
		{"unknown", map[string]any{"command": "backup:rn"}, http.StatusNotFound, "Command 'backup:rn' not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/run", tt.body)
			assert.Equal(t, tt.status, w.Code)
			resp := decode[Envelope](t, w)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Message, tt.message)
		})
	}

	w := do(t, srv, "GET", "/api/recent", nil)
	assert.Equal(t, "[]\n", w.Body.String(), "rejected runs leave no record")
}

func TestRun_UnknownCommandSuggests(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:rn"})
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[envelope[map[string][]string]](t, w)
	assert.Equal(t, []string{"backup:run"}, resp.Data["suggestions"])
}

func TestRun_FailingCommandIsOK(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "POST", "/api/run", map[string]any{"command": "report:build", "arguments": []any{}})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.ExecutionResult](t, w)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ReturnCode)
	assert.Equal(t, "no data", result.Output)

	w = do(t, srv, "GET", "/api/failed", nil)
	failed := decode[[]types.FailedCommand](t, w)
	require.Len(t, failed, 1)
	assert.Equal(t, "report:build", failed[0].CommandName)
}

func TestRun_IgnoredCommands(t *testing.T) {
	cfg := testAppConfig()
	cfg.IgnoredCommands = []string{"migrate:*", "queue:*"}
	srv := setupTestServer(t, cfg)
	srv.service.Catalog().Register(&catalog.Command{
		CommandDescriptor: types.CommandDescriptor{Name: "queue:flush", Description: "Flush the queue"},
		Handler: func(_ context.Context, _ catalog.Input, out io.Writer) (int, error) {
			fmt.Fprint(out, "flushed")
			return 0, nil
		},
	})

	w := do(t, srv, "POST", "/api/run", map[string]any{"command": "migrate:fresh"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, disabledMessage, decode[Envelope](t, w).Message)

	w = do(t, srv, "POST", "/api/run", map[string]any{"command": "queue:flush"})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.ExecutionResult](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, "flushed", result.Output)
	assert.Empty(t, result.ExecutionID)

	w = do(t, srv, "GET", "/api/search?query=queue", nil)
	assert.Empty(t, decode[envelope[[]types.CommandDescriptor]](t, w).Data)
}

func TestRun_RecordsUser(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run", "arguments": map[string]any{"path": "/tmp"}}, "X-User-ID", "7")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, "GET", "/api/user/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[envelope[[]types.ExecutionRecord]](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "backup:run", resp.Data[0].CommandName)
	assert.Equal(t, "/tmp", resp.Data[0].Arguments["path"])
}

func TestRetry(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "POST", "/api/retry", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "POST", "/api/retry", map[string]any{"command": "backup:run"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No previous execution found for command 'backup:run'", decode[Envelope](t, w).Message)

	do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run", "arguments": map[string]any{"path": "/srv"}})

	w = do(t, srv, "POST", "/api/retry", map[string]any{"command": "backup:run"})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[types.ExecutionResult](t, w)
	assert.True(t, result.Success)
	assert.Equal(t, "backed up /srv", result.Output)

	w = do(t, srv, "POST", "/api/retry", map[string]any{"command": "migrate:fresh"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHistoryAndStats(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	for i := 0; i < 3; i++ {
		do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run"})
	}

	w := do(t, srv, "GET", "/api/backup:run/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[envelope[[]types.ExecutionRecord]](t, w)
	assert.True(t, history.Success)
	assert.Equal(t, "Command history loaded successfully", history.Message)
	assert.Len(t, history.Data, 2)

	w = do(t, srv, "GET", "/api/backup:run/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[envelope[types.AggregateStats]](t, w)
	assert.Equal(t, int64(3), stats.Data.TotalExecutions)
	assert.Equal(t, 100.0, stats.Data.SuccessRate)

	w = do(t, srv, "GET", "/api/backup:run/history?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	for i := 0; i < 3; i++ {
		do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run"})
	}
	do(t, srv, "POST", "/api/run", map[string]any{"command": "report:build"})

	w := do(t, srv, "GET", "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[envelope[types.DashboardStats]](t, w)
	assert.Equal(t, int64(4), resp.Data.TotalExecutions)
	assert.Equal(t, 75.0, resp.Data.SuccessRate)
	assert.Len(t, resp.Data.RecentActivity, 4)

	w = do(t, srv, "GET", "/api/popular", nil)
	popular := decode[[]types.PopularCommand](t, w)
	require.NotEmpty(t, popular)
	assert.Equal(t, "backup:run", popular[0].CommandName)
}

func TestActivity(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run"})
	do(t, srv, "POST", "/api/run", map[string]any{"command": "report:build"})

	w := do(t, srv, "GET", "/api/activity?status=failed&per_page=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[envelope[types.ActivityPage]](t, w)
	require.Len(t, resp.Data.Data, 1)
	assert.Equal(t, "report:build", resp.Data.Data[0].CommandName)
	assert.Equal(t, int64(1), resp.Data.Pagination.Total)
	assert.Equal(t, 5, resp.Data.Pagination.PerPage)

	w = do(t, srv, "GET", "/api/activity?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, srv, "GET", "/api/activity?dateFrom=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCleanup(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run"})
	do(t, srv, "POST", "/api/run", map[string]any{"command": "report:build"})

	w := do(t, srv, "POST", "/api/cleanup", map[string]any{"days": 30})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[envelope[map[string]int64]](t, w)
	assert.Equal(t, int64(0), resp.Data["deleted_count"])
	assert.Equal(t, "Successfully cleaned up 0 old records", resp.Message)

	w = do(t, srv, "POST", "/api/cleanup", map[string]any{"failed_only": true})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[envelope[map[string]int64]](t, w)
	assert.Equal(t, int64(1), resp.Data["deleted_count"])

	w = do(t, srv, "POST", "/api/cleanup", map[string]any{"days": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogRoutes(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())

	w := do(t, srv, "GET", "/api/search?query=backup", nil)
	search := decode[envelope[[]types.CommandDescriptor]](t, w)
	require.Len(t, search.Data, 1)
	assert.Equal(t, "backup:run", search.Data[0].Name)

	w = do(t, srv, "GET", "/api/category/report", nil)
	category := decode[envelope[[]types.CommandDescriptor]](t, w)
	require.Len(t, category.Data, 1)

	w = do(t, srv, "GET", "/api/categories", nil)
	categories := decode[envelope[[]string]](t, w)
	assert.Contains(t, categories.Data, "backup")

	w = do(t, srv, "GET", "/api/schedule", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDevelopmentRoutes(t *testing.T) {
	dev := setupTestServer(t, testAppConfig())
	w := do(t, dev, "GET", "/api/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	cfg := testAppConfig()
	cfg.Environment = "production"
	prod := setupTestServer(t, cfg)
	w = do(t, prod, "GET", "/api/test", nil)
	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, testAppConfig())
	do(t, srv, "POST", "/api/run", map[string]any{"command": "backup:run"})

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `commander_executions_total{command="backup:run",status="success"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.NewValidationError("x", "bad"), http.StatusBadRequest},
		{&types.CommandLockedError{Name: "x"}, http.StatusForbidden},
		{&types.EnvironmentRestrictedError{Name: "x", Environment: "production"}, http.StatusForbidden},
		{&types.CommandNotFoundError{Name: "x"}, http.StatusNotFound},
		{&types.NoPriorExecutionError{Name: "x"}, http.StatusNotFound},
		{&types.PersistenceError{Op: "stats", Err: io.ErrUnexpectedEOF}, http.StatusInternalServerError},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
