package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/internal/metrics"
	"github.com/LaravelPlus/commander/internal/server"
)

var (
	servePort     int
	serveHostname string
	serveNoWatch  bool
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the commander API server",
	Long: `Start the HTTP API used by the commander dashboard.

The server exposes the command catalog, runs commands on request, and serves
execution history, statistics and a live event stream. Prometheus metrics are
available at /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "", "Hostname to bind to (overrides config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not reload the catalog when command files change")
}

func runServe(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("print-logs") {
		printLogs = true
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()
	collector.Attach(a.bus)
	collector.SetCommands(a.catalog.Count())
	a.bus.Subscribe(event.CatalogReloaded, func(e event.Event) {
		if data, ok := e.Data.(event.CatalogReloadedData); ok {
			collector.SetCommands(data.Commands)
		}
	})

	if !serveNoWatch {
		if err := a.catalog.Watch(ctx, a.service.CatalogReloaded); err != nil {
			logging.Warn().Err(err).Msg("catalog watcher not started")
		}
	}

	cfg := server.ConfigFrom(a.config)
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveHostname != "" {
		cfg.Hostname = serveHostname
	}
	srv := server.New(cfg, a.service, collector)

	logging.Info().
		Str("version", Version).
		Str("directory", a.workDir).
		Str("environment", a.config.Environment).
		Int("commands", a.catalog.Count()).
		Msg("starting commander server")

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr()).Str("base", srv.BasePath()).Msg("server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server shutdown")
	}
	logging.Info().Msg("server stopped")
	return nil
}
