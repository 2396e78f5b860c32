package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/internal/commander"
	"github.com/LaravelPlus/commander/internal/config"
	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/internal/notify"
	"github.com/LaravelPlus/commander/internal/storage"
	"github.com/LaravelPlus/commander/pkg/types"
)

// app is the wired service graph shared by every subcommand.
type app struct {
	workDir  string
	config   *types.Config
	store    *storage.Store
	catalog  *catalog.Catalog
	bus      *event.Bus
	service  *commander.Service
	notifier *notify.Notifier
}

// bootstrap loads configuration, sets up logging and opens the store.
func bootstrap() (*app, error) {
	dir, err := GetWorkDir(workDir)
	if err != nil {
		return nil, err
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	initLogging(cfg)

	store, err := storage.Open(cfg.Database, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("open execution store: %w", err)
	}

	bus := event.NewBus()
	cat := catalog.New(dir, cfg)
	a := &app{
		workDir: dir,
		config:  cfg,
		store:   store,
		catalog: cat,
		bus:     bus,
		service: commander.New(cfg, cat, store, bus),
	}

	if cfg.NotifyOnFailure {
		a.notifier = notify.New(cfg)
		a.notifier.Attach(bus)
	}
	return a, nil
}

// Close waits for pending notifications and releases the store.
func (a *app) Close() {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	_ = a.bus.Close()
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("closing execution store")
	}
}

// initLogging applies config and flags. Without --print-logs, logs go only to
// the configured file (or the state directory) so command output stays clean.
func initLogging(cfg *types.Config) {
	lc := logging.FromSettings(cfg.Log)
	if logLevel != "" {
		lc.Level = logging.ParseLevel(logLevel)
	}
	if printLogs {
		lc.Output = os.Stderr
		lc.Pretty = true
	} else {
		lc.Output = io.Discard
		if lc.File == "" {
			lc.File = config.GetPaths().LogPath()
		}
	}
	logging.Init(lc)
}
