package commander

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/LaravelPlus/commander/internal/catalog"
	"github.com/LaravelPlus/commander/internal/event"
	"github.com/LaravelPlus/commander/internal/invoker"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/internal/schedule"
	"github.com/LaravelPlus/commander/internal/storage"
	"github.com/LaravelPlus/commander/internal/tracker"
	"github.com/LaravelPlus/commander/pkg/types"
)

// Defaults for list operations when the caller passes no limit.
const (
	DefaultHistoryLimit = 50
	DefaultStatsDays    = 30
	DefaultRecentLimit  = 10
	DefaultPopularLimit = 5
	DefaultFailedLimit  = 10
	DashboardRecent     = 5
	DefaultRetention    = 90
)

// listConcurrency bounds store round-trips made by ListWithExecutionData.
const listConcurrency = 8

// Request is one command invocation.
type Request struct {
	Command   string
	Arguments map[string]any
	Options   map[string]any
	User      string
}

// Service wires the catalog, invoker, tracker and store together.
type Service struct {
	config   *types.Config
	catalog  *catalog.Catalog
	invoker  *invoker.Invoker
	store    *storage.Store
	tracker  *tracker.Tracker
	schedule *schedule.Schedule
	bus      *event.Bus
	now      func() time.Time
}

// New creates a service. bus may be nil, in which case the process-wide bus is used.
func New(cfg *types.Config, cat *catalog.Catalog, store *storage.Store, bus *event.Bus) *Service {
	if bus == nil {
		bus = event.Default()
	}
	return &Service{
		config:   cfg,
		catalog:  cat,
		invoker:  invoker.New(cat, cfg.Environment),
		store:    store,
		tracker:  tracker.New(store, cfg),
		schedule: schedule.New(cfg.Schedule, func(name string) bool { _, ok := cat.Lookup(name); return ok }),
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *types.Config { return s.config }

// Catalog returns the command catalog.
func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

// Bus returns the event bus executions are published on.
func (s *Service) Bus() *event.Bus { return s.bus }

// ListWithExecutionData returns every visible command joined with its last
// execution and its stats over the last 30 days.
func (s *Service) ListWithExecutionData(ctx context.Context) ([]types.CommandView, error) {
	commands := s.catalog.List()
	views := make([]types.CommandView, len(commands))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, desc := range commands {
		g.Go(func() error {
			last, err := s.store.LastByCommand(gctx, desc.Name)
			if err != nil && !errors.Is(err, types.ErrNotFound) {
				return err
			}
			stats, err := s.store.Stats(gctx, desc.Name, DefaultStatsDays)
			if err != nil {
				return err
			}
			views[i] = types.CommandView{
				CommandDescriptor: desc,
				LastExecution:     lastExecution(last),
				Stats:             stats,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func lastExecution(rec *types.ExecutionRecord) *types.LastExecution {
	if rec == nil {
		return nil
	}
	le := &types.LastExecution{
		Status:        rec.Status,
		StartedAt:     formatTime(rec.StartedAt),
		ExecutionTime: rec.ExecutionTime,
		Success:       rec.Success,
		ReturnCode:    rec.ReturnCode,
	}
	if rec.CompletedAt != nil {
		c := formatTime(*rec.CompletedAt)
		le.CompletedAt = &c
	}
	return le
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Preflight reports whether name exists and may run here, without running it.
func (s *Service) Preflight(name string) error {
	if name == "" {
		return types.NewValidationError("command", "Command name is required")
	}
	_, err := s.invoker.Resolve(name)
	return err
}

// Execute runs a command and records it. It never returns an error: a
// command that cannot run yields a failed result with return code 1 and the
// error message as output. Commands rejected before running (unknown,
// disabled, restricted) leave no record.
func (s *Service) Execute(ctx context.Context, req Request) types.ExecutionResult {
	args, opts := nonNil(req.Arguments), nonNil(req.Options)
	started := s.now()
	start := time.Now()

	if err := s.Preflight(req.Command); err != nil {
		logging.Warn().Err(err).Str("command", req.Command).Msg("command rejected")
		completed := s.now()
		return types.ExecutionResult{
			Success:       false,
			Output:        err.Error(),
			ReturnCode:    1,
			ExecutionTime: storage.Round(time.Since(start).Seconds(), 3),
			StartedAt:     formatTime(started),
			CompletedAt:   formatTime(completed),
		}
	}

	var handle *tracker.Handle
	if s.tracker.ShouldTrack(req.Command) {
		handle = s.tracker.Begin(ctx, req.Command, args, opts, req.User)
		started = handle.StartedAt()
	}

	s.bus.PublishSync(event.Event{Type: event.ExecutionStarted, Data: event.ExecutionStartedData{
		ExecutionID: handle.ID(),
		Command:     req.Command,
		Arguments:   args,
		Options:     opts,
		ExecutedBy:  req.User,
		Environment: s.config.Environment,
		StartedAt:   started,
	}})

	result := s.invoke(ctx, req.Command, args, opts)

	if handle != nil {
		s.tracker.Complete(ctx, handle, result.Success(), result.ExitCode, result.Output)
	}
	completed := s.now()

	// Reported time covers the invocation only, not record keeping.
	out := types.ExecutionResult{
		Success:       result.Success(),
		Output:        result.Output,
		ReturnCode:    result.ExitCode,
		ExecutionTime: storage.Round(result.Duration.Seconds(), 3),
		StartedAt:     formatTime(started),
		CompletedAt:   formatTime(completed),
		ExecutionID:   handle.ID(),
	}

	finished := event.ExecutionCompleted
	if !out.Success {
		finished = event.ExecutionFailed
	}
	s.bus.PublishSync(event.Event{Type: finished, Data: event.ExecutionFinishedData{
		ExecutionID:   out.ExecutionID,
		Command:       req.Command,
		Success:       out.Success,
		ReturnCode:    out.ReturnCode,
		ExecutionTime: out.ExecutionTime,
		Output:        tracker.Truncate(out.Output, s.config.MaxOutputLength),
		ExecutedBy:    req.User,
		Environment:   s.config.Environment,
		CompletedAt:   completed,
	}})
	return out
}

// invoke converts invoker errors and panics into a failed result.
func (s *Service) invoke(ctx context.Context, name string, args, opts map[string]any) (res invoker.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Str("command", name).Interface("panic", r).Msg("command execution panicked")
			res = invoker.Result{ExitCode: 1, Output: fmt.Sprintf("panic: %v", r), Duration: time.Since(start)}
		}
	}()

	res, err := s.invoker.Invoke(ctx, name, args, opts)
	if err != nil {
		logging.Error().Err(err).
			Str("command", name).
			Interface("arguments", args).
			Interface("options", opts).
			Msg("command execution failed")
		return invoker.Result{ExitCode: 1, Output: err.Error(), Duration: time.Since(start)}
	}
	return res
}

// Retry re-runs name with the arguments and options of its latest execution.
// Every retry creates a new record.
func (s *Service) Retry(ctx context.Context, name, user string) (types.ExecutionResult, error) {
	if name == "" {
		return types.ExecutionResult{}, types.NewValidationError("command", "Command name is required")
	}
	last, err := s.store.LastByCommand(ctx, name)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return types.ExecutionResult{}, err
	}
	if last == nil {
		return types.ExecutionResult{}, &types.NoPriorExecutionError{Name: name}
	}
	return s.Execute(ctx, Request{
		Command:   name,
		Arguments: last.Arguments,
		Options:   last.Options,
		User:      user,
	}), nil
}

// DashboardStats summarizes the catalog and the execution table.
func (s *Service) DashboardStats(ctx context.Context) (*types.DashboardStats, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.Recent(ctx, DashboardRecent)
	if err != nil {
		return nil, err
	}
	return &types.DashboardStats{
		TotalCommands:        s.catalog.Count(),
		TotalExecutions:      totals.TotalExecutions,
		SuccessfulExecutions: totals.SuccessfulExecutions,
		FailedExecutions:     totals.FailedExecutions,
		PendingExecutions:    totals.PendingExecutions,
		ScheduledCommands:    s.schedule.Count(s.now()),
		SuccessRate:          totals.SuccessRate,
		AvgExecutionTime:     totals.AvgExecutionTime,
		RecentActivity:       recent,
	}, nil
}

// History returns the latest executions of name.
func (s *Service) History(ctx context.Context, name string, limit int) ([]types.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.store.History(ctx, name, limit)
}

// Stats aggregates executions of name over the last days.
func (s *Service) Stats(ctx context.Context, name string, days int) (types.AggregateStats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	return s.store.Stats(ctx, name, days)
}

// Recent returns the latest executions across all commands.
func (s *Service) Recent(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.store.Recent(ctx, limit)
}

// Popular returns the most executed commands.
func (s *Service) Popular(ctx context.Context, limit int) ([]types.PopularCommand, error) {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	return s.store.Popular(ctx, limit)
}

// Failed returns commands with failed executions.
func (s *Service) Failed(ctx context.Context, limit int) ([]types.FailedCommand, error) {
	if limit <= 0 {
		limit = DefaultFailedLimit
	}
	return s.store.Failed(ctx, limit)
}

// ByUser returns the latest executions started by user.
func (s *Service) ByUser(ctx context.Context, user string, limit int) ([]types.ExecutionRecord, error) {
	if user == "" {
		return nil, types.NewValidationError("user", "User is required")
	}
	return s.store.ByUser(ctx, user, limit)
}

// Between returns executions started in [from, to), newest first.
func (s *Service) Between(ctx context.Context, from, to time.Time) ([]types.ExecutionRecord, error) {
	if !to.After(from) {
		return nil, types.NewValidationError("to", "The end date must be after the start date")
	}
	return s.store.ByDateRange(ctx, from, to)
}

// Activity returns one page of executions matching f.
func (s *Service) Activity(ctx context.Context, page, perPage int, f types.ActivityFilter) (*types.ActivityPage, error) {
	return s.store.Activity(ctx, page, perPage, f)
}

// Search returns visible commands whose name or description contains query.
func (s *Service) Search(query string) []types.CommandDescriptor {
	return s.catalog.Search(query)
}

// Categories returns the command namespaces.
func (s *Service) Categories() []string {
	return s.catalog.Categories()
}

// ByCategory returns the commands in one namespace.
func (s *Service) ByCategory(category string) []types.CommandDescriptor {
	return s.catalog.ByCategory(category)
}

// Schedule lists the configured schedule with next run times.
func (s *Service) Schedule() []types.ScheduledCommand {
	return s.schedule.List(s.now())
}

// Cleanup deletes records older than days. A nil days uses retention_days.
func (s *Service) Cleanup(ctx context.Context, days *int) (int64, error) {
	d := s.config.RetentionDays
	if d <= 0 {
		d = DefaultRetention
	}
	if days != nil {
		d = *days
	}
	if d < 1 {
		return 0, types.NewValidationError("days", "Days must be at least 1")
	}

	n, err := s.store.Cleanup(ctx, d)
	if err != nil {
		return 0, err
	}
	logging.Info().Int("days", d).Int64("deleted", n).Msg("cleaned up execution records")
	s.bus.Publish(event.Event{Type: event.RecordsCleaned, Data: event.RecordsCleanedData{Deleted: n, Days: d}})
	return n, nil
}

// ClearFailed deletes every failed record.
func (s *Service) ClearFailed(ctx context.Context) (int64, error) {
	n, err := s.store.ClearFailed(ctx)
	if err != nil {
		return 0, err
	}
	logging.Info().Int64("deleted", n).Msg("cleared failed execution records")
	s.bus.Publish(event.Event{Type: event.RecordsCleaned, Data: event.RecordsCleanedData{Deleted: n, FailedOnly: true}})
	return n, nil
}

// ReloadCatalog re-reads command definitions and announces the new size.
func (s *Service) ReloadCatalog() {
	s.catalog.Reload()
	s.CatalogReloaded()
}

// CatalogReloaded publishes catalog.reloaded with the current size.
func (s *Service) CatalogReloaded() {
	s.bus.Publish(event.Event{Type: event.CatalogReloaded, Data: event.CatalogReloadedData{Commands: s.catalog.Count()}})
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
