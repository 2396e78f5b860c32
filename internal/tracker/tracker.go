// Package tracker records the lifecycle of one command invocation.
//
// Begin opens a pending execution record and returns a Handle; Complete
// finalizes it exactly once. Persistence failures are logged and swallowed:
// tracking never blocks or alters the command's own outcome.
package tracker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/LaravelPlus/commander/internal/filter"
	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/internal/storage"
	"github.com/LaravelPlus/commander/pkg/types"
)

// TruncationMarker is appended to output cut at the configured maximum.
const TruncationMarker = "\n\n[Output truncated - see logs for full output]"

// Store is the subset of the execution store the tracker writes to.
type Store interface {
	Create(ctx context.Context, rec *types.ExecutionRecord) (string, error)
	Complete(ctx context.Context, id string, c storage.Completion) error
}

// Tracker opens and closes execution records.
type Tracker struct {
	store  Store
	policy filter.Policy
	config *types.Config
	now    func() time.Time
}

// New creates a tracker.
func New(store Store, config *types.Config) *Tracker {
	return &Tracker{
		store:  store,
		policy: filter.NewPolicy(config),
		config: config,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle identifies one tracked invocation.
type Handle struct {
	id        string
	name      string
	startedAt time.Time
	start     time.Time // monotonic
	done      atomic.Bool
}

// ID returns the record id, or "" if the record could not be created.
func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// StartedAt returns the wall-clock start time.
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// Tracked reports whether a record backs this handle.
func (h *Handle) Tracked() bool {
	return h != nil && h.id != ""
}

// ShouldTrack reports whether executions of name are recorded.
func (t *Tracker) ShouldTrack(name string) bool {
	return t.policy.ShouldTrack(name)
}

// Begin creates a pending record for name. It always returns a handle; if the
// record cannot be created the handle is untracked and Complete is a no-op.
func (t *Tracker) Begin(ctx context.Context, name string, args, opts map[string]any, user string) *Handle {
	h := &Handle{name: name, startedAt: t.now(), start: time.Now()}

	rec := &types.ExecutionRecord{
		CommandName: name,
		Status:      types.StatusPending,
		Environment: t.config.Environment,
		StartedAt:   h.startedAt,
	}
	if t.config.TrackArguments {
		rec.Arguments = nonNil(args)
	}
	if t.config.TrackOptions {
		rec.Options = nonNil(opts)
	}
	if t.config.TrackUser && user != "" {
		rec.ExecutedBy = &user
	}

	id, err := t.store.Create(ctx, rec)
	if err != nil {
		logging.Warn().Err(err).Str("command", name).Msg("failed to create execution record")
		return h
	}
	h.id = id
	return h
}

// Complete finalizes the record behind h. Only the first call has an effect.
// It returns the elapsed time since Begin.
func (t *Tracker) Complete(ctx context.Context, h *Handle, success bool, returnCode int, output string) time.Duration {
	if h == nil {
		return 0
	}
	elapsed := time.Since(h.start)
	if !h.done.CompareAndSwap(false, true) || h.id == "" {
		return elapsed
	}

	c := storage.Completion{
		Success:     success,
		ReturnCode:  returnCode,
		CompletedAt: t.now(),
	}
	if t.config.TrackOutput {
		out := Truncate(output, t.config.MaxOutputLength)
		c.Output = &out
	}
	if t.config.TrackExecutionTime {
		secs := storage.Round(elapsed.Seconds(), 3)
		c.ExecutionTime = &secs
	}

	// The request may already be gone; the record still has to be closed.
	if err := t.store.Complete(context.WithoutCancel(ctx), h.id, c); err != nil {
		logging.Error().Err(err).Str("command", h.name).Str("execution_id", h.id).
			Msg("failed to complete execution record")
	}
	return elapsed
}

// Truncate caps output at max characters and appends TruncationMarker when it
// cuts. A max of zero or less disables truncation.
func Truncate(output string, max int) string {
	if max <= 0 {
		return output
	}
	n := 0
	for i := range output {
		if n == max {
			return output[:i] + TruncationMarker
		}
		n++
	}
	return output
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
