// Package schedule lists the commands a host runs on cron expressions.
// Nothing here executes a command; entries are parsed to report their next run.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LaravelPlus/commander/pkg/types"
)

// Accepts the five standard fields, an optional leading seconds field and
// descriptors such as @daily or @every 5m.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Lookup reports whether a command name exists.
type Lookup func(name string) bool

// Schedule is the read-only list of configured entries.
type Schedule struct {
	entries []types.ScheduleEntry
	exists  Lookup
}

// New creates a schedule over entries. exists may be nil.
func New(entries []types.ScheduleEntry, exists Lookup) *Schedule {
	return &Schedule{entries: entries, exists: exists}
}

// Parse parses a cron expression.
func Parse(expr string) (cron.Schedule, error) {
	s, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// List returns every entry annotated with its next run after now. Invalid
// entries are kept with Valid=false and the reason in Error.
func (s *Schedule) List(now time.Time) []types.ScheduledCommand {
	out := make([]types.ScheduledCommand, 0, len(s.entries))
	for _, e := range s.entries {
		sc := types.ScheduledCommand{
			Command:     e.Command,
			Cron:        e.Cron,
			Description: e.Description,
			Arguments:   e.Arguments,
			Options:     e.Options,
		}
		switch sched, err := Parse(e.Cron); {
		case e.Command == "":
			sc.Error = "command is required"
		case err != nil:
			sc.Error = err.Error()
		case s.exists != nil && !s.exists(e.Command):
			sc.Error = fmt.Sprintf("Command '%s' not found", e.Command)
		default:
			next := sched.Next(now).UTC()
			sc.NextRunAt = &next
			sc.Valid = true
		}
		out = append(out, sc)
	}
	return out
}

// Count returns the number of valid entries.
func (s *Schedule) Count(now time.Time) int {
	n := 0
	for _, sc := range s.List(now) {
		if sc.Valid {
			n++
		}
	}
	return n
}
