package filter

import (
	"github.com/LaravelPlus/commander/pkg/types"
)

// Reserved patterns hidden from the catalog regardless of configuration.
var reserved = []string{"commander:*", "package:*"}

// Policy applies the tracked/ignored/excluded/disabled lists.
type Policy struct {
	Enabled  bool
	Tracked  []string
	Ignored  []string
	Excluded []string
	Disabled []string
}

// NewPolicy builds a Policy from configuration.
func NewPolicy(cfg *types.Config) Policy {
	return Policy{
		Enabled:  cfg.Enabled,
		Tracked:  cfg.TrackedCommands,
		Ignored:  cfg.IgnoredCommands,
		Excluded: cfg.ExcludedCommands,
		Disabled: cfg.DisabledCommands,
	}
}

// ShouldTrack reports whether executions of name are recorded.
// A non-empty tracked list wins over the ignored list.
func (p Policy) ShouldTrack(name string) bool {
	if !p.Enabled {
		return false
	}
	if len(p.Tracked) > 0 {
		return MatchAny(name, p.Tracked)
	}
	return !MatchAny(name, p.Ignored)
}

// Hidden reports whether name is filtered out of catalog listings.
func (p Policy) Hidden(name string) bool {
	return p.Unrunnable(name) || MatchAny(name, p.Ignored)
}

// Unrunnable reports whether name cannot be resolved for execution at all.
// Ignored commands still run, they are just not listed or tracked.
func (p Policy) Unrunnable(name string) bool {
	return MatchAny(name, reserved) || MatchAny(name, p.Excluded)
}

// IsExcluded reports whether name matches the excluded list.
func (p Policy) IsExcluded(name string) bool {
	return MatchAny(name, p.Excluded)
}

// IsDisabled reports whether name is listed but cannot run.
func (p Policy) IsDisabled(name string) bool {
	return MatchAny(name, p.Disabled)
}
