package types

// Command sources
const (
	SourceBuiltin = "builtin"
	SourceConfig  = "config"
	SourceFile    = "file"
)

// DefaultCategory groups commands without a ':' namespace.
const DefaultCategory = "general"

// CommandDescriptor is the metadata of one invocable command.
// It is recomputed on every catalog read and never persisted.
type CommandDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Help        string         `json:"help"`
	Arguments   []ArgumentSpec `json:"arguments"`
	Options     []OptionSpec   `json:"options"`
	Disabled    bool           `json:"disabled"`
	Excluded    bool           `json:"excluded"`
	DevOnly     bool           `json:"dev_only"`
	Source      string         `json:"source"`
}

// ArgumentSpec describes a positional argument.
type ArgumentSpec struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Default     *string `json:"default" yaml:"default,omitempty"`
	Required    bool    `json:"required" yaml:"-"`
}

// OptionSpec describes a --flag.
type OptionSpec struct {
	Name         string  `json:"name" yaml:"name"`
	Shortcut     *string `json:"shortcut" yaml:"shortcut,omitempty"`
	Description  string  `json:"description" yaml:"description,omitempty"`
	Default      any     `json:"default" yaml:"default,omitempty"`
	Required     bool    `json:"required" yaml:"required,omitempty"`
	AcceptsValue bool    `json:"accepts_value" yaml:"accepts_value,omitempty"`
}

// CommandView is a descriptor joined with its execution data, as shown by the dashboard.
type CommandView struct {
	CommandDescriptor
	LastExecution *LastExecution `json:"last_execution"`
	Stats         AggregateStats `json:"stats"`
}

// LastExecution summarizes the most recent execution of a command.
type LastExecution struct {
	Status        ExecutionStatus `json:"status"`
	StartedAt     string          `json:"started_at"`
	CompletedAt   *string         `json:"completed_at"`
	ExecutionTime *float64        `json:"execution_time"`
	Success       *bool           `json:"success"`
	ReturnCode    int             `json:"return_code"`
}
