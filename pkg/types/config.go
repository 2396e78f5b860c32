package types

// Config represents the commander configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Global tracking switch
	Enabled bool `json:"enabled"`

	// URL prefix the dashboard API is mounted under ("admin/commander")
	URL string `json:"url"`

	// Host environment ("production", "local", ...)
	Environment string `json:"environment"`

	// Execution table name
	Table string `json:"table"`

	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Log      LogConfig      `json:"log"`

	// What gets recorded for each execution
	TrackOutput        bool `json:"track_output"`
	TrackArguments     bool `json:"track_arguments"`
	TrackOptions       bool `json:"track_options"`
	TrackExecutionTime bool `json:"track_execution_time"`
	TrackUser          bool `json:"track_user"`

	// Output longer than this (in characters) is truncated
	MaxOutputLength int `json:"max_output_length"`

	// Records older than this are removed by cleanup
	RetentionDays int `json:"retention_days"`

	// Wildcard pattern lists ('*' and '?')
	TrackedCommands  []string `json:"tracked_commands"`
	IgnoredCommands  []string `json:"ignored_commands"`
	ExcludedCommands []string `json:"excluded_commands"`
	DisabledCommands []string `json:"disabled_commands"`

	// Failure notifications
	NotifyOnFailure      bool          `json:"notify_on_failure"`
	NotificationChannels []string      `json:"notification_channels"`
	Webhook              WebhookConfig `json:"webhook"`

	// Registered commands
	Commands    map[string]CommandConfig `json:"commands,omitempty"`
	CommandDirs []string                 `json:"command_dirs,omitempty"`

	// Read-only schedule listing
	Schedule []ScheduleEntry `json:"schedule,omitempty"`
}

// DatabaseConfig selects the execution store backend.
type DatabaseConfig struct {
	Driver        string `json:"driver"` // "sqlite"|"mysql"|"postgres"
	DSN           string `json:"dsn"`
	MaxOpenConns  int    `json:"max_open_conns,omitempty"`
	MaxIdleConns  int    `json:"max_idle_conns,omitempty"`
	SlowThreshold int    `json:"slow_threshold_ms,omitempty"`
}

// ServerConfig holds HTTP boundary settings.
type ServerConfig struct {
	Port           int    `json:"port"`
	Hostname       string `json:"hostname"`
	EnableCORS     bool   `json:"enable_cors"`
	RequestTimeout int    `json:"request_timeout"` // seconds
	UserHeader     string `json:"user_header"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `json:"level"`
	Pretty     bool   `json:"pretty,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// WebhookConfig configures the webhook notification channel.
type WebhookConfig struct {
	URL        string            `json:"url,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Timeout    int               `json:"timeout,omitempty"` // seconds
	MaxRetries int               `json:"max_retries,omitempty"`
}

// CommandConfig registers an invocable command.
// Either Run (a command line split into argv without a shell) or Argv must be set.
type CommandConfig struct {
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Help        string            `json:"help,omitempty" yaml:"help,omitempty"`
	Run         string            `json:"run,omitempty" yaml:"run,omitempty"`
	Argv        []string          `json:"argv,omitempty" yaml:"argv,omitempty"`
	Arguments   []ArgumentSpec    `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Options     []OptionSpec      `json:"options,omitempty" yaml:"options,omitempty"`
	DevOnly     bool              `json:"dev_only,omitempty" yaml:"dev_only,omitempty"`
	WorkDir     string            `json:"workdir,omitempty" yaml:"workdir,omitempty"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Timeout     int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // seconds
}

// ScheduleEntry describes a command the host runs on a cron expression.
type ScheduleEntry struct {
	Command     string         `json:"command"`
	Cron        string         `json:"cron"`
	Description string         `json:"description,omitempty"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
}
