package types

import "time"

// ExecutionStatus is the lifecycle state of an execution record.
type ExecutionStatus string

const (
	StatusPending ExecutionStatus = "pending"
	StatusSuccess ExecutionStatus = "success"
	StatusFailed  ExecutionStatus = "failed"
)

// Valid reports whether s is a known status.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// ExecutionRecord is one row per command invocation attempt.
type ExecutionRecord struct {
	ID            string          `json:"id"`
	CommandName   string          `json:"command_name"`
	Arguments     map[string]any  `json:"arguments"`
	Options       map[string]any  `json:"options"`
	Output        *string         `json:"output"`
	ReturnCode    int             `json:"return_code"`
	Success       *bool           `json:"success"` // nil while pending
	Status        ExecutionStatus `json:"status"`
	ExecutedBy    *string         `json:"executed_by"`
	Environment   string          `json:"environment"`
	ExecutionTime *float64        `json:"execution_time"` // seconds
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InFlight reports whether the record has not been finalized yet.
func (r *ExecutionRecord) InFlight() bool {
	return r.Status == StatusPending || r.CompletedAt == nil
}

// AggregateStats is derived from execution rows on demand, never stored.
type AggregateStats struct {
	TotalExecutions      int64   `json:"total_executions"`
	SuccessfulExecutions int64   `json:"successful_executions"`
	FailedExecutions     int64   `json:"failed_executions"`
	PendingExecutions    int64   `json:"pending_executions"`
	SuccessRate          float64 `json:"success_rate"`
	AvgExecutionTime     float64 `json:"avg_execution_time"`
	MaxExecutionTime     float64 `json:"max_execution_time"`
	MinExecutionTime     float64 `json:"min_execution_time"`
}

// ExecutionResult is what run and retry return to their callers.
type ExecutionResult struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	ReturnCode    int     `json:"return_code"`
	ExecutionTime float64 `json:"execution_time"`
	StartedAt     string  `json:"started_at"`
	CompletedAt   string  `json:"completed_at"`
	ExecutionID   string  `json:"execution_id,omitempty"`
}

// ActivityFilter narrows an activity query. Empty fields are ignored.
type ActivityFilter struct {
	Status   string // "success", "failed" or "pending"
	Command  string // case-sensitive substring
	DateFrom string // YYYY-MM-DD
	DateTo   string // YYYY-MM-DD, inclusive through end of day
}

// Pagination describes one page of a paginated listing.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	LastPage    int   `json:"last_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	From        *int  `json:"from"`
	To          *int  `json:"to"`
}

// ActivityPage is a page of execution records.
type ActivityPage struct {
	Data       []ExecutionRecord `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// PopularCommand is a command with its execution count.
type PopularCommand struct {
	CommandName    string `json:"command_name"`
	ExecutionCount int64  `json:"execution_count"`
}

// FailedCommand is a command with its failure count and most recent failure.
type FailedCommand struct {
	CommandName  string    `json:"command_name"`
	LastFailedAt time.Time `json:"last_failed_at"`
	FailureCount int64     `json:"failure_count"`
}

// DashboardStats is the dashboard summary.
type DashboardStats struct {
	TotalCommands        int               `json:"total_commands"`
	TotalExecutions      int64             `json:"total_executions"`
	SuccessfulExecutions int64             `json:"successful_executions"`
	FailedExecutions     int64             `json:"failed_executions"`
	PendingExecutions    int64             `json:"pending_executions"`
	ScheduledCommands    int               `json:"scheduled_commands"`
	SuccessRate          float64           `json:"success_rate"`
	AvgExecutionTime     float64           `json:"avg_execution_time"`
	RecentActivity       []ExecutionRecord `json:"recent_activity"`
}

// ScheduledCommand is a schedule entry annotated with its next run.
type ScheduledCommand struct {
	Command     string         `json:"command"`
	Cron        string         `json:"cron"`
	Description string         `json:"description"`
	Arguments   map[string]any `json:"arguments,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
	NextRunAt   *time.Time     `json:"next_run_at"`
	Valid       bool           `json:"valid"`
	Error       string         `json:"error,omitempty"`
}
