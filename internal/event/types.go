package event

import "time"

// ExecutionStartedData is the data for execution.started events.
type ExecutionStartedData struct {
	ExecutionID string         `json:"execution_id,omitempty"`
	Command     string         `json:"command"`
	Arguments   map[string]any `json:"arguments"`
	Options     map[string]any `json:"options"`
	ExecutedBy  string         `json:"executed_by,omitempty"`
	Environment string         `json:"environment"`
	StartedAt   time.Time      `json:"started_at"`
}

// ExecutionFinishedData is the data for execution.completed and
// execution.failed events.
type ExecutionFinishedData struct {
	ExecutionID   string    `json:"execution_id,omitempty"`
	Command       string    `json:"command"`
	Success       bool      `json:"success"`
	ReturnCode    int       `json:"return_code"`
	ExecutionTime float64   `json:"execution_time"`
	Output        string    `json:"output"`
	ExecutedBy    string    `json:"executed_by,omitempty"`
	Environment   string    `json:"environment"`
	CompletedAt   time.Time `json:"completed_at"`
}

// CatalogReloadedData is the data for catalog.reloaded events.
type CatalogReloadedData struct {
	Commands int `json:"commands"`
}

// RecordsCleanedData is the data for records.cleaned events.
type RecordsCleanedData struct {
	Deleted    int64 `json:"deleted_count"`
	Days       int   `json:"days,omitempty"`
	FailedOnly bool  `json:"failed_only"`
}
