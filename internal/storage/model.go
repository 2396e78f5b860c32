package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LaravelPlus/commander/pkg/types"
)

// Execution is the database row of an execution record.
type Execution struct {
	ID            string    `gorm:"primaryKey;size:26"`
	CommandName   string    `gorm:"size:255;not null;index:idx_exec_command_started,priority:1"`
	Arguments     JSONMap   `gorm:"type:text"`
	Options       JSONMap   `gorm:"type:text"`
	Output        *string   `gorm:"type:text"`
	ReturnCode    int       `gorm:"not null;default:0"`
	Success       *bool     `gorm:"index:idx_exec_success_started,priority:1"`
	Status        string    `gorm:"size:16;not null;default:'pending';index"`
	ExecutedBy    *string   `gorm:"size:255;index:idx_exec_user_started,priority:1"`
	Environment   string    `gorm:"size:64"`
	ExecutionTime *float64  `gorm:"type:decimal(8,3)"`
	StartedAt     time.Time `gorm:"not null;index:idx_exec_command_started,priority:2;index:idx_exec_success_started,priority:2;index:idx_exec_user_started,priority:2"`
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// JSONMap stores a name->value mapping as JSON text. A nil map is stored as NULL.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("JSONMap: unsupported type %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, (*map[string]any)(m))
}

func fromRecord(r *types.ExecutionRecord) *Execution {
	status := r.Status
	if status == "" {
		status = types.StatusPending
	}
	return &Execution{
		ID:            r.ID,
		CommandName:   r.CommandName,
		Arguments:     JSONMap(r.Arguments),
		Options:       JSONMap(r.Options),
		Output:        r.Output,
		ReturnCode:    r.ReturnCode,
		Success:       r.Success,
		Status:        string(status),
		ExecutedBy:    r.ExecutedBy,
		Environment:   r.Environment,
		ExecutionTime: r.ExecutionTime,
		StartedAt:     r.StartedAt.UTC(),
		CompletedAt:   r.CompletedAt,
	}
}

func (e *Execution) toRecord() types.ExecutionRecord {
	rec := types.ExecutionRecord{
		ID:            e.ID,
		CommandName:   e.CommandName,
		Arguments:     map[string]any(e.Arguments),
		Options:       map[string]any(e.Options),
		Output:        e.Output,
		ReturnCode:    e.ReturnCode,
		Success:       e.Success,
		Status:        types.ExecutionStatus(e.Status),
		ExecutedBy:    e.ExecutedBy,
		Environment:   e.Environment,
		ExecutionTime: e.ExecutionTime,
		StartedAt:     e.StartedAt.UTC(),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
	if e.CompletedAt != nil {
		t := e.CompletedAt.UTC()
		rec.CompletedAt = &t
	}
	return rec
}

func toRecords(rows []Execution) []types.ExecutionRecord {
	out := make([]types.ExecutionRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toRecord())
	}
	return out
}

// timeLayouts are the formats aggregate timestamps come back in when the
// driver cannot infer a column type (sqlite MAX(started_at)).
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// flexTime scans a timestamp delivered either as time.Time or as text.
type flexTime struct {
	time.Time
}

func (t *flexTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("flexTime: unsupported type %T", value)
	}
}

func (t *flexTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("flexTime: cannot parse %q", s)
}
