package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/LaravelPlus/commander/pkg/types"
)

// Completion holds the fields written when an execution finishes.
// Nil pointers leave the column untouched.
type Completion struct {
	Success       bool
	ReturnCode    int
	Output        *string
	ExecutionTime *float64
	CompletedAt   time.Time
}

// Create inserts a new execution record and returns its id.
func (s *Store) Create(ctx context.Context, rec *types.ExecutionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = types.StatusPending
	}

	row := fromRecord(rec)
	if err := s.table(ctx).Create(row).Error; err != nil {
		return "", wrap("create execution", err)
	}
	rec.CreatedAt = row.CreatedAt
	rec.UpdatedAt = row.UpdatedAt
	return rec.ID, nil
}

// Update applies a partial update. It fails with ErrNotFound if id is absent.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := s.table(ctx).Model(&Execution{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return wrap("update execution", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("execution %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// Complete finalizes an execution.
func (s *Store) Complete(ctx context.Context, id string, c Completion) error {
	status := types.StatusFailed
	if c.Success {
		status = types.StatusSuccess
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}

	fields := map[string]any{
		"status":       string(status),
		"success":      c.Success,
		"return_code":  c.ReturnCode,
		"completed_at": c.CompletedAt.UTC(),
	}
	if c.Output != nil {
		fields["output"] = *c.Output
	}
	if c.ExecutionTime != nil {
		fields["execution_time"] = *c.ExecutionTime
	}
	return s.Update(ctx, id, fields)
}

// Get returns one execution by id.
func (s *Store) Get(ctx context.Context, id string) (*types.ExecutionRecord, error) {
	var rows []Execution
	if err := s.table(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, wrap("get execution", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("execution %s: %w", id, types.ErrNotFound)
	}
	rec := rows[0].toRecord()
	return &rec, nil
}

// LastByCommand returns the most recent execution of name regardless of
// outcome, or nil if there is none.
func (s *Store) LastByCommand(ctx context.Context, name string) (*types.ExecutionRecord, error) {
	return s.last("last execution", s.table(ctx).Where("command_name = ?", name))
}

// LastFailedByCommand returns the most recent failed execution of name, or nil.
func (s *Store) LastFailedByCommand(ctx context.Context, name string) (*types.ExecutionRecord, error) {
	return s.last("last failed execution",
		s.table(ctx).Where("command_name = ? AND status = ?", name, string(types.StatusFailed)))
}

func (s *Store) last(op string, q *gorm.DB) (*types.ExecutionRecord, error) {
	var rows []Execution
	if err := q.Order("started_at DESC").Order("id DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, wrap(op, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0].toRecord()
	return &rec, nil
}

// History returns the latest executions of name, newest first.
func (s *Store) History(ctx context.Context, name string, limit int) ([]types.ExecutionRecord, error) {
	var rows []Execution
	err := s.table(ctx).
		Where("command_name = ?", name).
		Order("started_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 10)).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("execution history", err)
	}
	return toRecords(rows), nil
}

// Recent returns the latest executions across all commands.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.ExecutionRecord, error) {
	var rows []Execution
	err := s.table(ctx).
		Order("started_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 10)).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("recent executions", err)
	}
	return toRecords(rows), nil
}

// ByUser returns the latest executions started by user.
func (s *Store) ByUser(ctx context.Context, user string, limit int) ([]types.ExecutionRecord, error) {
	var rows []Execution
	err := s.table(ctx).
		Where("executed_by = ?", user).
		Order("started_at DESC").Order("id DESC").
		Limit(clampLimit(limit, 10)).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("executions by user", err)
	}
	return toRecords(rows), nil
}

// ByDateRange returns executions started in [from, to), newest first.
func (s *Store) ByDateRange(ctx context.Context, from, to time.Time) ([]types.ExecutionRecord, error) {
	var rows []Execution
	err := s.table(ctx).
		Where("started_at >= ? AND started_at < ?", from.UTC(), to.UTC()).
		Order("started_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap("executions by date range", err)
	}
	return toRecords(rows), nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
