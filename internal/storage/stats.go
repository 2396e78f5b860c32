package storage

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/LaravelPlus/commander/pkg/types"
)

// aggregateSelect computes every AggregateStats field in one pass.
const aggregateSelect = `COUNT(*) AS total,
	COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS successful,
	COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed,
	COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
	AVG(execution_time) AS avg_time,
	MAX(execution_time) AS max_time,
	MIN(execution_time) AS min_time`

type aggregateRow struct {
	Total      int64
	Successful int64
	Failed     int64
	Pending    int64
	AvgTime    *float64
	MaxTime    *float64
	MinTime    *float64
}

func (r aggregateRow) stats() types.AggregateStats {
	st := types.AggregateStats{
		TotalExecutions:      r.Total,
		SuccessfulExecutions: r.Successful,
		FailedExecutions:     r.Failed,
		PendingExecutions:    r.Pending,
	}
	// Pending rows are counted in the total but have no outcome yet.
	if completed := r.Successful + r.Failed; completed > 0 {
		st.SuccessRate = Round(float64(r.Successful)/float64(completed)*100, 2)
	}
	if r.AvgTime != nil {
		st.AvgExecutionTime = Round(*r.AvgTime, 3)
	}
	if r.MaxTime != nil {
		st.MaxExecutionTime = Round(*r.MaxTime, 3)
	}
	if r.MinTime != nil {
		st.MinExecutionTime = Round(*r.MinTime, 3)
	}
	return st
}

// Round rounds v to the given number of decimals, half away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func (s *Store) aggregate(op string, q *gorm.DB) (types.AggregateStats, error) {
	var row aggregateRow
	if err := q.Select(aggregateSelect).Scan(&row).Error; err != nil {
		return types.AggregateStats{}, wrap(op, err)
	}
	return row.stats(), nil
}

// Stats aggregates the executions of name started within the last windowDays.
// A windowDays of zero or less covers all history.
func (s *Store) Stats(ctx context.Context, name string, windowDays int) (types.AggregateStats, error) {
	q := s.table(ctx).Where("command_name = ?", name)
	if windowDays > 0 {
		q = q.Where("started_at >= ?", time.Now().UTC().AddDate(0, 0, -windowDays))
	}
	return s.aggregate("command stats", q)
}

// Totals aggregates every execution in the table.
func (s *Store) Totals(ctx context.Context) (types.AggregateStats, error) {
	return s.aggregate("execution totals", s.table(ctx))
}

// TotalCount returns the number of execution records.
func (s *Store) TotalCount(ctx context.Context) (int64, error) {
	var n int64
	if err := s.table(ctx).Count(&n).Error; err != nil {
		return 0, wrap("count executions", err)
	}
	return n, nil
}

// CountByStatus returns the number of records in the given state.
func (s *Store) CountByStatus(ctx context.Context, status types.ExecutionStatus) (int64, error) {
	var n int64
	if err := s.table(ctx).Where("status = ?", string(status)).Count(&n).Error; err != nil {
		return 0, wrap("count executions", err)
	}
	return n, nil
}

// Popular returns the most executed commands.
func (s *Store) Popular(ctx context.Context, limit int) ([]types.PopularCommand, error) {
	out := []types.PopularCommand{}
	err := s.table(ctx).
		Select("command_name, COUNT(*) AS execution_count").
		Group("command_name").
		Order("execution_count DESC").Order("command_name ASC").
		Limit(clampLimit(limit, 10)).
		Scan(&out).Error
	if err != nil {
		return nil, wrap("popular commands", err)
	}
	return out, nil
}

// Failed returns commands with failures, most recent failure first.
func (s *Store) Failed(ctx context.Context, limit int) ([]types.FailedCommand, error) {
	// MAX(started_at) has no declared type on sqlite, so rows are scanned
	// by hand through flexTime.
	rows, err := s.table(ctx).
		Select("command_name, MAX(started_at) AS last_failed_at, COUNT(*) AS failure_count").
		Where("status = ?", string(types.StatusFailed)).
		Group("command_name").
		Order("last_failed_at DESC").
		Limit(clampLimit(limit, 10)).
		Rows()
	if err != nil {
		return nil, wrap("failed commands", err)
	}
	defer rows.Close()

	out := []types.FailedCommand{}
	for rows.Next() {
		var (
			name  string
			last  flexTime
			count int64
		)
		if err := rows.Scan(&name, &last, &count); err != nil {
			return nil, wrap("failed commands", err)
		}
		out = append(out, types.FailedCommand{
			CommandName:  name,
			LastFailedAt: last.Time,
			FailureCount: count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed commands", err)
	}
	return out, nil
}
