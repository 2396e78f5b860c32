package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/LaravelPlus/commander/pkg/types"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	dateLayout     = "2006-01-02"
)

// Activity returns one page of execution records matching filter, newest first.
func (s *Store) Activity(ctx context.Context, page, perPage int, filter types.ActivityFilter) (*types.ActivityPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	q, err := s.applyFilter(s.table(ctx), filter)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, wrap("count activity", err)
	}

	var rows []Execution
	err = q.Session(&gorm.Session{}).
		Order("started_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("activity", err)
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}

	p := types.Pagination{
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Total:       total,
	}
	if len(rows) > 0 {
		from := (page-1)*perPage + 1
		to := from + len(rows) - 1
		p.From, p.To = &from, &to
	}

	return &types.ActivityPage{Data: toRecords(rows), Pagination: p}, nil
}

func (s *Store) applyFilter(q *gorm.DB, f types.ActivityFilter) (*gorm.DB, error) {
	if f.Status != "" {
		status := types.ExecutionStatus(f.Status)
		if !status.Valid() {
			return nil, types.NewValidationError("status", "Invalid status '%s'", f.Status)
		}
		q = q.Where("status = ?", string(status))
	}

	if f.Command != "" {
		// Case-sensitive substring; LIKE folds case on sqlite and mysql.
		switch s.driver() {
		case "mysql":
			q = q.Where("LOCATE(BINARY ?, command_name) > 0", f.Command)
		case "postgres":
			q = q.Where("strpos(command_name, ?) > 0", f.Command)
		default:
			q = q.Where("instr(command_name, ?) > 0", f.Command)
		}
	}

	if f.DateFrom != "" {
		from, err := time.ParseInLocation(dateLayout, f.DateFrom, time.UTC)
		if err != nil {
			return nil, types.NewValidationError("dateFrom", "Invalid dateFrom '%s', expected YYYY-MM-DD", f.DateFrom)
		}
		q = q.Where("started_at >= ?", from)
	}

	if f.DateTo != "" {
		to, err := time.ParseInLocation(dateLayout, f.DateTo, time.UTC)
		if err != nil {
			return nil, types.NewValidationError("dateTo", "Invalid dateTo '%s', expected YYYY-MM-DD", f.DateTo)
		}
		// Inclusive through the end of the day.
		q = q.Where("started_at < ?", to.AddDate(0, 0, 1))
	}

	return q, nil
}
