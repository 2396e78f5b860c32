package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/LaravelPlus/commander/pkg/types"
)

// cleanupBatch bounds how many rows one delete statement removes, so cleanup
// never holds a long table lock.
const cleanupBatch = 1000

// Cleanup deletes executions started more than olderThanDays days ago and
// returns the number of deleted rows.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	return s.deleteBatched(ctx, "cleanup executions", func(q *gorm.DB) *gorm.DB {
		return q.Where("started_at < ?", cutoff)
	})
}

// ClearFailed deletes every failed execution.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.deleteBatched(ctx, "clear failed executions", func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", string(types.StatusFailed))
	})
}

func (s *Store) deleteBatched(ctx context.Context, op string, scope func(*gorm.DB) *gorm.DB) (int64, error) {
	var deleted int64
	for {
		if err := ctx.Err(); err != nil {
			return deleted, wrap(op, err)
		}

		var ids []string
		if err := scope(s.table(ctx)).Limit(cleanupBatch).Pluck("id", &ids).Error; err != nil {
			return deleted, wrap(op, err)
		}
		if len(ids) == 0 {
			return deleted, nil
		}

		res := s.table(ctx).Where("id IN ?", ids).Delete(&Execution{})
		if res.Error != nil {
			return deleted, wrap(op, res.Error)
		}
		deleted += res.RowsAffected

		if len(ids) < cleanupBatch {
			return deleted, nil
		}
	}
}
