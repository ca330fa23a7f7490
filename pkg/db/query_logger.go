package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

const slowQueryThreshold = 250 * time.Millisecond

// queryLogger routes gorm's trace hook into the service logger. Only failed
// and slow statements are reported; record-not-found is a normal outcome.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func newQueryLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slowQueryThreshold}
}

func (q *queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q *queryLogger) Info(context.Context, string, ...any) {}

func (q *queryLogger) Warn(context.Context, string, ...any) {}

func (q *queryLogger) Error(context.Context, string, ...any) {}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && elapsed < q.slow {
		return
	}
	sql, rows := fc()
	logCtx := q.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.logg.Error(logCtx, "db.query_failed", err)
		return
	}
	q.logg.Warn(logCtx, "db.query_slow")
}
