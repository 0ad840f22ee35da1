package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/digitos-team/masala-software/pkg/logger"
)

// queryLog sends gorm's output through the service logger. Only failed
// statements and statements slower than slow are reported; a missing row is
// an expected result, not a failure.
type queryLog struct {
	logg  *logger.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

// QueryLogger builds the gorm logger used by New. A nil logg is silent.
func QueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	level := gormlogger.Warn
	if logg == nil {
		level = gormlogger.Silent
	}
	return &queryLog{logg: logg, slow: slow, level: level}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	if q.logg != nil {
		clone.level = level
	}
	return &clone
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, "gorm", fmt.Errorf(msg, args...))
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && took > q.slow
	if !failed && !slow && q.level < gormlogger.Info {
		return
	}

	query, rows := fc()
	logCtx := q.logg.WithFields(ctx, map[string]any{
		"sql":         query,
		"rows":        rows,
		"duration_ms": took.Milliseconds(),
	})
	switch {
	case failed && q.level >= gormlogger.Error:
		q.logg.Error(logCtx, "query failed", err)
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(logCtx, "slow query")
	case q.level >= gormlogger.Info:
		q.logg.Debug(logCtx, "query")
	}
}
