package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerAdapter routes GORM logs through a module Logger.
// Statements go to TRACE; slow statements and query errors go to WARN.
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter creates an adapter. A zero slowThreshold disables slow query warnings.
func NewGormLoggerAdapter(log Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	return &GormLoggerAdapter{logger: log, slowThreshold: slowThreshold}
}

// LogMode returns the adapter unchanged; levels come from the central logger.
func (a *GormLoggerAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

func (a *GormLoggerAdapter) Info(_ context.Context, msg string, data ...any) {
	a.logger.Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(_ context.Context, msg string, data ...any) {
	a.logger.Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(_ context.Context, msg string, data ...any) {
	a.logger.Error(fmt.Sprintf(msg, data...))
}

// Trace logs an executed statement
func (a *GormLoggerAdapter) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.logger.Warn("query error",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.logger.Warn("slow query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed),
			Duration("threshold", a.slowThreshold))
	default:
		a.logger.Trace("sql query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Duration("elapsed", elapsed))
	}
}
