// Package gormlog routes gorm SQL logs into the service logger with
// oversized parameters truncated.
package gormlog

import (
	"context"
	"fmt"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	gormLogger "gorm.io/gorm/logger"
)

const defaultMaxLoggedParamLength = 256

// truncatingParamsLogger filters oversized SQL parameters before GORM prints SQL logs.
type truncatingParamsLogger struct {
	gormLogger.Interface
	maxLoggedParamLength int
}

// ParamsFilter truncates oversized parameter values to keep SQL logs concise.
func (l *truncatingParamsLogger) ParamsFilter(_ context.Context, sql string, params ...any) (string, []any) {
	if len(params) == 0 {
		return sql, params
	}

	return sql, sanitizeLoggedSQLParams(l.maxLoggedParamLength, params...)
}

// LogMode keeps the truncation wrapper when gorm switches levels.
func (l *truncatingParamsLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	return &truncatingParamsLogger{
		Interface:            l.Interface.LogMode(level),
		maxLoggedParamLength: l.maxLoggedParamLength,
	}
}

// printfWriter adapts a service logger to gorm's Writer.
type printfWriter struct {
	logger logSDK.Logger
}

// Printf logs one gorm line at debug level.
func (w printfWriter) Printf(format string, args ...any) {
	w.logger.Debug(fmt.Sprintf(format, args...))
}

// New builds a gorm logger that writes through logger. debug enables
// statement logging; otherwise only slow queries and errors are written.
func New(logger logSDK.Logger, debug bool) gormLogger.Interface {
	level := gormLogger.Warn
	if debug {
		level = gormLogger.Info
	}

	base := gormLogger.New(printfWriter{logger: logger}, gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
	return &truncatingParamsLogger{
		Interface:            base,
		maxLoggedParamLength: defaultMaxLoggedParamLength,
	}
}

// sanitizeLoggedSQLParams applies sanitizeLoggedSQLParam to every value.
func sanitizeLoggedSQLParams(maxLoggedParamLength int, params ...any) []any {
	filtered := make([]any, len(params))
	for idx, param := range params {
		filtered[idx] = sanitizeLoggedSQLParam(param, maxLoggedParamLength)
	}
	return filtered
}

// sanitizeLoggedSQLParam converts oversized parameter values into compact log-safe summaries.
// Extracted PDF text is the usual offender.
func sanitizeLoggedSQLParam(param any, maxLoggedParamLength int) any {
	switch value := param.(type) {
	case string:
		if len(value) > maxLoggedParamLength {
			return fmt.Sprintf("<string:len=%d,truncated>", len(value))
		}
		return value
	case []byte:
		if len(value) > maxLoggedParamLength {
			return fmt.Sprintf("<bytes:len=%d,truncated>", len(value))
		}
		return value
	default:
		return param
	}
}
