package gormlog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Laisky/dataroom/library/log"
)

// TestSanitizeLoggedSQLParam verifies oversized strings and bytes are summarized.
func TestSanitizeLoggedSQLParam(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", sanitizeLoggedSQLParam("short", 10))
	require.Equal(t, "<string:len=11,truncated>", sanitizeLoggedSQLParam("hello world", 10))
	require.Equal(t, "<bytes:len=20,truncated>", sanitizeLoggedSQLParam(make([]byte, 20), 10))
	require.Equal(t, 42, sanitizeLoggedSQLParam(42, 10))
}

// TestSanitizeLoggedSQLParams verifies params filtering sanitizes oversized values.
func TestSanitizeLoggedSQLParams(t *testing.T) {
	t.Parallel()

	longString := fmt.Sprintf("%0257d", 0)
	filtered := sanitizeLoggedSQLParams(defaultMaxLoggedParamLength, "a", longString, int64(3))
	require.Len(t, filtered, 3)
	require.Equal(t, "a", filtered[0])
	require.Equal(t, "<string:len=257,truncated>", filtered[1])
	require.Equal(t, int64(3), filtered[2])
}

// TestNewKeepsFilterAcrossLogMode verifies level changes keep the truncation wrapper.
func TestNewKeepsFilterAcrossLogMode(t *testing.T) {
	t.Parallel()

	logger := New(log.Logger.Named("test"), false)
	switched := logger.LogMode(gormLogger.Info)

	filter, ok := switched.(gorm.ParamsFilter)
	require.True(t, ok)

	sql, params := filter.ParamsFilter(context.Background(), "SELECT ?", strings.Repeat("x", 300))
	require.Equal(t, "SELECT ?", sql)
	require.Equal(t, []any{"<string:len=300,truncated>"}, params)
}
