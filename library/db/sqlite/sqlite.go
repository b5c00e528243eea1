// Package sqlite opens a file backed gorm database for local runs.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mattn/go-sqlite3"
	gormSqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/library/db/gormlog"
)

const (
	// DriverName is the database/sql driver registered by this package.
	DriverName = "sqlite3_dataroom"
	// LowerFunc folds text with Unicode case rules. The builtin LOWER only
	// handles ASCII letters.
	LowerFunc = "dr_lower"
)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(LowerFunc, strings.ToLower, true)
		},
	})
}

// Open returns a gorm dialector for dsn on the registered driver.
func Open(dsn string) gorm.Dialector {
	return gormSqlite.New(gormSqlite.Config{DriverName: DriverName, DSN: dsn})
}

// BuildDSN enables foreign keys and a busy timeout on the database file.
func BuildDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// NewGormDB opens (creating when needed) the sqlite database at path.
func NewGormDB(path string, logger logSDK.Logger, debug bool) (*gorm.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create sqlite dir")
	}

	db, err := gorm.Open(Open(BuildDSN(path)), &gorm.Config{
		Logger:         gormlog.New(logger, debug),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	if err != nil {
		return nil, errors.Wrap(err, "open gorm sqlite")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sqlite handle")
	}
	// sqlite allows one writer at a time
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
