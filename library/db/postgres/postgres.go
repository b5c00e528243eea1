// Package postgres opens the production gorm database on pgx.
package postgres

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	errors "github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/library/db/gormlog"
)

// DialInfo postgres dial info
type DialInfo struct {
	Addr,
	DBName,
	User,
	Pwd string
	Port int
}

// BuildDSN builds a PostgreSQL DSN for shared database clients.
func BuildDSN(dialInfo DialInfo) string {
	port := dialInfo.Port
	if port <= 0 {
		port = 5432
	}
	host := dialInfo.Addr
	if h, p, err := net.SplitHostPort(dialInfo.Addr); err == nil {
		host = h
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	return "host=" + host + " user=" + dialInfo.User + " password=" + dialInfo.Pwd +
		" dbname=" + dialInfo.DBName + " port=" + strconv.Itoa(port) + " sslmode=disable TimeZone=UTC"
}

// NewGormDB connects with pgx, configures the pool, and wraps it with gorm.
func NewGormDB(ctx context.Context, dialInfo DialInfo, logger logSDK.Logger, debug bool) (*gorm.DB, error) {
	sqlDB, err := sql.Open("pgx", BuildDSN(dialInfo))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}

	// config db
	sqlDB.SetMaxIdleConns(6)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         gormlog.New(logger, debug),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "open gorm postgres")
	}

	return db, nil
}
