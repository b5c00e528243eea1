// Package global global shared variables
package global

import (
	"context"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Laisky/dataroom/internal/library/blobstore"
	"github.com/Laisky/dataroom/library/config"
	"github.com/Laisky/dataroom/library/db/postgres"
	rdb "github.com/Laisky/dataroom/library/db/redis"
	"github.com/Laisky/dataroom/library/db/sqlite"
	"github.com/Laisky/dataroom/library/log"
)

var (
	// DB is the relational store for users, datarooms, folders and files.
	DB *gorm.DB
	// Blobs keeps uploaded file bytes.
	Blobs blobstore.Store
	// Redis is optional. It is nil unless settings.redis.addr is configured.
	Redis *rdb.DB
)

// SetupDB connects the configured database dialect.
func SetupDB(ctx context.Context) {
	var err error
	if DB, err = openDB(ctx, gconfig.S.GetBool("debug")); err != nil {
		log.Logger.Panic("connect database", zap.Error(err))
	}
}

func openDB(ctx context.Context, debug bool) (*gorm.DB, error) {
	logger := log.Logger.Named("gorm")
	dialect := strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.db.dialect")))
	switch dialect {
	case "", "postgres":
		db, err := postgres.NewGormDB(ctx, postgres.DialInfo{
			Addr:   gconfig.S.GetString("settings.db.postgres.addr"),
			DBName: gconfig.S.GetString("settings.db.postgres.db"),
			User:   gconfig.S.GetString("settings.db.postgres.user"),
			Pwd:    gconfig.S.GetString("settings.db.postgres.pwd"),
			Port:   gconfig.Shared.GetInt("settings.db.postgres.port"),
		}, logger, debug)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		log.Logger.Info("connected postgres",
			zap.String("addr", gconfig.S.GetString("settings.db.postgres.addr")))
		return db, nil
	case "sqlite":
		path := config.ResolvePath(gconfig.S.GetString("settings.db.sqlite.path"))
		db, err := sqlite.NewGormDB(path, logger, debug)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		log.Logger.Info("opened sqlite", zap.String("path", path))
		return db, nil
	default:
		return nil, errors.Errorf("unknown database dialect %q", dialect)
	}
}

// SetupStorage opens the configured blob backend.
func SetupStorage(ctx context.Context) {
	var err error
	if Blobs, err = openStorage(ctx); err != nil {
		log.Logger.Panic("open blob storage", zap.Error(err))
	}
}

func openStorage(ctx context.Context) (blobstore.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(gconfig.S.GetString("settings.storage.backend")))
	switch backend {
	case "", "fs":
		root := gconfig.S.GetString("settings.storage.fs.root")
		if root == "" {
			root = "uploads"
		}
		store, err := blobstore.NewFSStore(config.ResolvePath(root))
		if err != nil {
			return nil, errors.Wrap(err, "new fs store")
		}
		log.Logger.Info("use filesystem blob storage", zap.String("root", store.Root()))
		return store, nil
	case "minio":
		store, err := blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  gconfig.S.GetString("settings.storage.minio.endpoint"),
			AccessKey: gconfig.S.GetString("settings.storage.minio.access_key"),
			SecretKey: gconfig.S.GetString("settings.storage.minio.secret_key"),
			Bucket:    gconfig.S.GetString("settings.storage.minio.bucket"),
			Secure:    gconfig.S.GetBool("settings.storage.minio.secure"),
		})
		if err != nil {
			return nil, errors.Wrap(err, "new minio store")
		}
		log.Logger.Info("use minio blob storage",
			zap.String("endpoint", gconfig.S.GetString("settings.storage.minio.endpoint")),
			zap.String("bucket", gconfig.S.GetString("settings.storage.minio.bucket")))
		return store, nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", backend)
	}
}

// SetupRedis connects redis when configured. Login throttling falls back
// to process memory without it.
func SetupRedis(ctx context.Context) {
	addr := gconfig.S.GetString("settings.redis.addr")
	if addr == "" {
		log.Logger.Info("redis not configured, login throttling is kept in memory")
		return
	}

	cli := rdb.NewDB(&redis.Options{
		Addr:     addr,
		Password: gconfig.S.GetString("settings.redis.password"),
		DB:       gconfig.Shared.GetInt("settings.redis.db"),
	})
	if err := cli.Ping(ctx, 5*time.Second); err != nil {
		log.Logger.Panic("connect redis", zap.Error(err), zap.String("addr", addr))
	}

	Redis = cli
	log.Logger.Info("connected redis", zap.String("addr", addr))
}
