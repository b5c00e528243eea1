// Package redis wraps the go-redis client used for login throttling.
package redis

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis
type DB struct {
	cli *redis.Client
}

// NewDB creates a new DB instance
func NewDB(opt *redis.Options) *DB {
	return &DB{cli: redis.NewClient(opt)}
}

// Client returns the underlying client.
func (db *DB) Client() *redis.Client {
	return db.cli
}

// Ping checks the connection within timeout.
func (db *DB) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.cli.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "ping redis")
	}
	return nil
}

// Close closes the client.
func (db *DB) Close() error {
	return errors.WithStack(db.cli.Close())
}
