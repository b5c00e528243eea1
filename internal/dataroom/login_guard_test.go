package dataroom

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/dataroom/library/log"
)

func TestRedisLoginGuardFailsOpen(t *testing.T) {
	t.Parallel()

	cli := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer cli.Close()

	guard := NewRedisLoginGuard(cli, 1, time.Minute, log.Logger.Named("test"))
	ctx := context.Background()

	guard.RecordFailure(ctx, "a@example.com")
	guard.RecordFailure(ctx, "a@example.com")
	require.True(t, guard.Allow(ctx, "a@example.com"))
	guard.Reset(ctx, "a@example.com")
}

func TestLoginFailureKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "dataroom/login_failures/a@example.com", loginFailureKey("A@Example.com"))
}
