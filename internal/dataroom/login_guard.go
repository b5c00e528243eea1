package dataroom

import (
	"context"
	"strings"
	"sync"
	"time"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	rdb "github.com/Laisky/dataroom/library/db/redis"
	"github.com/Laisky/dataroom/library/log"
)

// LoginGuard throttles repeated failed logins per email.
type LoginGuard interface {
	// Allow reports whether another login attempt may be made.
	Allow(ctx context.Context, email string) bool
	// RecordFailure counts one failed attempt.
	RecordFailure(ctx context.Context, email string)
	// Reset clears the failure count after a successful login.
	Reset(ctx context.Context, email string)
}

type loginCounter struct {
	count     int
	expiresAt time.Time
}

// MemoryLoginGuard counts failures in process. Used when Redis is not configured.
type MemoryLoginGuard struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	clock       Clock
	counters    map[string]*loginCounter
}

// NewMemoryLoginGuard creates a guard allowing maxFailures per window.
func NewMemoryLoginGuard(maxFailures int, window time.Duration, clock Clock) *MemoryLoginGuard {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryLoginGuard{
		maxFailures: maxFailures,
		window:      window,
		clock:       clock,
		counters:    map[string]*loginCounter{},
	}
}

// Allow implements LoginGuard.
func (g *MemoryLoginGuard) Allow(_ context.Context, email string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.counters[email]
	if !ok {
		return true
	}
	if !c.expiresAt.After(g.clock()) {
		delete(g.counters, email)
		return true
	}
	return c.count < g.maxFailures
}

// RecordFailure implements LoginGuard.
func (g *MemoryLoginGuard) RecordFailure(_ context.Context, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	c, ok := g.counters[email]
	if !ok || !c.expiresAt.After(now) {
		g.counters[email] = &loginCounter{count: 1, expiresAt: now.Add(g.window)}
		return
	}
	c.count++
}

// Reset implements LoginGuard.
func (g *MemoryLoginGuard) Reset(_ context.Context, email string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.counters, email)
}

// RedisLoginGuard shares failure counters across replicas. Redis errors are
// logged and the attempt is allowed.
type RedisLoginGuard struct {
	cli         redis.Cmdable
	maxFailures int
	window      time.Duration
	logger      logSDK.Logger
}

// NewRedisLoginGuard creates a guard backed by cli.
func NewRedisLoginGuard(cli redis.Cmdable, maxFailures int, window time.Duration, logger logSDK.Logger) *RedisLoginGuard {
	if logger == nil {
		logger = log.Logger.Named("login_guard")
	}
	return &RedisLoginGuard{cli: cli, maxFailures: maxFailures, window: window, logger: logger}
}

func loginFailureKey(email string) string {
	return rdb.KeyPrefixLoginFailures + strings.ToLower(email)
}

// Allow implements LoginGuard.
func (g *RedisLoginGuard) Allow(ctx context.Context, email string) bool {
	count, err := g.cli.Get(ctx, loginFailureKey(email)).Int()
	switch {
	case err == redis.Nil:
		return true
	case err != nil:
		g.logger.Warn("login guard unavailable, allowing attempt", zap.Error(err))
		return true
	}
	return count < g.maxFailures
}

// RecordFailure implements LoginGuard. The window starts at the first failure.
func (g *RedisLoginGuard) RecordFailure(ctx context.Context, email string) {
	key := loginFailureKey(email)
	_, err := g.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, g.window)
		return nil
	})
	if err != nil {
		g.logger.Warn("record login failure", zap.Error(err))
	}
}

// Reset implements LoginGuard.
func (g *RedisLoginGuard) Reset(ctx context.Context, email string) {
	if err := g.cli.Del(ctx, loginFailureKey(email)).Err(); err != nil {
		g.logger.Warn("reset login failures", zap.Error(err))
	}
}
