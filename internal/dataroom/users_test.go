package dataroom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t, DefaultSettings(), "")

	user, err := env.auth.Register(ctx, "  Alice@Example.com ", " s3cret ")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, ThemeLight, user.Theme)

	_, err = env.auth.Register(ctx, "alice@example.com", "other")
	requireCode(t, err, ErrCodeConflict)
	_, err = env.auth.Register(ctx, "", "x")
	requireCode(t, err, ErrCodeInvalidArgument)
	_, err = env.auth.Register(ctx, "bob@example.com", "   ")
	requireCode(t, err, ErrCodeInvalidArgument)

	token, err := env.auth.Login(ctx, "ALICE@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "bearer", token.TokenType)

	uid, err := env.auth.Authenticate(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)

	me, err := env.auth.Me(ctx, uid)
	require.NoError(t, err)
	require.Equal(t, user, me)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrong")
	requireCode(t, err, ErrCodeUnauthenticated)
	_, unknownErr := env.auth.Login(ctx, "nobody@example.com", "s3cret")
	requireCode(t, unknownErr, ErrCodeUnauthenticated)
	require.Equal(t, err.Error(), unknownErr.Error())

	_, err = env.auth.Authenticate("garbage")
	requireCode(t, err, ErrCodeUnauthenticated)
	_, err = env.auth.Authenticate("")
	requireCode(t, err, ErrCodeUnauthenticated)
}

func TestLoginThrottle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t, DefaultSettings(), "")
	_, err := env.auth.Register(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	// the test auth service allows three failures per window
	for i := 0; i < 3; i++ {
		_, err = env.auth.Login(ctx, "alice@example.com", "wrong")
		requireCode(t, err, ErrCodeUnauthenticated)
	}
	_, err = env.auth.Login(ctx, "alice@example.com", "s3cret")
	requireCode(t, err, ErrCodeRateLimited)
}

func TestUpdateTheme(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t, DefaultSettings(), "")
	user, err := env.auth.Register(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	theme, err := env.auth.UpdateTheme(ctx, user.ID, " DARK ")
	require.NoError(t, err)
	require.Equal(t, ThemeDark, theme)

	me, err := env.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, ThemeDark, me.Theme)

	_, err = env.auth.UpdateTheme(ctx, user.ID, "blue")
	requireCode(t, err, ErrCodeInvalidArgument)
	_, err = env.auth.UpdateTheme(ctx, user.ID+100, ThemeDark)
	requireCode(t, err, ErrCodeUnauthenticated)
}

func TestMemoryLoginGuard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newTickClock(testEpoch, 0)
	guard := NewMemoryLoginGuard(2, time.Minute, clock.Now)

	require.True(t, guard.Allow(ctx, "a"))
	guard.RecordFailure(ctx, "a")
	require.True(t, guard.Allow(ctx, "a"))
	guard.RecordFailure(ctx, "a")
	require.False(t, guard.Allow(ctx, "a"))
	require.True(t, guard.Allow(ctx, "b"))

	clock.mu.Lock()
	clock.now = clock.now.Add(2 * time.Minute)
	clock.mu.Unlock()
	require.True(t, guard.Allow(ctx, "a"))

	guard.RecordFailure(ctx, "a")
	guard.RecordFailure(ctx, "a")
	require.False(t, guard.Allow(ctx, "a"))
	guard.Reset(ctx, "a")
	require.True(t, guard.Allow(ctx, "a"))
}
