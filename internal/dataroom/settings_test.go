package dataroom

import (
	"testing"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSettings(t *testing.T) {
	t.Parallel()

	require.Equal(t, DefaultSettings(), Settings{}.normalize())

	s := Settings{ListLimitDefault: 500, ListLimitMax: 100, SearchLimitDefault: 80, SearchLimitMax: 20}.normalize()
	require.Equal(t, 100, s.ListLimitDefault)
	require.Equal(t, 20, s.SearchLimitDefault)
}

// TestLoadSettingsFromConfig mutates shared config so it does not run in parallel.
func TestLoadSettingsFromConfig(t *testing.T) {
	keys := []string{
		"settings.dataroom.list_limit_max",
		"settings.dataroom.max_upload_bytes",
		"settings.dataroom.request_timeout_ms",
		"settings.auth.token_ttl_hours",
	}
	original := make(map[string]any, len(keys))
	for _, key := range keys {
		original[key] = gconfig.S.Get(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			gconfig.S.Set(key, value)
		}
	})

	gconfig.S.Set("settings.dataroom.list_limit_max", 20)
	gconfig.S.Set("settings.dataroom.max_upload_bytes", "1024")
	gconfig.S.Set("settings.dataroom.request_timeout_ms", 1500)
	gconfig.S.Set("settings.auth.token_ttl_hours", 2)

	s := LoadSettingsFromConfig()
	require.Equal(t, 20, s.ListLimitMax)
	require.Equal(t, 20, s.ListLimitDefault)
	require.EqualValues(t, 1024, s.MaxUploadBytes)
	require.Equal(t, 1500*time.Millisecond, s.RequestTimeout)
	require.Equal(t, 3, s.NameRetryMax)

	auth := LoadAuthSettingsFromConfig()
	require.Equal(t, 2*time.Hour, auth.TokenTTL)
	require.Equal(t, 10, auth.LoginMaxFailures)
}
