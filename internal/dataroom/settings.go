package dataroom

import (
	"fmt"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"
)

// Settings captures runtime configuration for dataroom features.
type Settings struct {
	ListLimitDefault   int
	ListLimitMax       int
	SearchLimitDefault int
	SearchLimitMax     int
	MaxUploadBytes     int64
	ExtractMaxChars    int
	NameRetryMax       int
	SnippetRadius      int
	RequestTimeout     time.Duration
}

// AuthSettings configures token issuance and login throttling.
type AuthSettings struct {
	TokenTTL         time.Duration
	LoginMaxFailures int
	LoginWindow      time.Duration
	BcryptCost       int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ListLimitDefault:   50,
		ListLimitMax:       200,
		SearchLimitDefault: 10,
		SearchLimitMax:     50,
		MaxUploadBytes:     25 << 20,
		ExtractMaxChars:    1_000_000,
		NameRetryMax:       3,
		SnippetRadius:      60,
		RequestTimeout:     30 * time.Second,
	}
}

// LoadSettingsFromConfig reads configuration and applies safe defaults.
func LoadSettingsFromConfig() Settings {
	def := DefaultSettings()
	settings := Settings{
		ListLimitDefault:   intFromConfig("settings.dataroom.list_limit_default", def.ListLimitDefault),
		ListLimitMax:       intFromConfig("settings.dataroom.list_limit_max", def.ListLimitMax),
		SearchLimitDefault: intFromConfig("settings.dataroom.search_limit_default", def.SearchLimitDefault),
		SearchLimitMax:     intFromConfig("settings.dataroom.search_limit_max", def.SearchLimitMax),
		MaxUploadBytes:     int64FromConfig("settings.dataroom.max_upload_bytes", def.MaxUploadBytes),
		ExtractMaxChars:    intFromConfig("settings.dataroom.extract_max_chars", def.ExtractMaxChars),
		NameRetryMax:       intFromConfig("settings.dataroom.name_retry_max", def.NameRetryMax),
		SnippetRadius:      intFromConfig("settings.dataroom.snippet_radius", def.SnippetRadius),
		RequestTimeout:     time.Duration(intFromConfig("settings.dataroom.request_timeout_ms", int(def.RequestTimeout/time.Millisecond))) * time.Millisecond,
	}

	return settings.normalize()
}

// normalize replaces unusable values with defaults.
func (s Settings) normalize() Settings {
	def := DefaultSettings()
	if s.ListLimitMax <= 0 {
		s.ListLimitMax = def.ListLimitMax
	}
	if s.ListLimitDefault <= 0 {
		s.ListLimitDefault = def.ListLimitDefault
	}
	if s.ListLimitDefault > s.ListLimitMax {
		s.ListLimitDefault = s.ListLimitMax
	}
	if s.SearchLimitMax <= 0 {
		s.SearchLimitMax = def.SearchLimitMax
	}
	if s.SearchLimitDefault <= 0 {
		s.SearchLimitDefault = def.SearchLimitDefault
	}
	if s.SearchLimitDefault > s.SearchLimitMax {
		s.SearchLimitDefault = s.SearchLimitMax
	}
	if s.MaxUploadBytes <= 0 {
		s.MaxUploadBytes = def.MaxUploadBytes
	}
	if s.ExtractMaxChars <= 0 {
		s.ExtractMaxChars = def.ExtractMaxChars
	}
	if s.NameRetryMax <= 0 {
		s.NameRetryMax = def.NameRetryMax
	}
	if s.SnippetRadius <= 0 {
		s.SnippetRadius = def.SnippetRadius
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = def.RequestTimeout
	}
	return s
}

// LoadAuthSettingsFromConfig reads auth configuration and applies safe defaults.
func LoadAuthSettingsFromConfig() AuthSettings {
	settings := AuthSettings{
		TokenTTL:         time.Duration(intFromConfig("settings.auth.token_ttl_hours", 12)) * time.Hour,
		LoginMaxFailures: intFromConfig("settings.auth.login_max_failures", 10),
		LoginWindow:      time.Duration(intFromConfig("settings.auth.login_window_seconds", 900)) * time.Second,
		BcryptCost:       intFromConfig("settings.auth.bcrypt_cost", 0),
	}
	if settings.TokenTTL <= 0 {
		settings.TokenTTL = 12 * time.Hour
	}
	if settings.LoginMaxFailures <= 0 {
		settings.LoginMaxFailures = 10
	}
	if settings.LoginWindow <= 0 {
		settings.LoginWindow = 15 * time.Minute
	}
	return settings
}

// intFromConfig reads an int configuration value with a default fallback.
func intFromConfig(key string, def int) int {
	return int(int64FromConfig(key, int64(def)))
}

// int64FromConfig reads an int64 configuration value with a default fallback.
func int64FromConfig(key string, def int64) int64 {
	value := gconfig.S.Get(key)
	switch v := value.(type) {
	case nil:
		return def
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return def
		}
		var parsed int64
		if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}
