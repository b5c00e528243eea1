package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// minimalConfig returns the smallest configuration that passes validation.
func minimalConfig() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"secret": "s3cret",
			"db": map[string]any{
				"dialect": "sqlite",
				"sqlite":  map[string]any{"path": "data/dataroom.db"},
			},
		},
	}
}

// TestValidateStartupConfigWithGetterEmpty verifies required keys are reported.
func TestValidateStartupConfigWithGetterEmpty(t *testing.T) {
	err := validateStartupConfigWithGetter(newMapConfigGetter(map[string]any{}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.secret is required")
	require.Contains(t, err.Error(), "settings.db.postgres.addr is required")
}

func TestValidateStartupConfigWithGetterNil(t *testing.T) {
	require.Error(t, validateStartupConfigWithGetter(nil))
}

// TestValidateStartupConfigWithGetterMinimal verifies a sqlite setup with the fs backend passes.
func TestValidateStartupConfigWithGetterMinimal(t *testing.T) {
	err := validateStartupConfigWithGetter(newMapConfigGetter(minimalConfig()))
	require.NoError(t, err)
}

// TestValidateStartupConfigWithGetterInvalidDialect verifies unknown database dialects fail validation.
func TestValidateStartupConfigWithGetterInvalidDialect(t *testing.T) {
	cfg := minimalConfig()
	settings := cfg["settings"].(map[string]any)
	settings["db"] = map[string]any{"dialect": "mysql"}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.db.dialect")
}

// TestValidateStartupConfigWithGetterMinioRequiresBucket verifies the minio backend needs endpoint and bucket.
func TestValidateStartupConfigWithGetterMinioRequiresBucket(t *testing.T) {
	cfg := minimalConfig()
	settings := cfg["settings"].(map[string]any)
	settings["storage"] = map[string]any{
		"backend": "minio",
		"minio": map[string]any{
			"endpoint": "localhost:9000",
			"secure":   "not-a-bool",
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.storage.minio.bucket is required")
	require.Contains(t, err.Error(), "settings.storage.minio.secure must be a boolean")
	require.NotContains(t, err.Error(), "settings.storage.minio.endpoint")
}

// TestValidateStartupConfigWithGetterInvalidLimits verifies numeric limits and their relations.
func TestValidateStartupConfigWithGetterInvalidLimits(t *testing.T) {
	cfg := minimalConfig()
	settings := cfg["settings"].(map[string]any)
	settings["dataroom"] = map[string]any{
		"list_limit_default":   500,
		"list_limit_max":       200,
		"search_limit_default": 0,
		"max_upload_bytes":     "lots",
		"name_retry_max":       1.5,
	}
	settings["auth"] = map[string]any{"bcrypt_cost": 40}
	settings["redis"] = map[string]any{"db": -1}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "settings.dataroom.list_limit_default must be <= settings.dataroom.list_limit_max")
	require.Contains(t, msg, "settings.dataroom.search_limit_default must be >= 1")
	require.Contains(t, msg, "settings.dataroom.max_upload_bytes must be an integer")
	require.Contains(t, msg, "settings.dataroom.name_retry_max must be an integer")
	require.Contains(t, msg, "settings.auth.bcrypt_cost must be within [0, 31]")
	require.Contains(t, msg, "settings.redis.db must be >= 0")
}

// TestValidateStartupConfigWithGetterCORSOrigins verifies every CORS origin must be an absolute URL.
func TestValidateStartupConfigWithGetterCORSOrigins(t *testing.T) {
	cfg := minimalConfig()
	settings := cfg["settings"].(map[string]any)
	settings["web"] = map[string]any{
		"cors_origins": []any{"https://app.example.com", "not a url"},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.web.cors_origins[1]")
	require.NotContains(t, err.Error(), "settings.web.cors_origins[0]")

	settings["web"] = map[string]any{"cors_origins": "https://app.example.com"}
	err = validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.Error(t, err)
	require.Contains(t, err.Error(), "settings.web.cors_origins must be a list")
}

// TestValidateStartupConfigWithGetterValidConfig verifies valid explicit configuration passes validation.
func TestValidateStartupConfigWithGetterValidConfig(t *testing.T) {
	cfg := map[string]any{
		"settings": map[string]any{
			"secret": "s3cret",
			"db": map[string]any{
				"dialect": "postgres",
				"postgres": map[string]any{
					"addr": "127.0.0.1:5432",
					"db":   "dataroom",
					"user": "dataroom",
					"port": "5432",
				},
			},
			"storage": map[string]any{
				"backend": "minio",
				"minio": map[string]any{
					"endpoint": "minio:9000",
					"bucket":   "dataroom",
					"secure":   "yes",
				},
			},
			"redis": map[string]any{"addr": "redis:6379", "db": 1},
			"dataroom": map[string]any{
				"list_limit_default":   20,
				"list_limit_max":       100,
				"search_limit_default": 10,
				"search_limit_max":     50,
				"max_upload_bytes":     int64(50 << 20),
				"request_timeout_ms":   "30000",
			},
			"auth": map[string]any{
				"token_ttl_hours":      24,
				"login_max_failures":   5,
				"login_window_seconds": 600,
				"bcrypt_cost":          0,
			},
			"web": map[string]any{
				"listen":       "0.0.0.0:8080",
				"cors_origins": []string{"https://app.example.com"},
			},
		},
	}

	err := validateStartupConfigWithGetter(newMapConfigGetter(cfg))
	require.NoError(t, err)
}

// newMapConfigGetter builds a dotted-path getter for nested map-based test configuration.
// It accepts a nested map and returns a getter function compatible with validateStartupConfigWithGetter.
func newMapConfigGetter(root map[string]any) configGetter {
	return func(key string) any {
		if key == "" {
			return nil
		}

		parts := strings.Split(key, ".")
		var current any = root
		for _, part := range parts {
			nextMap, ok := current.(map[string]any)
			if !ok {
				return nil
			}

			next, exists := nextMap[part]
			if !exists {
				return nil
			}
			current = next
		}

		return current
	}
}
