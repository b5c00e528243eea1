package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateSecretConfig(get, &validationErrs)
	validateDBConfig(get, &validationErrs)
	validateStorageConfig(get, &validationErrs)
	validateRedisConfig(get, &validationErrs)
	validateDataroomConfig(get, &validationErrs)
	validateAuthConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateSecretConfig requires the token signing secret.
func validateSecretConfig(get configGetter, errs *[]string) {
	raw := get("settings.secret")
	if raw == nil {
		appendValidationError(errs, "settings.secret is required")
		return
	}
	validateOptionalStringNonEmpty(get, "settings.secret", errs)
}

// validateDBConfig validates the database dialect and its connection settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateDBConfig(get configGetter, errs *[]string) {
	dialect := "postgres"
	if raw := get("settings.db.dialect"); raw != nil {
		value, parseErr := parseStrictString(raw)
		if parseErr != nil {
			appendValidationError(errs, "settings.db.dialect must be a string")
			return
		}
		dialect = strings.ToLower(strings.TrimSpace(value))
	}

	switch dialect {
	case "postgres":
		validateRequiredString(get, "settings.db.postgres.addr", errs)
		validateRequiredString(get, "settings.db.postgres.db", errs)
		validateRequiredString(get, "settings.db.postgres.user", errs)
		validateOptionalIntRange(get, "settings.db.postgres.port", 1, 65535, errs)
	case "sqlite":
		validateRequiredString(get, "settings.db.sqlite.path", errs)
	default:
		appendValidationError(errs, "settings.db.dialect must be one of [postgres, sqlite]")
	}
}

// validateStorageConfig validates the blob storage backend settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateStorageConfig(get configGetter, errs *[]string) {
	backend := "fs"
	if raw := get("settings.storage.backend"); raw != nil {
		value, parseErr := parseStrictString(raw)
		if parseErr != nil {
			appendValidationError(errs, "settings.storage.backend must be a string")
			return
		}
		backend = strings.ToLower(strings.TrimSpace(value))
	}

	switch backend {
	case "fs":
		validateOptionalStringNonEmpty(get, "settings.storage.fs.root", errs)
	case "minio":
		validateRequiredString(get, "settings.storage.minio.endpoint", errs)
		validateRequiredString(get, "settings.storage.minio.bucket", errs)
		validateOptionalBool(get, "settings.storage.minio.secure", errs)
	default:
		appendValidationError(errs, "settings.storage.backend must be one of [fs, minio]")
	}
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.redis.addr", errs)
	validateOptionalIntMin(get, "settings.redis.db", 0, errs)
}

// validateDataroomConfig validates pagination, upload, and search tuning.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateDataroomConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.dataroom.list_limit_default", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.list_limit_max", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.search_limit_default", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.search_limit_max", 1, errs)
	validateOptionalInt64Min(get, "settings.dataroom.max_upload_bytes", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.extract_max_chars", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.name_retry_max", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.snippet_radius", 1, errs)
	validateOptionalIntMin(get, "settings.dataroom.request_timeout_ms", 1, errs)

	validateLimitRelation(get, "settings.dataroom.list_limit_default", "settings.dataroom.list_limit_max", errs)
	validateLimitRelation(get, "settings.dataroom.search_limit_default", "settings.dataroom.search_limit_max", errs)
}

// validateAuthConfig validates token and login throttling settings.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateAuthConfig(get configGetter, errs *[]string) {
	validateOptionalIntMin(get, "settings.auth.token_ttl_hours", 1, errs)
	validateOptionalIntMin(get, "settings.auth.login_max_failures", 1, errs)
	validateOptionalIntMin(get, "settings.auth.login_window_seconds", 1, errs)
	validateOptionalIntRange(get, "settings.auth.bcrypt_cost", 0, 31, errs)
}

// validateWebConfig validates the listener and CORS allowlist.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateWebConfig(get configGetter, errs *[]string) {
	validateOptionalStringNonEmpty(get, "settings.web.listen", errs)

	raw := get("settings.web.cors_origins")
	if raw == nil {
		return
	}

	origins, ok := raw.([]any)
	if !ok {
		if typed, isStrings := raw.([]string); isStrings {
			for _, origin := range typed {
				origins = append(origins, origin)
			}
		} else {
			appendValidationError(errs, "settings.web.cors_origins must be a list")
			return
		}
	}

	for i, item := range origins {
		key := fmt.Sprintf("settings.web.cors_origins[%d]", i)
		validateOptionalURL(func(string) any { return item }, key, errs)
	}
}

// validateLimitRelation validates that a default limit does not exceed its maximum.
func validateLimitRelation(get configGetter, defaultKey, maxKey string, errs *[]string) {
	defaultRaw := get(defaultKey)
	maxRaw := get(maxKey)
	if defaultRaw == nil || maxRaw == nil {
		return
	}

	defaultVal, defaultErr := parseStrictInt(defaultRaw)
	maxVal, maxErr := parseStrictInt(maxRaw)
	if defaultErr == nil && maxErr == nil && defaultVal > maxVal {
		appendValidationError(errs, "%s must be <= %s", defaultKey, maxKey)
	}
}

// validateRequiredString validates that a key is configured with a non-empty string.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}
	validateOptionalStringNonEmpty(get, key, errs)
}

// validateOptionalIntRange validates an optionally configured integer key within [min, max].
func validateOptionalIntRange(get configGetter, key string, min, max int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}
	if value < min || value > max {
		appendValidationError(errs, "%s must be within [%d, %d]", key, min, max)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalInt64Min validates an optionally configured int64 key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalInt64Min(get configGetter, key string, min int64, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt64(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictInt64 parses a value as a strict int64.
// It accepts a raw value and returns the parsed int64 and an error when parsing fails.
func parseStrictInt64(value any) (int64, error) {
	parsed, err := parseStrictInt(value)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int64(parsed), nil
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
