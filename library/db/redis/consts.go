package redis

const (
	keyPrefix = "dataroom/"

	// KeyPrefixLoginFailures prefixes the per-email failed login counters
	KeyPrefixLoginFailures = keyPrefix + "login_failures/"
)
