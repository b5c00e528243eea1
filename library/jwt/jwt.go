// Package jwt issues and verifies HS256 bearer tokens.
package jwt

import (
	"strconv"
	"time"

	"github.com/Laisky/errors/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// JWT signs and parses user tokens with one HMAC secret.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option customizes a JWT.
type Option func(*JWT)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) { j.now = now }
}

// New returns a signer. ttl defaults to 12 hours.
func New(secret []byte, ttl time.Duration, opts ...Option) (*JWT, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	j := &JWT{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Sign issues a token whose subject is the decimal user id.
func (j *JWT) Sign(userID int64) (string, error) {
	now := j.now().UTC()
	token := gjwt.NewWithClaims(gjwt.SigningMethodHS256, UserClaims{
		RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(now.Add(j.ttl)),
		},
	})

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Parse verifies the token and returns the user id from its subject.
func (j *JWT) Parse(token string) (int64, error) {
	claims := &UserClaims{}
	parsed, err := gjwt.ParseWithClaims(token, claims,
		func(t *gjwt.Token) (any, error) { return j.secret, nil },
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if !parsed.Valid {
		return 0, errors.WithStack(ErrInvalidToken)
	}

	uid, err := claims.UserID()
	if err != nil {
		return 0, errors.Wrap(ErrInvalidToken, err.Error())
	}
	return uid, nil
}
