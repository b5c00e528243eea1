package jwt

import (
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// UserClaims identifies the caller by the numeric user id stored in sub.
type UserClaims struct {
	gjwt.RegisteredClaims
}

// UserID parses the subject as a positive integer.
func (uc *UserClaims) UserID() (int64, error) {
	sub := strings.TrimSpace(uc.Subject)
	if sub == "" {
		return 0, errors.New("token subject is empty")
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || uid <= 0 {
		return 0, errors.Errorf("token subject %q is not a user id", sub)
	}
	return uid, nil
}
