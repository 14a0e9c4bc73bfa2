package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether token is a JWT whose exp claim is not after now. The
// signature is not checked; the API remains the authority on validity. Tokens that
// are not JWTs, or carry no exp claim, are never considered expired.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
