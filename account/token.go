package account

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpired reports whether token is a JWT whose exp claim lies before
// now. Opaque tokens and tokens without exp are never considered expired;
// the server remains the judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(now)
}

// TokenExpired reports whether token has already expired.
func TokenExpired(token string) bool {
	return tokenExpired(token, time.Now())
}
