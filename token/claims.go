package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrOpaqueToken is returned when the access token is not a JWT. The client
// cannot reason about such tokens and must leave the decision to the backend.
var ErrOpaqueToken = errors.New("access token is not a JWT")

// Claims is the subset of the access token the client reads. Nothing here is
// verified: the client never holds the signing key, so these values are only
// hints used for local session policy, never for authorization.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Inspect decodes the access token payload without verifying its signature.
func Inspect(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" || strings.Count(rawToken, ".") != 2 {
		return Claims{}, ErrOpaqueToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, errors.Join(ErrOpaqueToken, err)
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, errors.New("error extracting claims")
	}

	var c Claims
	c.Subject, _ = claims.GetSubject()
	c.Role, _ = claims["role"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Expired reports whether the claims carry an exp claim that has passed.
func (c Claims) Expired() bool {
	return !c.ExpiresAt.IsZero() && NowTimeFunc().After(c.ExpiresAt)
}

// ProvablyExpired reports whether rawToken is a JWT whose exp claim has
// passed. Opaque or malformed tokens are never provably expired.
func ProvablyExpired(rawToken string) bool {
	c, err := Inspect(rawToken)
	if err != nil {
		return false
	}
	return c.Expired()
}
