package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/nccc-portal-client/token"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("1234"))
	require.NoError(t, err)
	return raw
}

func TestInspect(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = time.Now })

	t.Run("reads subject, role and expiry", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{
			"sub":  "user-1",
			"role": "admin",
			"iat":  now.Add(-time.Hour).Unix(),
			"exp":  now.Add(time.Hour).Unix(),
		})
		c, err := token.Inspect(raw)
		require.NoError(t, err)
		require.Equal(t, "user-1", c.Subject)
		require.Equal(t, "admin", c.Role)
		require.Equal(t, now.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
		require.False(t, c.Expired())
		require.False(t, token.ProvablyExpired(raw))
	})

	t.Run("expired token", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{"sub": "user-1", "exp": now.Add(-time.Minute).Unix()})
		require.True(t, token.ProvablyExpired(raw))
	})

	t.Run("no exp claim is never expired", func(t *testing.T) {
		raw := signedToken(t, jwtlib.MapClaims{"sub": "user-1"})
		require.False(t, token.ProvablyExpired(raw))
	})

	t.Run("opaque token", func(t *testing.T) {
		_, err := token.Inspect("tok1")
		require.ErrorIs(t, err, token.ErrOpaqueToken)
		require.False(t, token.ProvablyExpired("tok1"))
	})
}
