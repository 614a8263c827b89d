// Package kvtest holds the behaviour every credentials.KV backend must share.
package kvtest

import (
	"context"
	"testing"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/users"
	"github.com/stretchr/testify/require"
)

// Run exercises kv directly and through a credentials.Store.
func Run(t *testing.T, kv credentials.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is not an error", func(t *testing.T) {
		_, ok, err := kv.Get(ctx, "does-not-exist")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, credentials.KeyAccessToken, "tok1"))
		require.NoError(t, kv.Set(ctx, credentials.KeyAccessToken, "tok2"))
		v, ok, err := kv.Get(ctx, credentials.KeyAccessToken)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "tok2", v)
	})

	t.Run("delete of missing keys is a no-op", func(t *testing.T) {
		require.NoError(t, kv.Delete(ctx, "nope", "also-nope"))
	})

	t.Run("store round trip", func(t *testing.T) {
		store := credentials.NewStore(kv)
		profile := users.Profile{ID: "1", Username: "a", Email: "a@b.com", Role: users.RoleAdmin}
		require.NoError(t, store.Set(ctx, credentials.Credential{AccessToken: "tok1", RefreshToken: "ref1"}, &profile))

		cred, ok := store.Credential(ctx)
		require.True(t, ok)
		require.Equal(t, credentials.Credential{AccessToken: "tok1", RefreshToken: "ref1"}, cred)

		got, ok := store.Profile(ctx)
		require.True(t, ok)
		require.Equal(t, profile, *got)

		require.NoError(t, store.Clear(ctx))
		_, ok = store.Credential(ctx)
		require.False(t, ok)
		_, ok = store.Profile(ctx)
		require.False(t, ok)
		_, ok, err := kv.Get(ctx, credentials.KeyRefreshToken)
		require.NoError(t, err)
		require.False(t, ok)
	})
}
