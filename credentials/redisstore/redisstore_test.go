package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/credentials/kvtest"
	"github.com/jrsteele09/nccc-portal-client/credentials/redisstore"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := redisstore.Open(context.Background(), redisstore.Config{Addr: mr.Addr(), Prefix: "nccc:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := openTestStore(t)
	kvtest.Run(t, s)
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	s, mr := openTestStore(t)
	require.NoError(t, s.Set(context.Background(), credentials.KeyAccessToken, "tok1"))

	v, err := mr.Get("nccc:" + credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "tok1", v)
}

func TestRedisStore_OpenFailsWhenUnreachable(t *testing.T) {
	_, err := redisstore.Open(context.Background(), redisstore.Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
