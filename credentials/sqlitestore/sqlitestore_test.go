package sqlitestore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/nccc-portal-client/credentials"
	"github.com/jrsteele09/nccc-portal-client/credentials/kvtest"
	"github.com/jrsteele09/nccc-portal-client/credentials/sqlitestore"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	s, err := sqlitestore.Open(filepath.Join(t.TempDir(), "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	kvtest.Run(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.db")

	first, err := sqlitestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, credentials.NewStore(first).Set(ctx, credentials.Credential{AccessToken: "tok1", RefreshToken: "ref1"}, nil))
	require.NoError(t, first.Close())

	second, err := sqlitestore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	cred, ok := credentials.NewStore(second).Credential(ctx)
	require.True(t, ok)
	require.Equal(t, "ref1", cred.RefreshToken)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := sqlitestore.Open(" ")
	require.Error(t, err)
}
