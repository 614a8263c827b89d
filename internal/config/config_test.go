package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/nccc-portal-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "http://localhost:5000/api/v1", cfg.GetAPIURL())
	require.Equal(t, "ws://localhost:5000/ws", cfg.GetSocketURL())
	require.Equal(t, "/auth/me", cfg.GetProfileRefreshPath())
	require.Equal(t, config.StoreFile, cfg.GetStoreBackend())
	require.Equal(t, time.Duration(0), cfg.GetSearchIdleTimeout())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
base_url: https://portal.example.com/
store_backend: sqlite
data_folder: /tmp/nccc
search_idle_timeout: 45s
`), 0o600)
	require.NoError(t, err)

	t.Setenv("NCCC_STORE_BACKEND", "redis")
	t.Setenv("NCCC_GOOGLE_SCOPES", "openid,email")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "https://portal.example.com/api/v1", cfg.GetAPIURL())
	require.Equal(t, "wss://portal.example.com/ws", cfg.GetSocketURL())
	require.Equal(t, config.StoreRedis, cfg.GetStoreBackend())
	require.Equal(t, "/tmp/nccc/credentials.db", cfg.GetSQLitePath())
	require.Equal(t, 45*time.Second, cfg.GetSearchIdleTimeout())
	require.Equal(t, []string{"openid", "email"}, cfg.GetGoogleScopes())
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("NCCC_STORE_BACKEND", "etcd")
	_, err := config.Load("")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown store backend")
}
