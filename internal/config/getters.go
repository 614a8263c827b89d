package config

import (
	"path/filepath"
	"strings"
	"time"
)

func (c mainConfig) GetAppName() string {
	return c.values.AppName
}

func (c mainConfig) GetEnv() string {
	if c.values.Env == "" {
		return "DEV"
	}
	return c.values.Env
}

func (c mainConfig) GetLogLevel() string {
	return c.values.LogLevel
}

func (c mainConfig) GetBaseURL() string {
	return strings.TrimRight(c.values.BaseURL, "/")
}

// GetAPIURL returns the REST root every gateway path is resolved against.
func (c mainConfig) GetAPIURL() string {
	return c.GetBaseURL() + apiPrefix
}

func (c mainConfig) GetRequestTimeout() time.Duration {
	return c.values.RequestTimeout
}

func (c mainConfig) GetProfileRefreshPath() string {
	return c.values.ProfileRefreshPath
}

func (c mainConfig) GetStoreBackend() string {
	return c.values.StoreBackend
}

func (c mainConfig) GetDataFolder() string {
	return c.values.DataFolder
}

func (c mainConfig) GetSQLitePath() string {
	if c.values.SQLitePath != "" {
		return c.values.SQLitePath
	}
	return filepath.Join(c.GetDataFolder(), "credentials.db")
}

func (c mainConfig) GetRedisAddr() string {
	return c.values.RedisAddr
}

func (c mainConfig) GetRedisPassword() string {
	return c.values.RedisPassword
}

func (c mainConfig) GetRedisDB() int {
	return c.values.RedisDB
}

func (c mainConfig) GetRedisPrefix() string {
	return c.values.RedisPrefix
}

// GetSocketURL returns the websocket endpoint. When not configured it is
// derived from the base URL (http -> ws, https -> wss) with a /ws path.
func (c mainConfig) GetSocketURL() string {
	if c.values.SocketURL != "" {
		return c.values.SocketURL
	}
	base := c.GetBaseURL()
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

func (c mainConfig) GetSocketOrigin() string {
	if c.values.SocketOrigin != "" {
		return c.values.SocketOrigin
	}
	return c.GetBaseURL()
}

// GetSearchIdleTimeout is zero (disabled) unless configured.
func (c mainConfig) GetSearchIdleTimeout() time.Duration {
	return c.values.SearchIdleTimeout
}

func (c mainConfig) GetGoogleClientID() string {
	return c.values.GoogleClientID
}

func (c mainConfig) GetGoogleRedirectURL() string {
	if c.values.GoogleRedirectURL != "" {
		return c.values.GoogleRedirectURL
	}
	return c.GetBaseURL() + "/auth/google/callback"
}

func (c mainConfig) GetGoogleScopes() []string {
	return c.values.GoogleScopes
}
