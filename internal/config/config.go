package config

import "time"

type Config interface {
	ClientConfig
	StorageConfig
	RealtimeConfig
	OAuthConfig
}

type ClientConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetProfileRefreshPath() string
}

type StorageConfig interface {
	GetStoreBackend() string
	GetDataFolder() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type RealtimeConfig interface {
	GetSocketURL() string
	GetSocketOrigin() string
	GetSearchIdleTimeout() time.Duration
}

type OAuthConfig interface {
	GetGoogleClientID() string
	GetGoogleRedirectURL() string
	GetGoogleScopes() []string
}

type mainConfig struct {
	values Values
}

var _ Config = mainConfig{}

// New returns a Config over already loaded values.
func New(values Values) Config {
	return mainConfig{values: values}
}
