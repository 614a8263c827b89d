package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	apiPrefix = "/api/v1"
)

// Values is the flat configuration record. Fields are filled from defaults,
// then the optional YAML file, then environment variables.
type Values struct {
	AppName            string        `yaml:"app_name" env:"NCCC_APP_NAME"`
	Env                string        `yaml:"env" env:"ENV"`
	LogLevel           string        `yaml:"log_level" env:"NCCC_LOG_LEVEL"`
	BaseURL            string        `yaml:"base_url" env:"NCCC_BASE_URL"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"NCCC_REQUEST_TIMEOUT"`
	ProfileRefreshPath string        `yaml:"profile_refresh_path" env:"NCCC_PROFILE_REFRESH_PATH"`

	StoreBackend  string `yaml:"store_backend" env:"NCCC_STORE_BACKEND"`
	DataFolder    string `yaml:"data_folder" env:"NCCC_DATA_FOLDER"`
	SQLitePath    string `yaml:"sqlite_path" env:"NCCC_SQLITE_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"NCCC_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"NCCC_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"NCCC_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"NCCC_REDIS_PREFIX"`

	SocketURL         string        `yaml:"socket_url" env:"NCCC_SOCKET_URL"`
	SocketOrigin      string        `yaml:"socket_origin" env:"NCCC_SOCKET_ORIGIN"`
	SearchIdleTimeout time.Duration `yaml:"search_idle_timeout" env:"NCCC_SEARCH_IDLE_TIMEOUT"`

	GoogleClientID    string   `yaml:"google_client_id" env:"NCCC_GOOGLE_CLIENT_ID"`
	GoogleRedirectURL string   `yaml:"google_redirect_url" env:"NCCC_GOOGLE_REDIRECT_URL"`
	GoogleScopes      []string `yaml:"google_scopes" env:"NCCC_GOOGLE_SCOPES" envSeparator:","`
}

// Defaults returns the values used when neither the file nor the environment
// set a field.
func Defaults() Values {
	return Values{
		AppName:            "NCCC Portal",
		Env:                "DEV",
		LogLevel:           "info",
		BaseURL:            "http://localhost:5000",
		RequestTimeout:     30 * time.Second,
		ProfileRefreshPath: "/auth/me",
		StoreBackend:       StoreFile,
		DataFolder:         defaultDataFolder(),
		RedisAddr:          "localhost:6379",
		RedisPrefix:        "nccc:",
		GoogleScopes:       []string{"openid", "email", "profile"},
	}
}

// Load reads the YAML file at path (a missing file is not an error) and
// applies environment overrides on top.
func Load(path string) (Config, error) {
	values := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &values); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&values); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := values.Validate(); err != nil {
		return nil, err
	}
	return New(values), nil
}

// Validate checks the fields that have no usable fallback.
func (v Values) Validate() error {
	if strings.TrimSpace(v.BaseURL) == "" {
		return fmt.Errorf("base url is required")
	}
	switch v.StoreBackend {
	case StoreFile, StoreRedis, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", v.StoreBackend)
	}
	if v.RequestTimeout < 0 || v.SearchIdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "nccc")
}
