// Package config loads the windmobile configuration.
//
// Values come from three layers, later layers winning:
//
//  1. environment defaults (WINDMOBILE_*)
//  2. the YAML file (~/.windmobile/config.yaml or --config)
//  3. command-line flags, applied by the cmd package
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the windmobile configuration.
type Config struct {
	// APIURL is the base URL of the station API
	APIURL string `yaml:"api_url"`

	// RefreshInterval is the time between automatic refreshes in watch mode
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// JobTimeout bounds one job execution (0 disables the timeout)
	JobTimeout time.Duration `yaml:"job_timeout"`

	// SnapshotDB is the path of the SQLite snapshot database ("" disables it)
	SnapshotDB string `yaml:"snapshot_db"`

	// StatusPort is the port of the status HTTP server (0 disables it)
	StatusPort int `yaml:"status_port"`

	// NodeName identifies this node in status payloads
	NodeName string `yaml:"node_name"`

	// Stations lists favourite station ids
	Stations []string `yaml:"stations"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures event fan-out. An empty URL disables it.
type RedisConfig struct {
	URL           string `yaml:"url"`
	Password      string `yaml:"password"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

// Enabled reports whether Redis publishing is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// Dir returns the windmobile state directory (~/.windmobile).
func Dir() string {
	if dir := os.Getenv("WINDMOBILE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".windmobile"
	}
	return filepath.Join(home, ".windmobile")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a Config with defaults taken from the environment.
func DefaultConfig() *Config {
	return &Config{
		APIURL:          getEnvOrDefault("WINDMOBILE_API_URL", "https://api.windmobile.ch/api/2"),
		RefreshInterval: time.Duration(getEnvInt("WINDMOBILE_REFRESH_INTERVAL", 60)) * time.Second,
		JobTimeout:      time.Duration(getEnvInt("WINDMOBILE_JOB_TIMEOUT", 30)) * time.Second,
		SnapshotDB:      getEnvOrDefault("WINDMOBILE_SNAPSHOT_DB", filepath.Join(Dir(), "snapshots.db")),
		StatusPort:      getEnvInt("WINDMOBILE_STATUS_PORT", 0),
		NodeName:        getEnvOrDefault("WINDMOBILE_NODE_NAME", ""),
		Redis: RedisConfig{
			URL:           getEnvOrDefault("WINDMOBILE_REDIS_URL", ""),
			Password:      getEnvOrDefault("WINDMOBILE_REDIS_PASSWORD", ""),
			ChannelPrefix: getEnvOrDefault("WINDMOBILE_REDIS_PREFIX", "windmobile"),
		},
	}
}

// Load reads the config file at path over the environment defaults. An empty
// path reads DefaultPath, which may be missing. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return ErrMissingAPIURL
	}
	if c.RefreshInterval < time.Second {
		return ErrInvalidRefreshInterval
	}
	if c.JobTimeout < 0 {
		return ErrInvalidJobTimeout
	}
	if c.StatusPort < 0 || c.StatusPort > 65535 {
		return ErrInvalidPort
	}
	if c.Redis.Enabled() && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return ErrInvalidRedisURL
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as an int or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
