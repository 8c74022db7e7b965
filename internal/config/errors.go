package config

import "errors"

// Configuration errors
var (
	// ErrMissingAPIURL indicates the station API URL is not set
	ErrMissingAPIURL = errors.New("api_url is required")

	// ErrInvalidRefreshInterval indicates the refresh interval is too short
	ErrInvalidRefreshInterval = errors.New("refresh_interval must be at least 1 second")

	// ErrInvalidJobTimeout indicates a negative job timeout
	ErrInvalidJobTimeout = errors.New("job_timeout must not be negative")

	// ErrInvalidPort indicates the status port is out of valid range
	ErrInvalidPort = errors.New("status_port must be between 0 and 65535")

	// ErrInvalidRedisURL indicates the Redis URL does not use a redis scheme
	ErrInvalidRedisURL = errors.New("redis.url must start with redis:// or rediss://")
)
