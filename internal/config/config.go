// Package config provides configuration loading from an optional YAML file
// with environment-variable overrides.
package config

import (
	"time"
)

// AppConfig holds configuration for the materialization CLI.
type AppConfig struct {
	MetricsPort        string
	PollInterval       time.Duration // fixed sleep between job status fetches
	CallbackURL        string        // optional run-event destination; empty disables notifications
	CallbackSigningKey string
	UploadTimeout      time.Duration // per-request timeout for staged uploads
	UploadRetries      int
}

// LoadAppConfig loads configuration. Values resolve in order: built-in
// defaults, then the YAML file named by CONFIG_FILE (if any), then
// environment variables.
func LoadAppConfig() *AppConfig {
	cfg := &AppConfig{
		MetricsPort:   "9090",
		PollInterval:  60 * time.Second,
		UploadTimeout: 60 * time.Second,
		UploadRetries: 3,
	}

	if path := GetEnv("CONFIG_FILE", ""); path != "" {
		applyFile(cfg, path)
	}

	cfg.MetricsPort = GetEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.PollInterval = GetDurationEnv("POLL_INTERVAL", cfg.PollInterval)
	cfg.CallbackURL = GetEnv("CALLBACK_URL", cfg.CallbackURL)
	cfg.CallbackSigningKey = GetSecretFile(GetEnv("CALLBACK_SIGNING_KEY_FILE", ""))
	if cfg.CallbackSigningKey == "" {
		cfg.CallbackSigningKey = GetEnv("CALLBACK_SIGNING_KEY", "")
	}
	cfg.UploadTimeout = GetDurationEnv("UPLOAD_TIMEOUT", cfg.UploadTimeout)
	cfg.UploadRetries = GetIntEnv("UPLOAD_RETRIES", cfg.UploadRetries)

	return cfg
}
