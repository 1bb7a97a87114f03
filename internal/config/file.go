package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors AppConfig with YAML tags. Durations are strings in the
// file ("60s", "5m") and parsed on apply.
type fileConfig struct {
	MetricsPort  string `yaml:"metrics_port"`
	PollInterval string `yaml:"poll_interval"`
	Callback     struct {
		URL        string `yaml:"url"`
		SigningKey string `yaml:"signing_key"`
	} `yaml:"callback"`
	Upload struct {
		Timeout string `yaml:"timeout"`
		Retries *int   `yaml:"retries"`
	} `yaml:"upload"`
}

// applyFile overlays values from a YAML config file onto cfg. A missing or
// malformed file is logged and skipped; env overrides still apply.
func applyFile(cfg *AppConfig, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Config file not readable, skipping", "path", path, "error", err)
		return
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("Config file not parseable, skipping", "path", path, "error", err)
		return
	}

	if fc.MetricsPort != "" {
		cfg.MetricsPort = fc.MetricsPort
	}
	if d, ok := parseDuration(fc.PollInterval, path, "poll_interval"); ok {
		cfg.PollInterval = d
	}
	if fc.Callback.URL != "" {
		cfg.CallbackURL = fc.Callback.URL
	}
	if fc.Callback.SigningKey != "" {
		cfg.CallbackSigningKey = fc.Callback.SigningKey
	}
	if d, ok := parseDuration(fc.Upload.Timeout, path, "upload.timeout"); ok {
		cfg.UploadTimeout = d
	}
	if fc.Upload.Retries != nil {
		cfg.UploadRetries = *fc.Upload.Retries
	}
}

func parseDuration(value, path, field string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in config file", "path", path, "field", field, "value", value)
		return 0, false
	}
	return d, true
}
