package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppConfigDefaults(t *testing.T) {
	cfg := LoadAppConfig()

	if cfg.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q, want 9090", cfg.MetricsPort)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want 60s", cfg.PollInterval)
	}
	if cfg.UploadTimeout != 60*time.Second {
		t.Errorf("UploadTimeout = %v, want 60s", cfg.UploadTimeout)
	}
	if cfg.UploadRetries != 3 {
		t.Errorf("UploadRetries = %d, want 3", cfg.UploadRetries)
	}
	if cfg.CallbackURL != "" {
		t.Errorf("CallbackURL = %q, want empty", cfg.CallbackURL)
	}
}

func TestLoadAppConfigEnvOverrides(t *testing.T) {
	t.Setenv("METRICS_PORT", "9191")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("CALLBACK_URL", "https://hooks.example/run")
	t.Setenv("CALLBACK_SIGNING_KEY", "topsecret")
	t.Setenv("UPLOAD_RETRIES", "7")

	cfg := LoadAppConfig()

	if cfg.MetricsPort != "9191" {
		t.Errorf("MetricsPort = %q, want 9191", cfg.MetricsPort)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.CallbackURL != "https://hooks.example/run" {
		t.Errorf("CallbackURL = %q", cfg.CallbackURL)
	}
	if cfg.CallbackSigningKey != "topsecret" {
		t.Errorf("CallbackSigningKey = %q", cfg.CallbackSigningKey)
	}
	if cfg.UploadRetries != 7 {
		t.Errorf("UploadRetries = %d, want 7", cfg.UploadRetries)
	}
}

func TestLoadAppConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `metrics_port: "8080"
poll_interval: 30s
callback:
  url: https://hooks.example/run
  signing_key: filekey
upload:
  timeout: 2m
  retries: 0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg := LoadAppConfig()

	if cfg.MetricsPort != "8080" {
		t.Errorf("MetricsPort = %q, want 8080", cfg.MetricsPort)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.CallbackURL != "https://hooks.example/run" {
		t.Errorf("CallbackURL = %q", cfg.CallbackURL)
	}
	if cfg.CallbackSigningKey != "filekey" {
		t.Errorf("CallbackSigningKey = %q", cfg.CallbackSigningKey)
	}
	if cfg.UploadTimeout != 2*time.Minute {
		t.Errorf("UploadTimeout = %v, want 2m", cfg.UploadTimeout)
	}
	if cfg.UploadRetries != 0 {
		t.Errorf("UploadRetries = %d, want explicit 0 from file", cfg.UploadRetries)
	}
}

func TestLoadAppConfigEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: 30s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POLL_INTERVAL", "10s")

	cfg := LoadAppConfig()
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want env override 10s", cfg.PollInterval)
	}
}

func TestLoadAppConfigBadFileIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\nnot yaml: ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg := LoadAppConfig()
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want default after skipped file", cfg.PollInterval)
	}
}

func TestSigningKeyFileBeatsEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signing_key")
	if err := os.WriteFile(path, []byte("fromfile\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	t.Setenv("CALLBACK_SIGNING_KEY_FILE", path)
	t.Setenv("CALLBACK_SIGNING_KEY", "fromenv")

	cfg := LoadAppConfig()
	if cfg.CallbackSigningKey != "fromfile" {
		t.Errorf("CallbackSigningKey = %q, want trimmed file contents", cfg.CallbackSigningKey)
	}
}
