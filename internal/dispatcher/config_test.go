package dispatcher

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("NOTIFIER_BUFFER_SIZE", "50")
	t.Setenv("NOTIFIER_WORKERS", "4")
	t.Setenv("NOTIFIER_HTTP_TIMEOUT", "3s")

	cfg := LoadConfigFromEnv("https://hooks.example/run", "key")

	if cfg.Destination != "https://hooks.example/run" {
		t.Errorf("Destination = %q", cfg.Destination)
	}
	if cfg.SigningKey != "key" {
		t.Errorf("SigningKey = %q", cfg.SigningKey)
	}
	if cfg.BufferSize != 50 {
		t.Errorf("BufferSize = %d, want 50", cfg.BufferSize)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v, want 3s", cfg.HTTPTimeout)
	}
}

func TestMemoryConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := MemoryConfig{Destination: "https://hooks.example/run"}.withDefaults()

	if cfg.Source != "tecton-materialize" {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.BufferSize != 1000 {
		t.Errorf("BufferSize = %d, want 1000", cfg.BufferSize)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
}
