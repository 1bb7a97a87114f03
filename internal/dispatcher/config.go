package dispatcher

import (
	"time"

	"github.com/PubChimps/tecton-materialize/internal/config"
)

// Hardcoded delivery defaults - these rarely need tuning.
const (
	defaultMaxRetries       = 3
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 30 * time.Second
)

// MemoryConfig holds configuration for the in-memory dispatcher.
type MemoryConfig struct {
	Destination string        // callback URL (required)
	SigningKey  string        // HMAC key, empty = no signing
	Source      string        // event source identifier (default: tecton-materialize)
	BufferSize  int           // pending events buffer (default: 1000)
	Workers     int           // concurrent delivery goroutines (default: 2)
	HTTPTimeout time.Duration // per-request timeout (default: 10s)
}

// LoadConfigFromEnv loads dispatcher tuning from environment variables. The
// destination and signing key come from the caller's app config.
func LoadConfigFromEnv(destination, signingKey string) MemoryConfig {
	cfg := MemoryConfig{
		Destination: destination,
		SigningKey:  signingKey,
		BufferSize:  config.GetIntEnv("NOTIFIER_BUFFER_SIZE", 1000),
		Workers:     config.GetIntEnv("NOTIFIER_WORKERS", 2),
		HTTPTimeout: config.GetDurationEnv("NOTIFIER_HTTP_TIMEOUT", 10*time.Second),
	}
	return cfg.withDefaults()
}

// withDefaults fills in zero values with defaults.
func (c MemoryConfig) withDefaults() MemoryConfig {
	if c.Source == "" {
		c.Source = "tecton-materialize"
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1000
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
	return c
}
