package tecton

import (
	"time"

	"github.com/PubChimps/tecton-materialize/internal/config"
)

// ClientConfig holds configuration for the control-plane client.
type ClientConfig struct {
	BaseURL     string        // cluster URL, e.g. https://example.tecton.ai
	APIKey      string        // service account API key
	HTTPTimeout time.Duration // per-request timeout (default 30s)
}

// LoadConfigFromEnv loads client configuration from environment variables.
// The API key may come from TECTON_API_KEY directly or from the file named
// by TECTON_API_KEY_FILE (Docker/K8s secret mounts).
func LoadConfigFromEnv() ClientConfig {
	apiKey := config.GetEnv("TECTON_API_KEY", "")
	if apiKey == "" {
		apiKey = config.GetSecretFile(config.GetEnv("TECTON_API_KEY_FILE", ""))
	}

	return ClientConfig{
		BaseURL:     config.GetEnv("TECTON_URL", ""),
		APIKey:      apiKey,
		HTTPTimeout: config.GetDurationEnv("TECTON_HTTP_TIMEOUT", 30*time.Second),
	}.withDefaults()
}

// withDefaults fills in zero values with defaults.
func (c ClientConfig) withDefaults() ClientConfig {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	return c
}
