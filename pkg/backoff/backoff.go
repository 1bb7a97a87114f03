// Package backoff provides exponential backoff calculation for transport
// retries.
package backoff

import (
	"math"
	"time"
)

// Config for exponential backoff. The zero value uses defaults.
type Config struct {
	Initial time.Duration // default: 100ms
	Max     time.Duration // default: 5s
}

// DefaultConfig returns the default retry curve.
func DefaultConfig() Config {
	return Config{
		Initial: 100 * time.Millisecond,
		Max:     5 * time.Second,
	}
}

// Delay returns the wait before the given retry attempt. Attempt 1 returns
// Initial, attempt 2 returns Initial*2, and so on, capped at Max.
func (c Config) Delay(attempt int) time.Duration {
	initial := c.Initial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	maxDelay := c.Max
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}

	if attempt < 1 {
		return initial
	}
	d := float64(initial) * math.Pow(2.0, float64(attempt-1))
	if d > float64(maxDelay) {
		d = float64(maxDelay)
	}
	return time.Duration(d)
}
