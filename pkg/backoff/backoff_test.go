package backoff

import (
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		attempt int
		want    time.Duration
	}{
		{"zero attempt uses initial", Config{}, 0, 100 * time.Millisecond},
		{"first attempt", Config{}, 1, 100 * time.Millisecond},
		{"second attempt doubles", Config{}, 2, 200 * time.Millisecond},
		{"third attempt", Config{}, 3, 400 * time.Millisecond},
		{"capped at max", Config{}, 10, 5 * time.Second},
		{"custom initial", Config{Initial: time.Second}, 2, 2 * time.Second},
		{"custom max", Config{Initial: time.Second, Max: 3 * time.Second}, 5, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestDelayMonotonicUntilCap(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	prev := time.Duration(0)
	for attempt := 1; attempt < 12; attempt++ {
		d := cfg.Delay(attempt)
		if d < prev {
			t.Fatalf("Delay(%d) = %v decreased from %v", attempt, d, prev)
		}
		if d > cfg.Max {
			t.Fatalf("Delay(%d) = %v exceeds max %v", attempt, d, cfg.Max)
		}
		prev = d
	}
}
