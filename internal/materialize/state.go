package materialize

import (
	"log/slog"
	"strings"
)

// The control plane does not publish a closed state enum. Providers emit
// compound strings such as "BACKFILL_RUNNING" or "BATCH_SUCCESS", so states
// are classified by case-insensitive suffix rather than exact match.
const (
	suffixRunning           = "running"
	suffixSuccess           = "success"
	suffixManuallyCancelled = "manually_cancelled"
)

// StateKind buckets a raw provider state string.
type StateKind int

const (
	// StateRunning covers every non-terminal state (*RUNNING).
	StateRunning StateKind = iota
	// StateSuccess covers terminal success (*SUCCESS).
	StateSuccess
	// StateCancelled covers operator-initiated cancellation (*MANUALLY_CANCELLED).
	StateCancelled
	// StateFailed is the catch-all terminal bucket for everything else.
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClassifyState buckets a raw job state string.
func ClassifyState(state string) StateKind {
	s := strings.ToLower(state)
	switch {
	case strings.HasSuffix(s, suffixRunning):
		return StateRunning
	case strings.HasSuffix(s, suffixSuccess):
		return StateSuccess
	case strings.HasSuffix(s, suffixManuallyCancelled):
		return StateCancelled
	default:
		return StateFailed
	}
}

// IsRunning reports whether a state is non-terminal.
func IsRunning(state string) bool {
	return ClassifyState(state) == StateRunning
}

// IsSuccess reports whether a state is terminal success.
func IsSuccess(state string) bool {
	return ClassifyState(state) == StateSuccess
}

// IsManuallyCancelled reports whether a state is an observed manual
// cancellation.
func IsManuallyCancelled(state string) bool {
	return ClassifyState(state) == StateCancelled
}

// warnUnrecognizedTerminal flags provider state labels that fall into the
// failure bucket without matching any known terminal suffix. New provider
// states surface here instead of being silently misclassified.
func warnUnrecognizedTerminal(logger *slog.Logger, state string) {
	s := strings.ToLower(state)
	known := strings.HasSuffix(s, "error") ||
		strings.HasSuffix(s, "failed") ||
		strings.HasSuffix(s, suffixManuallyCancelled)
	if !known {
		logger.Warn("Unrecognized terminal job state, treating as failure", "state", state)
	}
}
