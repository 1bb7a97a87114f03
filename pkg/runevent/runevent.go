// Package runevent defines materialization run lifecycle events and their
// HTTP delivery.
package runevent

import "time"

// Event types emitted over the lifetime of one orchestrator run.
const (
	TypeSubmitted       = "materialize.run.submitted"
	TypeSkipped         = "materialize.run.skipped"
	TypeCompleted       = "materialize.run.completed"
	TypeFailed          = "materialize.run.failed"
	TypeCancelRequested = "materialize.job.cancel_requested"
)

// Event describes one run lifecycle transition. Subject is the remote job ID
// when one exists, otherwise the query target.
type Event struct {
	Type    string         `json:"type"`
	Source  string         `json:"source"`
	Subject string         `json:"subject"`
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Data    map[string]any `json:"data,omitempty"`
}

// New creates an event stamped with the current UTC time.
func New(eventType, source, subject, id string, data map[string]any) *Event {
	return &Event{
		Type:    eventType,
		Source:  source,
		Subject: subject,
		ID:      id,
		Time:    time.Now().UTC(),
		Data:    data,
	}
}
