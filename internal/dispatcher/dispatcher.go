// Package dispatcher provides async delivery of run events with buffering
// and retry. Delivery is best-effort: a failed or dropped event never
// affects the run that emitted it.
package dispatcher

import (
	"context"

	"github.com/PubChimps/tecton-materialize/pkg/runevent"
)

// Dispatcher handles async delivery of run events to the configured
// callback destination.
type Dispatcher interface {
	// Publish queues a run event for async delivery. Non-blocking; the
	// event is dropped (logged and counted) if the buffer is full.
	Publish(eventType, subject string, data map[string]any)

	// Stats returns current dispatcher statistics.
	Stats() Stats

	// Close gracefully shuts down, attempting to deliver queued events.
	// The context deadline controls how long to wait for drain.
	Close(ctx context.Context) error
}

// Stats holds dispatcher statistics.
type Stats struct {
	QueueDepth int   // current queue size
	Queued     int64 // total events queued
	Delivered  int64 // successful deliveries
	Failed     int64 // failed after retries
	Dropped    int64 // dropped due to full buffer or open circuit
}

// Sender delivers a single event; implemented by runevent.Sender.
type Sender interface {
	Send(ctx context.Context, url string, event *runevent.Event, signingKey string) error
}
