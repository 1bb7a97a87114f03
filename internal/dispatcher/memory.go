package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/PubChimps/tecton-materialize/pkg/backoff"
	"github.com/PubChimps/tecton-materialize/pkg/circuitbreaker"
	"github.com/PubChimps/tecton-materialize/pkg/runevent"
)

// MemoryDispatcher is an in-memory async run-event dispatcher. Events are
// queued in a bounded channel and delivered by a worker pool. When the
// buffer is full or the destination's circuit is open, events are dropped
// (logged + counted) rather than blocking the run.
type MemoryDispatcher struct {
	queue   chan *runevent.Event
	sender  Sender
	breaker *circuitbreaker.Breaker
	config  MemoryConfig
	logger  *slog.Logger
	metrics MetricsRecorder

	// Internal counters (for Stats())
	queued    atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	wg       sync.WaitGroup
	shutdown chan struct{}
	closed   atomic.Bool
}

// MetricsRecorder is an optional interface for recording dispatcher metrics.
type MetricsRecorder interface {
	RecordNotifierDelivered(ctx context.Context)
	RecordNotifierFailed(ctx context.Context)
	RecordNotifierDropped(ctx context.Context)
	RecordNotifierQueueSize(ctx context.Context, size int64)
}

// NewMemory creates a new in-memory dispatcher delivering to the configured
// destination.
func NewMemory(cfg MemoryConfig, metrics MetricsRecorder) (*MemoryDispatcher, error) {
	cfg = cfg.withDefaults()
	if cfg.Destination == "" {
		return nil, fmt.Errorf("dispatcher destination is required")
	}

	d := &MemoryDispatcher{
		queue:  make(chan *runevent.Event, cfg.BufferSize),
		sender: runevent.NewSender(cfg.HTTPTimeout),
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Threshold: defaultBreakerThreshold,
			Cooldown:  defaultBreakerCooldown,
		}),
		config:   cfg,
		logger:   slog.With("component", "dispatcher"),
		metrics:  metrics,
		shutdown: make(chan struct{}),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}

	if metrics != nil {
		go d.reportQueueSize()
	}

	d.logger.Info("Dispatcher started", "destination", cfg.Destination, "workers", cfg.Workers, "buffer", cfg.BufferSize)
	return d, nil
}

// reportQueueSize periodically reports the queue size metric.
func (d *MemoryDispatcher) reportQueueSize() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.shutdown:
			return
		case <-ticker.C:
			d.metrics.RecordNotifierQueueSize(context.Background(), int64(len(d.queue)))
		}
	}
}

// Publish queues a run event for async delivery.
func (d *MemoryDispatcher) Publish(eventType, subject string, data map[string]any) {
	if d.closed.Load() {
		d.logger.Debug("Dispatcher closed, event discarded", "type", eventType)
		return
	}

	event := runevent.New(eventType, d.config.Source, subject, uuid.NewString(), data)

	select {
	case d.queue <- event:
		d.queued.Add(1)
	default:
		d.dropped.Add(1)
		if d.metrics != nil {
			d.metrics.RecordNotifierDropped(context.Background())
		}
		d.logger.Warn("Event dropped, buffer full", "type", eventType)
	}
}

// Stats returns current dispatcher statistics.
func (d *MemoryDispatcher) Stats() Stats {
	return Stats{
		QueueDepth: len(d.queue),
		Queued:     d.queued.Load(),
		Delivered:  d.delivered.Load(),
		Failed:     d.failed.Load(),
		Dropped:    d.dropped.Load(),
	}
}

// Close gracefully shuts down the dispatcher.
func (d *MemoryDispatcher) Close(ctx context.Context) error {
	if d.closed.Swap(true) {
		return nil // already closed
	}

	d.logger.Info("Dispatcher shutting down", "queued", len(d.queue))

	// Signal workers to stop
	close(d.shutdown)

	// Wait for workers with timeout
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Dispatcher shutdown complete",
			"delivered", d.delivered.Load(),
			"failed", d.failed.Load(),
			"dropped", d.dropped.Load(),
		)
		return nil
	case <-ctx.Done():
		d.logger.Warn("Dispatcher shutdown timed out", "remaining", len(d.queue))
		return ctx.Err()
	}
}

// worker processes events from the queue.
func (d *MemoryDispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.shutdown:
			// Drain remaining events before exiting
			d.drainQueue()
			return
		case event := <-d.queue:
			d.deliver(event)
		}
	}
}

// drainQueue delivers remaining events after shutdown signal.
func (d *MemoryDispatcher) drainQueue() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return // queue empty
		}
	}
}

// deliver attempts to deliver an event with retry behind the circuit
// breaker. With the circuit open the event is dropped; the destination is a
// single advisory callback, not a durable stream.
func (d *MemoryDispatcher) deliver(event *runevent.Event) {
	if !d.breaker.Allow() {
		d.dropped.Add(1)
		if d.metrics != nil {
			d.metrics.RecordNotifierDropped(context.Background())
		}
		d.logger.Warn("Event dropped, circuit open", "type", event.Type)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.sendWithRetry(ctx, event); err != nil {
		d.breaker.RecordFailure()
		d.failed.Add(1)
		if d.metrics != nil {
			d.metrics.RecordNotifierFailed(ctx)
		}
		d.logger.Warn("Delivery failed", "type", event.Type, "error", err)
		return
	}

	d.breaker.RecordSuccess()
	d.delivered.Add(1)
	if d.metrics != nil {
		d.metrics.RecordNotifierDelivered(ctx)
	}
}

func (d *MemoryDispatcher) sendWithRetry(ctx context.Context, event *runevent.Event) error {
	retryDelay := backoff.DefaultConfig()

	var lastErr error
	for attempt := range defaultMaxRetries + 1 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay.Delay(attempt)):
			}
		}

		lastErr = d.sender.Send(ctx, d.config.Destination, event, d.config.SigningKey)
		if lastErr == nil {
			return nil
		}
		if runevent.IsClientError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Verify MemoryDispatcher implements Dispatcher
var _ Dispatcher = (*MemoryDispatcher)(nil)
