package materialize

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/PubChimps/tecton-materialize/internal/apperrors"
	"github.com/PubChimps/tecton-materialize/internal/observability"
	"github.com/PubChimps/tecton-materialize/pkg/runevent"
)

// DefaultPollInterval is the fixed sleep between job status fetches.
const DefaultPollInterval = 60 * time.Second

// EventPublisher receives best-effort run lifecycle notifications. A nil
// publisher disables notifications; publish failures never affect the run.
type EventPublisher interface {
	Publish(eventType, subject string, data map[string]any)
}

// Config configures a Runner.
type Config struct {
	Client       ControlPlane
	Uploader     Uploader               // required only for the ingest path
	PollInterval time.Duration          // default: DefaultPollInterval
	Metrics      *observability.Metrics // optional
	Events       EventPublisher         // optional
	Logger       *slog.Logger           // default: slog.Default
}

// Runner drives one materialization run at a time to a terminal state.
//
// The Runner is stateless between runs; all durable state lives in the remote
// control plane, so a run can safely be re-invoked after any failure. The
// only shared state is the active job identity, published atomically for the
// cancellation hook. Concurrent Run calls on one Runner are not supported.
type Runner struct {
	client       ControlPlane
	uploader     Uploader
	pollInterval time.Duration
	metrics      *observability.Metrics
	events       EventPublisher
	logger       *slog.Logger

	// sleep is replaceable in tests for deterministic polling.
	sleep func(ctx context.Context, d time.Duration) error

	// active is published before any blocking sleep begins so OnStop never
	// observes a stale "no job yet" after submission has occurred.
	active atomic.Pointer[activeJob]
}

// activeJob is the job identity shared with the cancellation hook.
type activeJob struct {
	query JobQuery
	jobID string
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Client == nil {
		return nil, apperrors.Validation("client", "control-plane client is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		client:       cfg.Client,
		uploader:     cfg.Uploader,
		pollInterval: cfg.PollInterval,
		metrics:      cfg.Metrics,
		events:       cfg.Events,
		logger:       cfg.Logger.With("component", "materialize"),
		sleep:        sleepCtx,
	}, nil
}

// Run executes the full lifecycle for one logical job request:
//
//  1. Look up an existing job for the query.
//  2. If it is running, cancel it and wait until the cancellation is
//     observed, then fall through to submission.
//  3. If it already succeeded, skip unless overwriteSuccess is set.
//  4. Submit directly, or stage-and-ingest when a producer is supplied.
//  5. Poll the new job to a terminal state.
//
// Returns OutcomeSkipped or OutcomeCompleted; a job that terminates in any
// other state yields a *FailedError. The context bounds both wait loops:
// cancel it or set a deadline to impose a ceiling.
func (r *Runner) Run(ctx context.Context, query JobQuery, overwriteSuccess bool, producer TableProducer) (RunOutcome, error) {
	query = normalizeQuery(query, producer)
	if err := r.validate(query, producer); err != nil {
		return "", err
	}

	logger := r.logger.With(
		"workspace", query.Workspace,
		"target", query.Target(),
		"jobType", string(query.JobType),
	)

	start := time.Now()
	if r.metrics != nil {
		r.metrics.RecordRunStarted(ctx, query.Workspace, query.Target())
	}

	outcome, err := r.run(ctx, logger, query, overwriteSuccess, producer)

	result := string(outcome)
	if err != nil {
		result = "failed"
		logger.Error("Materialization run failed", "error", err)
	} else {
		logger.Info("Materialization run finished", "outcome", result)
	}
	if r.metrics != nil {
		r.metrics.RecordRunFinished(ctx, query.Workspace, query.Target(), result, time.Since(start).Seconds())
	}
	return outcome, err
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, query JobQuery, overwriteSuccess bool, producer TableProducer) (RunOutcome, error) {
	existing, err := r.client.FindJob(ctx, query)
	if err != nil {
		return "", err
	}

	if existing != nil {
		logger.Info("Existing job found", "jobId", existing.ID, "state", existing.State)
		switch {
		case IsRunning(existing.State):
			if err := r.cancelAndWait(ctx, logger, query, existing.ID); err != nil {
				return "", err
			}
		case IsSuccess(existing.State):
			if !overwriteSuccess {
				logger.Info("Existing job in success state, skipping")
				r.publish(runevent.TypeSkipped, existing.ID, map[string]any{
					"workspace": query.Workspace,
					"target":    query.Target(),
				})
				return OutcomeSkipped, nil
			}
			logger.Info("Overwriting existing job in success state")
		default:
			logger.Info("Existing job in terminal state, resubmitting", "state", existing.State)
		}
	}

	sub := r.chooseSubmission(query, overwriteSuccess, producer)
	jobID, err := sub.submit(ctx)
	if err != nil {
		return "", err
	}

	// Publish the identity before the first sleep so an external stop signal
	// has a valid cancel target as early as possible.
	r.active.Store(&activeJob{query: query, jobID: jobID})
	logger.Info("Submitted materialization job", "jobId", jobID, "via", sub.name())
	r.publish(runevent.TypeSubmitted, jobID, map[string]any{
		"workspace": query.Workspace,
		"target":    query.Target(),
		"via":       sub.name(),
	})

	job, err := r.pollToTerminal(ctx, logger, query, jobID)
	if err != nil {
		return "", err
	}

	if IsSuccess(job.State) {
		logger.Info("Materialization job succeeded", "jobId", jobID, "state", job.State)
		r.publish(runevent.TypeCompleted, jobID, map[string]any{"state": job.State})
		return OutcomeCompleted, nil
	}

	warnUnrecognizedTerminal(logger, job.State)
	r.publish(runevent.TypeFailed, jobID, map[string]any{"state": job.State})
	return "", &FailedError{State: job.State, Job: job}
}

// cancelAndWait cancels a running job and blocks until the control plane
// reports it manually cancelled. Submission must never happen before the
// cancellation is observed as complete.
func (r *Runner) cancelAndWait(ctx context.Context, logger *slog.Logger, query JobQuery, jobID string) error {
	// Share the identity with the cancellation hook while we wait.
	r.active.Store(&activeJob{query: query, jobID: jobID})

	logger.Info("Existing job is running, cancelling", "jobId", jobID)
	if err := r.client.CancelJob(ctx, query, jobID); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordCancelRequested(ctx, query.Workspace, query.Target())
	}
	r.publish(runevent.TypeCancelRequested, jobID, map[string]any{"reason": "replaced"})

	for {
		job, err := r.client.GetJob(ctx, query, jobID)
		if err != nil {
			return err
		}
		if IsManuallyCancelled(job.State) {
			logger.Info("Job cancellation observed", "jobId", jobID)
			return nil
		}
		logger.Info("Waiting for job to enter state manually_cancelled", "jobId", jobID, "state", job.State)
		if err := r.sleep(ctx, r.pollInterval); err != nil {
			return err
		}
	}
}

// pollToTerminal fetches the job until it leaves the running bucket, logging
// attempt progress at every tick.
func (r *Runner) pollToTerminal(ctx context.Context, logger *slog.Logger, query JobQuery, jobID string) (*Job, error) {
	job, err := r.client.GetJob(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	for IsRunning(job.State) {
		if attempt, ok := job.LatestAttempt(); ok {
			logger.Info("Job running",
				"jobId", jobID,
				"attempt", len(job.Attempts),
				"attemptState", attempt.State,
				"runUrl", attempt.RunURL,
			)
		} else {
			logger.Info("Job running, no attempt launched yet", "jobId", jobID)
		}
		if r.metrics != nil {
			r.metrics.RecordPollTick(ctx, query.Workspace, query.Target())
		}
		if err := r.sleep(ctx, r.pollInterval); err != nil {
			return nil, err
		}
		job, err = r.client.GetJob(ctx, query, jobID)
		if err != nil {
			return nil, err
		}
	}
	return job, nil
}

// OnStop is the cancellation hook. Invoked by the host when the enclosing
// task is externally stopped; it requests cancellation of the remembered job
// if one exists. Best-effort cleanup: failures are logged, never raised.
func (r *Runner) OnStop(ctx context.Context) {
	active := r.active.Load()
	if active == nil || active.jobID == "" {
		r.logger.Debug("No job started; none to cancel")
		return
	}
	r.logger.Info("Attempting to cancel job", "jobId", active.jobID)
	if err := r.client.CancelJob(ctx, active.query, active.jobID); err != nil {
		r.logger.Warn("Job cancel request failed", "jobId", active.jobID, "error", err)
		return
	}
	if r.metrics != nil {
		r.metrics.RecordCancelRequested(ctx, active.query.Workspace, active.query.Target())
	}
	r.publish(runevent.TypeCancelRequested, active.jobID, map[string]any{"reason": "external_stop"})
	r.logger.Info("Cancel requested", "jobId", active.jobID)
}

// ActiveJobID returns the job ID the run is currently tracking, or "" if no
// job has been discovered or submitted yet.
func (r *Runner) ActiveJobID() string {
	if active := r.active.Load(); active != nil {
		return active.jobID
	}
	return ""
}

func (r *Runner) publish(eventType, subject string, data map[string]any) {
	if r.events == nil {
		return
	}
	r.events.Publish(eventType, subject, data)
}

// normalizeQuery fills the job type from the submission mode when unset.
func normalizeQuery(query JobQuery, producer TableProducer) JobQuery {
	if query.JobType == "" {
		if producer != nil {
			query.JobType = JobTypeIngest
		} else {
			query.JobType = JobTypeBatch
		}
	}
	return query
}

// validate validates a query against the chosen submission mode.
func (r *Runner) validate(query JobQuery, producer TableProducer) error {
	if query.Workspace == "" {
		return apperrors.Validation("workspace", "workspace is required")
	}
	if query.FeatureView == "" && query.FeatureService == "" {
		return apperrors.Validation("target", "one of feature view or feature service is required")
	}
	if query.FeatureView != "" && query.FeatureService != "" {
		return apperrors.Validation("target", "feature view and feature service are mutually exclusive")
	}
	if query.StartTime.IsZero() || query.EndTime.IsZero() {
		return apperrors.Validation("timeRange", "start and end times are required")
	}
	if !query.EndTime.After(query.StartTime) {
		return apperrors.Validation("timeRange", "end time must be after start time")
	}
	switch query.JobType {
	case JobTypeBatch:
		if producer != nil {
			return apperrors.Validation("jobType", "a table producer requires job type ingest")
		}
	case JobTypeIngest:
		if producer == nil {
			return apperrors.Validation("jobType", "job type ingest requires a table producer")
		}
		if r.uploader == nil {
			return apperrors.Validation("uploader", "an uploader is required for the ingest path")
		}
	default:
		return apperrors.Validation("jobType", "job type must be batch or ingest")
	}
	return nil
}

// sleepCtx blocks for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
