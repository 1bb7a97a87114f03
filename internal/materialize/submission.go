package materialize

import (
	"context"
)

// submission is the tagged variant over the two ways a new job is created.
// Keeping the branch behind an interface keeps the state machine exhaustive
// and testable apart from the transport adapters.
type submission interface {
	// submit creates a new remote job and returns its ID.
	submit(ctx context.Context) (string, error)
	// name identifies the strategy in logs and events.
	name() string
}

// chooseSubmission selects the strategy for a validated query: staged ingest
// when a producer is supplied, direct submission otherwise.
func (r *Runner) chooseSubmission(query JobQuery, overwrite bool, producer TableProducer) submission {
	if producer != nil {
		return &stagedIngest{runner: r, query: query, producer: producer}
	}
	return &directSubmission{runner: r, query: query, overwrite: overwrite}
}

// directSubmission submits the query as-is. Engine-managed retries stay
// disabled so each host invocation maps to exactly one job attempt.
type directSubmission struct {
	runner    *Runner
	query     JobQuery
	overwrite bool
}

func (s *directSubmission) name() string { return "submit" }

func (s *directSubmission) submit(ctx context.Context) (string, error) {
	return s.runner.client.SubmitJob(ctx, s.query, s.overwrite)
}

// stagedIngest materializes a table, uploads it to a signed destination, and
// registers the destination for ingestion.
type stagedIngest struct {
	runner   *Runner
	query    JobQuery
	producer TableProducer
}

func (s *stagedIngest) name() string { return "ingest" }

func (s *stagedIngest) submit(ctx context.Context) (string, error) {
	target, err := s.runner.client.StageUploadTarget(ctx, s.query)
	if err != nil {
		return "", err
	}

	table, err := s.producer(ctx)
	if err != nil {
		return "", err
	}

	bytes, err := s.runner.uploader.Upload(ctx, target.SignedURL, table)
	if err != nil {
		return "", err
	}
	if s.runner.metrics != nil {
		s.runner.metrics.RecordUpload(ctx, s.query.Workspace, bytes)
	}

	return s.runner.client.Ingest(ctx, s.query, target.Path)
}
