package materialize

import (
	"context"

	"github.com/PubChimps/tecton-materialize/internal/staging"
)

// ControlPlane is the remote job API the runner drives. Reads are idempotent;
// writes are at-least-once safe from the runner's perspective.
//
// The production implementation lives in internal/tecton. The runner never
// assumes anything beyond this interface, so tests substitute fakes.
type ControlPlane interface {
	// FindJob returns the most recent job matching the query, or nil if no
	// matching job exists.
	FindJob(ctx context.Context, query JobQuery) (*Job, error)

	// GetJob fetches a job snapshot by ID. Returns apperrors.ErrNotFound if
	// the ID no longer resolves.
	GetJob(ctx context.Context, query JobQuery, id string) (*Job, error)

	// SubmitJob submits a new materialization job and returns its ID.
	// Engine-managed retries are disabled on submission; retry policy is
	// owned by the host, one invocation per job attempt.
	SubmitJob(ctx context.Context, query JobQuery, overwrite bool) (string, error)

	// CancelJob requests cancellation of a job. Best-effort; cancelling an
	// already-terminal job is not an error.
	CancelJob(ctx context.Context, query JobQuery, id string) error

	// StageUploadTarget returns the destination path and signed write URL
	// for an out-of-band dataframe upload.
	StageUploadTarget(ctx context.Context, query JobQuery) (StagingTarget, error)

	// Ingest registers a previously staged dataframe for ingestion and
	// returns the resulting job ID.
	Ingest(ctx context.Context, query JobQuery, stagingPath string) (string, error)
}

// TableProducer materializes the table to ingest. Invoked at most once per
// run, only on the staged-ingest path.
type TableProducer func(ctx context.Context) (*staging.Table, error)

// Uploader stages a produced table at a signed destination.
type Uploader interface {
	Upload(ctx context.Context, signedURL string, table *staging.Table) (int64, error)
}
