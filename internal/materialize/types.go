// Package materialize implements the client-side lifecycle of remote
// materialization jobs: find-or-submit, cancel-and-replace, and polling a
// submitted job to a terminal state.
package materialize

import (
	"fmt"
	"time"

	"github.com/PubChimps/tecton-materialize/internal/apperrors"
)

// JobType selects the kind of materialization work a query describes.
type JobType string

const (
	JobTypeBatch  JobType = "batch"
	JobTypeIngest JobType = "ingest"
)

// JobQuery identifies one logical unit of materialization work. Two queries
// with equal fields refer to the same logical job; equality is the
// deduplication key used to look up a pre-existing remote job.
//
// Exactly one of FeatureView or FeatureService must be set.
type JobQuery struct {
	Workspace      string
	FeatureView    string
	FeatureService string
	Online         bool
	Offline        bool
	StartTime      time.Time
	EndTime        time.Time
	JobType        JobType
}

// Target returns whichever of FeatureView or FeatureService is set.
func (q JobQuery) Target() string {
	if q.FeatureView != "" {
		return q.FeatureView
	}
	return q.FeatureService
}

// Equal reports whether two queries identify the same logical job.
func (q JobQuery) Equal(other JobQuery) bool {
	return q.Workspace == other.Workspace &&
		q.FeatureView == other.FeatureView &&
		q.FeatureService == other.FeatureService &&
		q.Online == other.Online &&
		q.Offline == other.Offline &&
		q.StartTime.Equal(other.StartTime) &&
		q.EndTime.Equal(other.EndTime) &&
		q.JobType == other.JobType
}

// Attempt is one execution attempt of a remote job. The run URL is for
// humans; attempt state never drives control decisions.
type Attempt struct {
	State  string `json:"state"`
	RunURL string `json:"run_url"`
}

// Job is a snapshot of a remote job record. The remote system owns the
// record; callers re-fetch rather than mutate.
type Job struct {
	ID       string    `json:"id"`
	State    string    `json:"state"`
	Attempts []Attempt `json:"attempts,omitempty"`
}

// LatestAttempt returns the most recent attempt, or false if none launched.
func (j *Job) LatestAttempt() (Attempt, bool) {
	if len(j.Attempts) == 0 {
		return Attempt{}, false
	}
	return j.Attempts[len(j.Attempts)-1], true
}

// StagingTarget is a destination prepared by the control plane for an
// out-of-band dataframe upload.
type StagingTarget struct {
	Path      string // location the ingest call references
	SignedURL string // pre-signed URL the table is uploaded to
}

// RunOutcome is the terminal result of a successful Run invocation.
type RunOutcome string

const (
	// OutcomeCompleted means a job was submitted and reached success.
	OutcomeCompleted RunOutcome = "completed"
	// OutcomeSkipped means an existing successful job already covered the
	// query and no new job was created.
	OutcomeSkipped RunOutcome = "skipped"
)

// FailedError reports a remote job that reached a terminal state other than
// success. It carries the exact provider state string and the last-fetched
// job record for diagnostics.
type FailedError struct {
	State string
	Job   *Job
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("materialization job %s finished in state %s", e.Job.ID, e.State)
}

// Unwrap classifies FailedError under apperrors.ErrJobFailed.
func (e *FailedError) Unwrap() error {
	return apperrors.ErrJobFailed
}
