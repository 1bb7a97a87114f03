package tecton

import (
	"time"

	"github.com/PubChimps/tecton-materialize/internal/materialize"
)

// Wire types for the materialization-jobs API. Field names follow the
// control plane's JSON contract.

type jobRequest struct {
	Workspace      string `json:"workspace"`
	FeatureView    string `json:"feature_view,omitempty"`
	FeatureService string `json:"feature_service,omitempty"`
	JobID          string `json:"job_id,omitempty"`
}

type listJobsResponse struct {
	Jobs []jobRecord `json:"jobs"`
}

type getJobResponse struct {
	Job jobRecord `json:"job"`
}

type submitJobRequest struct {
	Workspace               string `json:"workspace"`
	FeatureView             string `json:"feature_view,omitempty"`
	FeatureService          string `json:"feature_service,omitempty"`
	Online                  bool   `json:"online"`
	Offline                 bool   `json:"offline"`
	StartTime               string `json:"start_time"`
	EndTime                 string `json:"end_time"`
	Overwrite               bool   `json:"overwrite"`
	UseTectonManagedRetries bool   `json:"use_tecton_managed_retries"`
}

type submitJobResponse struct {
	Job jobRecord `json:"job"`
}

type dataframeInfoRequest struct {
	Workspace   string `json:"workspace"`
	FeatureView string `json:"feature_view"`
}

type dataframeInfoResponse struct {
	DFPath          string `json:"df_path"`
	SignedUploadURL string `json:"signed_url_for_df_upload"`
}

type ingestRequest struct {
	Workspace   string `json:"workspace"`
	FeatureView string `json:"feature_view"`
	DFPath      string `json:"df_path"`
}

type ingestResponse struct {
	Job jobRecord `json:"job"`
}

// jobRecord is the control plane's job representation.
type jobRecord struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Online    bool            `json:"online"`
	Offline   bool            `json:"offline"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	JobType   string          `json:"job_type"`
	Attempts  []attemptRecord `json:"attempts,omitempty"`
}

type attemptRecord struct {
	State  string `json:"state"`
	RunURL string `json:"run_url"`
}

// toJob converts a wire record to the domain snapshot.
func (j jobRecord) toJob() *materialize.Job {
	job := &materialize.Job{
		ID:    j.ID,
		State: j.State,
	}
	for _, a := range j.Attempts {
		job.Attempts = append(job.Attempts, materialize.Attempt{
			State:  a.State,
			RunURL: a.RunURL,
		})
	}
	return job
}

// matches reports whether the record satisfies the full deduplication key of
// a query. The list endpoint filters by workspace and target; the remaining
// fields are matched here.
func (j jobRecord) matches(query materialize.JobQuery) bool {
	return j.Online == query.Online &&
		j.Offline == query.Offline &&
		j.StartTime.Equal(query.StartTime) &&
		j.EndTime.Equal(query.EndTime) &&
		materialize.JobType(j.JobType) == query.JobType
}
