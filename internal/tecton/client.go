// Package tecton implements the materialize.ControlPlane interface against
// the feature platform's materialization-jobs HTTP API.
package tecton

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PubChimps/tecton-materialize/internal/apperrors"
	"github.com/PubChimps/tecton-materialize/internal/materialize"
	"github.com/PubChimps/tecton-materialize/internal/observability"
)

// API paths, rooted under the cluster base URL.
const (
	pathListJobs      = "/api/v1/jobs/list-materialization-jobs"
	pathGetJob        = "/api/v1/jobs/get-materialization-job"
	pathSubmitJob     = "/api/v1/jobs/submit-materialization-job"
	pathCancelJob     = "/api/v1/jobs/cancel-materialization-job"
	pathDataframeInfo = "/api/v1/jobs/get-dataframe-info"
	pathIngest        = "/api/v1/jobs/ingest-dataframe"
	pathHealth        = "/healthz"
)

// Client is the HTTP control-plane client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a control-plane client. Metrics are optional.
func NewClient(cfg ClientConfig, metrics *observability.Metrics) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BaseURL == "" {
		return nil, apperrors.Validation("baseURL", "control-plane base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, apperrors.Validation("apiKey", "control-plane API key is required")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout: cfg.HTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:  slog.With("component", "tecton"),
		metrics: metrics,
	}, nil
}

// FindJob returns the most recent job matching the full query, or nil.
func (c *Client) FindJob(ctx context.Context, query materialize.JobQuery) (*materialize.Job, error) {
	req := jobRequest{
		Workspace:      query.Workspace,
		FeatureView:    query.FeatureView,
		FeatureService: query.FeatureService,
	}

	var resp listJobsResponse
	if err := c.call(ctx, "listJobs", pathListJobs, req, &resp); err != nil {
		return nil, err
	}

	// The list endpoint scopes by workspace and target; the remaining
	// deduplication-key fields are matched client-side, newest wins.
	for i := len(resp.Jobs) - 1; i >= 0; i-- {
		if resp.Jobs[i].matches(query) {
			return resp.Jobs[i].toJob(), nil
		}
	}
	return nil, nil
}

// GetJob fetches a job snapshot by ID.
func (c *Client) GetJob(ctx context.Context, query materialize.JobQuery, id string) (*materialize.Job, error) {
	req := jobRequest{
		Workspace:      query.Workspace,
		FeatureView:    query.FeatureView,
		FeatureService: query.FeatureService,
		JobID:          id,
	}

	var resp getJobResponse
	if err := c.call(ctx, "getJob", pathGetJob, req, &resp); err != nil {
		return nil, err
	}
	return resp.Job.toJob(), nil
}

// SubmitJob submits a new materialization job. Engine-managed retries are
// always disabled: the host owns retry policy, one invocation per attempt.
func (c *Client) SubmitJob(ctx context.Context, query materialize.JobQuery, overwrite bool) (string, error) {
	req := submitJobRequest{
		Workspace:               query.Workspace,
		FeatureView:             query.FeatureView,
		FeatureService:          query.FeatureService,
		Online:                  query.Online,
		Offline:                 query.Offline,
		StartTime:               query.StartTime.UTC().Format(time.RFC3339),
		EndTime:                 query.EndTime.UTC().Format(time.RFC3339),
		Overwrite:               overwrite,
		UseTectonManagedRetries: false,
	}

	var resp submitJobResponse
	if err := c.call(ctx, "submitJob", pathSubmitJob, req, &resp); err != nil {
		return "", err
	}
	return resp.Job.ID, nil
}

// CancelJob requests cancellation of a job. Cancelling an already-terminal
// job is not an error on the control plane.
func (c *Client) CancelJob(ctx context.Context, query materialize.JobQuery, id string) error {
	req := jobRequest{
		Workspace:      query.Workspace,
		FeatureView:    query.FeatureView,
		FeatureService: query.FeatureService,
		JobID:          id,
	}
	return c.call(ctx, "cancelJob", pathCancelJob, req, nil)
}

// StageUploadTarget returns the staging destination and signed write URL for
// a dataframe upload.
func (c *Client) StageUploadTarget(ctx context.Context, query materialize.JobQuery) (materialize.StagingTarget, error) {
	req := dataframeInfoRequest{
		Workspace:   query.Workspace,
		FeatureView: query.FeatureView,
	}

	var resp dataframeInfoResponse
	if err := c.call(ctx, "getDataframeInfo", pathDataframeInfo, req, &resp); err != nil {
		return materialize.StagingTarget{}, err
	}
	return materialize.StagingTarget{
		Path:      resp.DFPath,
		SignedURL: resp.SignedUploadURL,
	}, nil
}

// Ingest registers a staged dataframe for ingestion.
func (c *Client) Ingest(ctx context.Context, query materialize.JobQuery, stagingPath string) (string, error) {
	req := ingestRequest{
		Workspace:   query.Workspace,
		FeatureView: query.FeatureView,
		DFPath:      stagingPath,
	}

	var resp ingestResponse
	if err := c.call(ctx, "ingestDataframe", pathIngest, req, &resp); err != nil {
		return "", err
	}
	return resp.Job.ID, nil
}

// Ready checks that the control plane is reachable. Any response below 500
// counts as reachable; auth-gated endpoints still prove connectivity.
func (c *Client) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return apperrors.Transport("tecton.ready", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Transport("tecton.ready", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return apperrors.Transport("tecton.ready", fmt.Errorf("control plane unhealthy: HTTP %d", resp.StatusCode))
	}
	return nil
}

// call performs one POST round trip: marshal, authenticate, classify the
// response, and decode into out (which may be nil for empty responses).
func (c *Client) call(ctx context.Context, op, path string, in, out any) error {
	opName := "tecton." + op

	body, err := json.Marshal(in)
	if err != nil {
		return apperrors.Internal(opName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.Internal(opName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Tecton-key "+c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordRequest(ctx, op, 0, time.Since(start).Seconds())
		}
		return apperrors.Transport(opName, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, op, resp.StatusCode, time.Since(start).Seconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.FromStatus(opName, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Transport(opName, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Verify Client implements the control-plane interface.
var _ materialize.ControlPlane = (*Client)(nil)
