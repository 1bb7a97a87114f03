package staging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PubChimps/tecton-materialize/pkg/backoff"
)

// Uploader PUTs encoded tables to signed destinations with retry. 4xx
// responses are permanent: a rejected signed URL does not become valid by
// retrying.
type Uploader struct {
	client     *http.Client
	maxRetries int
	backoff    backoff.Config
	logger     *slog.Logger
}

// NewUploader creates an Uploader. A nil httpClient uses a client with the
// given timeout; maxRetries < 0 uses the default of 3.
func NewUploader(httpClient *http.Client, timeout time.Duration, maxRetries int) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if maxRetries < 0 {
		maxRetries = 3
	}
	return &Uploader{
		client:     httpClient,
		maxRetries: maxRetries,
		backoff:    backoff.DefaultConfig(),
		logger:     slog.With("component", "staging"),
	}
}

// Upload encodes the table and writes it to the signed URL. Returns the
// number of bytes uploaded.
func (u *Uploader) Upload(ctx context.Context, signedURL string, table *Table) (int64, error) {
	body, err := table.Encode()
	if err != nil {
		return 0, err
	}
	size := int64(len(body))

	var lastErr error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		if attempt > 0 {
			wait := u.backoff.Delay(attempt)
			u.logger.Debug("Retrying table upload", "attempt", attempt, "backoff", wait)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = u.doUpload(ctx, signedURL, body)
		if lastErr == nil {
			if attempt > 0 {
				u.logger.Info("Table upload succeeded after retry", "attempt", attempt, "bytes", size)
			}
			return size, nil
		}

		if isPermanent(lastErr) {
			return 0, lastErr
		}

		u.logger.Warn("Table upload failed", "attempt", attempt, "error", lastErr)
	}

	return 0, fmt.Errorf("table upload failed after %d retries: %w", u.maxRetries, lastErr)
}

func (u *Uploader) doUpload(ctx context.Context, signedURL string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		u.logger.Debug("Uploaded table", "bytes", len(body))
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return &uploadError{statusCode: resp.StatusCode, message: string(respBody)}
}

type uploadError struct {
	statusCode int
	message    string
}

func (e *uploadError) Error() string {
	return fmt.Sprintf("upload failed with status %d: %s", e.statusCode, e.message)
}

func isPermanent(err error) bool {
	if ue, ok := err.(*uploadError); ok {
		return ue.statusCode >= 400 && ue.statusCode < 500
	}
	return false
}
