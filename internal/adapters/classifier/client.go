// Package classifier talks to the stutter-classification inference
// service and decodes its result shapes.
package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cadencelab/cadence/internal/domain/analysis"
	"github.com/cadencelab/cadence/internal/domain/session"
)

const defaultTimeout = 60 * time.Second

// maxResponseBytes bounds how much of a classifier response we read.
const maxResponseBytes = 4 << 20

// Client calls the classification service over HTTP. It never retries:
// analysis retry policy belongs to the caller, which reverts the session
// and lets the user trigger a fresh attempt.
type Client struct {
	endpoint string
	http     *http.Client
}

// ClientOption applies a configuration option to the Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a classifier client for the given endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify posts the audio and returns the decoded result union plus the
// raw response payload for archival. Errors wrap session.ErrAudioRejected
// when the service refused the audio itself and
// session.ErrClassifierUnavailable for everything transient.
func (c *Client) Classify(ctx context.Context, audio []byte, contentType string) (analysis.RawResult, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(audio))
	if err != nil {
		return analysis.RawResult{}, nil, fmt.Errorf("build request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return analysis.RawResult{}, nil, fmt.Errorf("call classifier: %w: %w", session.ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return analysis.RawResult{}, nil, fmt.Errorf("read classifier response: %w: %w", session.ErrClassifierUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnsupportedMediaType,
		resp.StatusCode == http.StatusUnprocessableEntity,
		resp.StatusCode == http.StatusBadRequest:
		return analysis.RawResult{}, nil, fmt.Errorf("classifier status %d: %w", resp.StatusCode, session.ErrAudioRejected)
	default:
		return analysis.RawResult{}, nil, fmt.Errorf("classifier status %d: %w", resp.StatusCode, session.ErrClassifierUnavailable)
	}

	raw, err := Decode(payload)
	if err != nil {
		return analysis.RawResult{}, nil, fmt.Errorf("%w: %w", session.ErrClassifierUnavailable, err)
	}
	return raw, payload, nil
}
