// Package edgeclient is the brain's HTTP client for one edge device.
// Every call carries a bounded timeout; a timed-out call returns an
// error and never blocks the next orchestrator tick.
package edgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/skycam/pkg/dto"
)

// ErrEdgeNotReady mirrors the edge's not_ready status: the device
// answered, but its sensor is not initialized. Distinct from a timeout.
var ErrEdgeNotReady = errors.New("edge camera not ready")

// ErrRejected marks 4xx responses: the edge refused the request
// (validation or profile-state error), so retrying the same payload is
// pointless.
var ErrRejected = errors.New("edge rejected request")

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client

	meterTimeout   time.Duration
	captureTimeout time.Duration
	deployTimeout  time.Duration
}

type Option func(*Client)

func WithTimeouts(meter, capture, deploy time.Duration) Option {
	return func(c *Client) {
		c.meterTimeout = meter
		c.captureTimeout = capture
		c.deployTimeout = deploy
	}
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		http:           &http.Client{},
		meterTimeout:   5 * time.Second,
		captureTimeout: 45 * time.Second,
		deployTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Meter requests a scene-brightness reading.
func (c *Client) Meter(ctx context.Context) (dto.MeterResponse, error) {
	var resp dto.MeterResponse
	err := c.do(ctx, http.MethodGet, "/v1/meter", nil, &resp, c.meterTimeout)
	if err != nil {
		return dto.MeterResponse{}, err
	}
	return resp, nil
}

// Capture dispatches one capture command (any of the three shapes).
func (c *Client) Capture(ctx context.Context, req dto.CaptureRequest) (dto.CaptureResponse, error) {
	var resp dto.CaptureResponse
	err := c.do(ctx, http.MethodPost, "/v1/capture", req, &resp, c.captureTimeout)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// DeployProfile pushes a complete profile package to the edge.
func (c *Client) DeployProfile(ctx context.Context, req dto.ProfileDeployRequest) error {
	return c.do(ctx, http.MethodPut, "/v1/profile", req, nil, c.deployTimeout)
}

// QueryProfile reports the resident profile or no_profile.
func (c *Client) QueryProfile(ctx context.Context) (dto.ProfileQueryResponse, error) {
	var resp dto.ProfileQueryResponse
	err := c.do(ctx, http.MethodGet, "/v1/profile", nil, &resp, c.deployTimeout)
	if err != nil {
		return dto.ProfileQueryResponse{}, err
	}
	return resp, nil
}

// ClearProfile reverts the edge to live-orchestration mode.
func (c *Client) ClearProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/profile", nil, nil, c.deployTimeout)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%s %s: %w", method, path, ErrEdgeNotReady)
	}
	if resp.StatusCode >= 400 {
		msg := errorMessage(data)
		if resp.StatusCode < 500 {
			return fmt.Errorf("%s %s: %w: %s", method, path, ErrRejected, msg)
		}
		return fmt.Errorf("%s %s: edge error %d: %s", method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return string(data)
}
