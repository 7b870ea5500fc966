// Package client queries the status server of a running keggminer.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/keggminer/pkg/errors"
)

const Version = "0.1.0"

// Client talks to one status server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("keggminer: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Progress mirrors GET /progress.
type Progress struct {
	Pipeline string `json:"pipeline"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Running  bool   `json:"running"`
}

// Liveness mirrors GET /healthz.
type Liveness struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Readiness mirrors GET /readyz.
type Readiness struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components,omitempty"`
}

type Component struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ready reports whether every component answered.
func (r *Readiness) Ready() bool { return r.Status == "ready" }

// NewClient creates a client for the server at baseURL. A bare host:port is
// taken as http.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("status server address is required")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.InvalidParam("invalid status server address").WithDetail(baseURL).WithCause(err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.InvalidParam("status server scheme must be http or https").WithDetail(baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  fmt.Sprintf("keggminer-client/%s", Version),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Progress returns the pipeline progress. Before any pipeline starts the
// server answers 404, reported as an *APIError.
func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	var p Progress
	if err := c.get(ctx, "/progress", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Liveness(ctx context.Context) (*Liveness, error) {
	var l Liveness
	if err := c.get(ctx, "/healthz", &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Readiness returns the dependency report. A 503 still carries the report and
// is not an error.
func (c *Client) Readiness(ctx context.Context) (*Readiness, error) {
	var r Readiness
	if err := c.get(ctx, "/readyz", &r, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &r, nil
}

// get decodes the JSON body of path into result. Statuses in accept are
// decoded like 2xx.
func (c *Client) get(ctx context.Context, path string, result interface{}, accept ...int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "status server unreachable").WithDetail(c.baseURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to read response body")
	}

	if resp.StatusCode >= 400 && !accepted(resp.StatusCode, accept) {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Code != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Message
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode response").WithDetail(path)
	}
	return nil
}

func accepted(status int, accept []int) bool {
	for _, s := range accept {
		if s == status {
			return true
		}
	}
	return false
}
