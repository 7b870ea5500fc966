// Package kegg talks to the KEGG REST service.
package kegg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/pkg/errors"
)

const (
	DefaultBaseURL   = "https://rest.kegg.jp"
	DefaultUserAgent = "keggminer/1.0"
	DefaultTimeout   = 10 * time.Second

	EndpointMol   = "mol"
	EndpointEntry = "entry"

	maxBodySize = 8 << 20
)

// Transport performs one HTTP exchange. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	RequestID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("kegg: HTTP %d for %s [request_id=%s]", e.StatusCode, e.URL, e.RequestID)
}

// Client issues single requests without retrying.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	transport Transport
	logger    logging.Logger
	metrics   *prometheus.MinerMetrics
}

type ClientOption func(*Client)

// WithTransport replaces the default *http.Client.
func WithTransport(t Transport) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(log logging.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

func WithMetrics(m *prometheus.MinerMetrics) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient validates baseURL and applies opts.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.InvalidParam("invalid KEGG base URL").WithCause(err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.InvalidParam("KEGG base URL scheme must be http or https").WithDetail(baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		logger:    logging.NewNopLogger(),
		metrics:   prometheus.NewNoopMinerMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// FetchMol returns the MDL molfile of id.
func (c *Client) FetchMol(ctx context.Context, id compound.ID) ([]byte, error) {
	return c.get(ctx, EndpointMol, "/get/"+url.PathEscape(id.String())+"/mol")
}

// FetchEntry returns the flat-file record of id.
func (c *Client) FetchEntry(ctx context.Context, id compound.ID) ([]byte, error) {
	return c.get(ctx, EndpointEntry, "/get/"+url.PathEscape(id.String()))
}

func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKEGGRequestFailed, "failed to create request").WithDetail(fullURL)
	}
	requestID := uuid.New().String()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.transport.Do(req)
	if err != nil {
		prometheus.RecordKEGGRequest(c.metrics, endpoint, 0, time.Since(start))
		return nil, errors.Wrap(err, errors.ErrCodeKEGGRequestFailed, "request failed").WithDetail(fullURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	prometheus.RecordKEGGRequest(c.metrics, endpoint, resp.StatusCode, elapsed)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeKEGGRequestFailed, "failed to read response body").WithDetail(fullURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, URL: fullURL, RequestID: requestID}
		return nil, errors.Wrap(statusErr, errors.ErrCodeKEGGStatus, "unexpected status")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New(errors.ErrCodeKEGGRequestFailed, "empty response body").WithDetail(fullURL)
	}

	logging.LogRemoteCall(c.logger, http.MethodGet, fullURL, resp.StatusCode, elapsed, nil)
	return body, nil
}
