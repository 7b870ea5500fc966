package kegg

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/pkg/errors"
)

// BreakerSettings configures the optional circuit breaker.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// Fetcher adds retries, logging and an optional circuit breaker to Client.
type Fetcher struct {
	client  *Client
	retry   *RetryPolicy
	breaker *gobreaker.CircuitBreaker
	logger  logging.Logger
	metrics *prometheus.MinerMetrics
}

type FetcherOption func(*Fetcher)

func WithFetcherLogger(log logging.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.logger = log
		}
	}
}

func WithFetcherMetrics(m *prometheus.MinerMetrics) FetcherOption {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// WithBreaker trips after MinRequests calls when the failure ratio reaches
// FailureRatio. While open every attempt fails immediately.
func WithBreaker(s BreakerSettings) FetcherOption {
	return func(f *Fetcher) {
		name := s.Name
		if name == "" {
			name = "kegg"
		}
		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: s.MaxRequests,
			Interval:    s.Interval,
			Timeout:     s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < s.MinRequests {
					return false
				}
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio >= s.FailureRatio
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				f.logger.Warn("circuit breaker state changed",
					logging.String("name", name),
					logging.String("from", from.String()),
					logging.String("to", to.String()))
				f.metrics.KEGGBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
	}
}

func NewFetcher(client *Client, retry *RetryPolicy, opts ...FetcherOption) *Fetcher {
	if retry == nil {
		retry = NewRetryPolicy(1, 0, 0)
	}
	f := &Fetcher{
		client:  client,
		retry:   retry,
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNoopMinerMetrics(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MaxAttempts is the per-endpoint attempt bound.
func (f *Fetcher) MaxAttempts() int { return f.retry.MaxAttempts }

// Fetch returns the molfile of id.
func (f *Fetcher) Fetch(ctx context.Context, id compound.ID) ([]byte, error) {
	return f.fetch(ctx, id, EndpointMol, f.client.FetchMol)
}

// FetchWithMetadata returns the molfile and the flat-file entry of id. Both
// must succeed.
func (f *Fetcher) FetchWithMetadata(ctx context.Context, id compound.ID) ([]byte, []byte, error) {
	mol, err := f.fetch(ctx, id, EndpointMol, f.client.FetchMol)
	if err != nil {
		return nil, nil, err
	}
	entry, err := f.fetch(ctx, id, EndpointEntry, f.client.FetchEntry)
	if err != nil {
		return nil, nil, err
	}
	return mol, entry, nil
}

func (f *Fetcher) fetch(ctx context.Context, id compound.ID, endpoint string, call func(context.Context, compound.ID) ([]byte, error)) ([]byte, error) {
	var body []byte
	err := f.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			f.metrics.KEGGRetriesTotal.WithLabelValues(endpoint).Inc()
		}

		b, err := f.execute(ctx, id, call)
		if err != nil {
			f.logger.Warn("KEGG fetch attempt failed",
				logging.KeggID(id.String()),
				logging.String("endpoint", endpoint),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", f.retry.MaxAttempts),
				logging.Err(err))
			if ctx.Err() != nil || !errors.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err == nil {
		return body, nil
	}

	if ctx.Err() != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCanceled, "fetch canceled").WithDetail(id.String())
	}
	return nil, errors.Wrap(err, errors.ErrCodeKEGGNoData, "no data retrieved").
		WithDetailf("%s/%s after %d attempts", id, endpoint, f.retry.MaxAttempts)
}

func (f *Fetcher) execute(ctx context.Context, id compound.ID, call func(context.Context, compound.ID) ([]byte, error)) ([]byte, error) {
	if f.breaker == nil {
		return call(ctx, id)
	}
	v, err := f.breaker.Execute(func() (interface{}, error) {
		return call(ctx, id)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.Wrap(err, errors.ErrCodeKEGGCircuitOpen, "circuit breaker rejected request")
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
