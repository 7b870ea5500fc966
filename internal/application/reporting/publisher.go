package reporting

import (
	"context"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/internal/infrastructure/storage/minio"
	"github.com/turtacn/keggminer/pkg/errors"
)

// ObjectStore is the storage side of publication.
type ObjectStore interface {
	ObjectKey(parts ...string) string
	UploadFile(ctx context.Context, key, localPath string, metadata map[string]string) (*minio.UploadResult, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Publisher uploads run artifacts under <prefix>/<run id>/<file name>.
type Publisher struct {
	store    ObjectStore
	logger   logging.Logger
	metrics  *prometheus.MinerMetrics
	attempts uint64
	interval time.Duration
}

type PublisherOption func(*Publisher)

func WithPublishLogger(log logging.Logger) PublisherOption {
	return func(p *Publisher) {
		if log != nil {
			p.logger = log
		}
	}
}

func WithPublishMetrics(m *prometheus.MinerMetrics) PublisherOption {
	return func(p *Publisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithPublishRetry sets the attempts per file and the initial backoff.
func WithPublishRetry(attempts int, interval time.Duration) PublisherOption {
	return func(p *Publisher) {
		if attempts > 0 {
			p.attempts = uint64(attempts)
		}
		p.interval = interval
	}
}

func NewPublisher(store ObjectStore, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:    store,
		logger:   logging.NewNopLogger(),
		metrics:  prometheus.NewNoopMinerMetrics(),
		attempts: 3,
		interval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish uploads every artifact and returns the keys stored. It attempts
// all artifacts and reports the first failure. Retries check the store first
// so an upload whose response was lost is not repeated.
func (p *Publisher) Publish(ctx context.Context, runID, pipeline string, artifacts []Artifact) ([]string, error) {
	var (
		keys     []string
		firstErr error
	)
	for _, a := range artifacts {
		key := p.store.ObjectKey(runID, filepath.Base(a.Path))
		meta := map[string]string{
			"run-id":   runID,
			"pipeline": pipeline,
			"kind":     a.Kind,
		}

		attempt := 0
		err := backoff.Retry(func() error {
			attempt++
			// A failed attempt may still have stored the object.
			if attempt > 1 {
				if ok, err := p.store.Exists(ctx, key); err == nil && ok {
					p.logger.Debug("artifact already stored by an earlier attempt",
						logging.String(logging.FieldRunID, runID), logging.String("key", key))
					return nil
				}
			}
			_, err := p.store.UploadFile(ctx, key, a.Path, meta)
			if err != nil && ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}, p.policy(ctx))

		prometheus.RecordOutputFile(p.metrics, "publish_"+a.Kind, err)
		if err != nil {
			p.logger.Error("artifact publication failed",
				logging.String(logging.FieldRunID, runID), logging.String("key", key), logging.Err(err))
			if firstErr == nil {
				firstErr = errors.Wrap(err, errors.ErrCodePublishFailed, "failed to publish artifact").WithDetail(key)
			}
			continue
		}
		p.logger.Info("artifact published", logging.String(logging.FieldRunID, runID), logging.String("key", key))
		keys = append(keys, key)
	}
	return keys, firstErr
}

func (p *Publisher) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.interval
	b.MaxElapsedTime = 0
	var bo backoff.BackOff = b
	if p.interval <= 0 {
		bo = &backoff.ZeroBackOff{}
	}
	return backoff.WithContext(backoff.WithMaxRetries(bo, p.attempts-1), ctx)
}
