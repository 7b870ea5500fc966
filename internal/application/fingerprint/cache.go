// Package fingerprint memoises Morgan fingerprints by canonical notation and
// scores pairs of notations against each other.
package fingerprint

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
)

const (
	tierMemory = "memory"
	tierStore  = "store"
)

// Key identifies one fingerprint computation.
type Key struct {
	Notation string
	Radius   int
	NBits    int
}

func (k Key) String() string {
	return fmt.Sprintf("r%d:n%d:%s", k.Radius, k.NBits, k.Notation)
}

// Store is an optional shared tier consulted on a local miss. A found entry
// with a nil fingerprint records an unparseable notation.
type Store interface {
	Load(ctx context.Context, notation string, radius, nBits int) (*molecule.Fingerprint, bool, error)
	Save(ctx context.Context, notation string, radius, nBits int, fp *molecule.Fingerprint) error
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         int64
	Misses       int64
	Computations int64
	Entries      int
}

// Cache is safe for concurrent use. Entries are never evicted, and a
// fingerprint it returns is shared by every caller.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*molecule.Fingerprint
	group   singleflight.Group

	store        Store
	storeTimeout time.Duration
	logger       logging.Logger
	metrics      *prometheus.MinerMetrics
	onCompute    func(Key)

	hits         atomic.Int64
	misses       atomic.Int64
	computations atomic.Int64
}

type Option func(*Cache)

// WithStore adds a second tier. Each store call is bounded by timeout.
func WithStore(store Store, timeout time.Duration) Option {
	return func(c *Cache) {
		c.store = store
		if timeout > 0 {
			c.storeTimeout = timeout
		}
	}
}

func WithLogger(log logging.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.logger = log
		}
	}
}

func WithMetrics(m *prometheus.MinerMetrics) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithComputeHook registers fn to run on every real computation.
func WithComputeHook(fn func(Key)) Option {
	return func(c *Cache) { c.onCompute = fn }
}

// NewCache returns an empty in-process cache with no backing store.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries:      make(map[Key]*molecule.Fingerprint),
		storeTimeout: 2 * time.Second,
		logger:       logging.NewNopLogger(),
		metrics:      prometheus.NewNoopMinerMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the fingerprint of notation, computing it on first use. An
// unparseable notation yields (nil, false), and that answer is remembered too.
func (c *Cache) Get(notation string, radius, nBits int) (*molecule.Fingerprint, bool) {
	key := Key{Notation: notation, Radius: radius, NBits: nBits}

	if fp, ok := c.lookup(key); ok {
		c.hits.Add(1)
		prometheus.RecordCacheAccess(c.metrics, tierMemory, true)
		return fp, fp != nil
	}
	c.misses.Add(1)
	prometheus.RecordCacheAccess(c.metrics, tierMemory, false)

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// A flight that finished between lookup and Do already stored it.
		if fp, ok := c.lookup(key); ok {
			return fp, nil
		}
		fp := c.load(key)
		c.mu.Lock()
		c.entries[key] = fp
		c.mu.Unlock()
		return fp, nil
	})
	fp := v.(*molecule.Fingerprint)
	return fp, fp != nil
}

func (c *Cache) lookup(key Key) (*molecule.Fingerprint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fp, ok := c.entries[key]
	return fp, ok
}

// load consults the store, then computes and writes back.
func (c *Cache) load(key Key) *molecule.Fingerprint {
	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
		fp, found, err := c.store.Load(ctx, key.Notation, key.Radius, key.NBits)
		cancel()
		switch {
		case err != nil:
			c.logger.Warn("fingerprint store read failed", logging.String("key", key.String()), logging.Err(err))
		case found:
			prometheus.RecordCacheAccess(c.metrics, tierStore, true)
			return fp
		default:
			prometheus.RecordCacheAccess(c.metrics, tierStore, false)
		}
	}

	fp := c.compute(key)

	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
		if err := c.store.Save(ctx, key.Notation, key.Radius, key.NBits, fp); err != nil {
			c.logger.Warn("fingerprint store write failed", logging.String("key", key.String()), logging.Err(err))
		}
		cancel()
	}
	return fp
}

func (c *Cache) compute(key Key) *molecule.Fingerprint {
	c.computations.Add(1)
	if c.onCompute != nil {
		c.onCompute(key)
	}

	m, err := molecule.ParseSMILES(key.Notation)
	if err != nil {
		c.metrics.FingerprintComputed.WithLabelValues("invalid").Inc()
		c.logger.Debug("notation not parseable", logging.String("notation", key.Notation), logging.Err(err))
		return nil
	}
	fp, err := molecule.MorganFingerprint(m, key.Radius, key.NBits)
	if err != nil {
		c.metrics.FingerprintComputed.WithLabelValues("invalid").Inc()
		c.logger.Debug("fingerprint not computable", logging.String("notation", key.Notation), logging.Err(err))
		return nil
	}
	c.metrics.FingerprintComputed.WithLabelValues("ok").Inc()
	return fp
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Entries:      n,
	}
}
