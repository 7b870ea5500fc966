package redis

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/pkg/errors"
)

// nullMarker records a notation known not to parse.
const nullMarker = "__null__"

// FingerprintStore persists packed fingerprints in Redis so that repeated runs
// and concurrent miners share work. Keys embed radius and width; values are
// the raw bit vector.
type FingerprintStore struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

type StoreOption func(*FingerprintStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *FingerprintStore) { s.prefix = prefix }
}

// WithTTL sets the base expiry. Zero keeps entries forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *FingerprintStore) { s.ttl = ttl }
}

func NewFingerprintStore(client *Client, log logging.Logger, opts ...StoreOption) *FingerprintStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &FingerprintStore{
		client: client,
		logger: log,
		prefix: "keggminer:fp:",
		ttl:    7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FingerprintStore) key(notation string, radius, nBits int) string {
	return fmt.Sprintf("%sr%d:n%d:%016x", s.prefix, radius, nBits, xxhash.Sum64String(notation))
}

// +/- 10% so a batch written together does not expire together.
func (s *FingerprintStore) jitterTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	jitter := float64(s.ttl) * 0.1 * (rand.Float64()*2 - 1)
	return s.ttl + time.Duration(jitter)
}

// Load returns found=false on a miss. found=true with a nil fingerprint means
// the notation was recorded as unparseable. Undecodable entries are removed
// and reported as misses.
func (s *FingerprintStore) Load(ctx context.Context, notation string, radius, nBits int) (*molecule.Fingerprint, bool, error) {
	data, err := s.client.Get(ctx, s.key(notation, radius, nBits)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read fingerprint")
	}
	if string(data) == nullMarker {
		return nil, true, nil
	}

	fp, err := molecule.FingerprintFromBytes(data, nBits, radius)
	if err != nil {
		// A width change under the same key is a stale entry, not a failure.
		s.logger.Warn("discarding malformed cached fingerprint",
			logging.Int("bytes", len(data)), logging.Int("nbits", nBits), logging.Err(err))
		if err := s.Delete(ctx, notation, radius, nBits); err != nil {
			s.logger.Warn("failed to drop malformed cached fingerprint", logging.Err(err))
		}
		return nil, false, nil
	}
	return fp, true, nil
}

// Save writes fp, or the negative marker when fp is nil.
func (s *FingerprintStore) Save(ctx context.Context, notation string, radius, nBits int, fp *molecule.Fingerprint) error {
	var value interface{} = nullMarker
	if fp != nil {
		value = fp.ToBytes()
	}
	if err := s.client.Set(ctx, s.key(notation, radius, nBits), value, s.jitterTTL()).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write fingerprint")
	}
	return nil
}

// Delete removes one entry. Missing keys are not an error.
func (s *FingerprintStore) Delete(ctx context.Context, notation string, radius, nBits int) error {
	if err := s.client.Del(ctx, s.key(notation, radius, nBits)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete fingerprint")
	}
	return nil
}
