package fingerprint

import (
	"github.com/turtacn/keggminer/internal/domain/molecule"
)

// Scorer compares notations through a shared Cache.
type Scorer struct {
	cache *Cache
}

// NewScorer wraps cache, or a fresh in-process cache when nil.
func NewScorer(cache *Cache) *Scorer {
	if cache == nil {
		cache = NewCache()
	}
	return &Scorer{cache: cache}
}

// Score returns the Tanimoto similarity of a and b, or 0 when either has no
// fingerprint.
func (s *Scorer) Score(a, b string, radius, nBits int) float64 {
	fpA, ok := s.cache.Get(a, radius, nBits)
	if !ok {
		return 0
	}
	fpB, ok := s.cache.Get(b, radius, nBits)
	if !ok {
		return 0
	}
	return molecule.Tanimoto(fpA, fpB)
}

// Cache exposes the backing cache.
func (s *Scorer) Cache() *Cache { return s.cache }
