package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_SelfSimilarity(t *testing.T) {
	s := NewScorer(NewCache())
	for _, smi := range []string{"CCO", "c1ccccc1", "CC(=O)Oc1ccccc1C(=O)O", "[NH4+]", "C"} {
		t.Run(smi, func(t *testing.T) {
			assert.Equal(t, 1.0, s.Score(smi, smi, 2, 2048))
		})
	}
}

func TestScorer_Symmetric(t *testing.T) {
	s := NewScorer(nil)
	pairs := [][2]string{
		{"CCO", "CCN"},
		{"c1ccccc1", "Cc1ccccc1"},
		{"CC(=O)Oc1ccccc1C(=O)O", "OC(=O)c1ccccc1O"},
	}
	for _, p := range pairs {
		ab := s.Score(p[0], p[1], 2, 2048)
		ba := s.Score(p[1], p[0], 2, 2048)
		assert.Equal(t, ab, ba)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.Less(t, ab, 1.0)
	}
}

func TestScorer_InvalidNotationScoresZero(t *testing.T) {
	s := NewScorer(NewCache())
	assert.Equal(t, 0.0, s.Score("C1CC", "CCO", 2, 2048))
	assert.Equal(t, 0.0, s.Score("CCO", "C1CC", 2, 2048))
	assert.Equal(t, 0.0, s.Score("", "", 2, 2048))
}

func TestScorer_KekuleAndAromaticAgree(t *testing.T) {
	s := NewScorer(NewCache())
	assert.Equal(t, 1.0, s.Score("C1=CC=CC=C1", "c1ccccc1", 2, 2048))
}

func TestScorer_SharesCache(t *testing.T) {
	c := NewCache()
	s := NewScorer(c)
	assert.Same(t, c, s.Cache())

	s.Score("CCO", "CCN", 2, 2048)
	s.Score("CCO", "CCC", 2, 2048)
	assert.Equal(t, int64(3), c.Stats().Computations)
}
