package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMinerMetrics(t *testing.T) (*MinerMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewMinerMetrics(c), c
}

func TestNewMinerMetrics_AllRegistered(t *testing.T) {
	m, _ := newTestMinerMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.KEGGRequestsTotal)
	assert.NotNil(t, m.KEGGRequestDuration)
	assert.NotNil(t, m.KEGGRetriesTotal)
	assert.NotNil(t, m.KEGGBreakerState)
	assert.NotNil(t, m.FingerprintCacheHits)
	assert.NotNil(t, m.FingerprintCacheMisses)
	assert.NotNil(t, m.FingerprintComputed)
	assert.NotNil(t, m.MiningItemsTotal)
	assert.NotNil(t, m.MiningInFlight)
	assert.NotNil(t, m.MiningRunDuration)
	assert.NotNil(t, m.OutputFilesTotal)
}

func TestRecordKEGGRequest(t *testing.T) {
	m, c := newTestMinerMetrics(t)
	RecordKEGGRequest(m, "mol", 200, 120*time.Millisecond)
	RecordKEGGRequest(m, "mol", 0, time.Second)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_kegg_requests_total{endpoint="mol",status="200"} 1`)
	assert.Contains(t, output, `test_unit_kegg_requests_total{endpoint="mol",status="error"} 1`)
	assert.Contains(t, output, `test_unit_kegg_request_duration_seconds_count{endpoint="mol"} 2`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestMinerMetrics(t)
	RecordCacheAccess(m, "memory", true)
	RecordCacheAccess(m, "memory", true)
	RecordCacheAccess(m, "redis", false)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_fingerprint_cache_hits_total{tier="memory"} 2`)
	assert.Contains(t, output, `test_unit_fingerprint_cache_misses_total{tier="redis"} 1`)
}

func TestRecordMiningOutcome(t *testing.T) {
	m, c := newTestMinerMetrics(t)
	RecordMiningOutcome(m, "similarity", "result")
	RecordMiningOutcome(m, "similarity", "dropped")
	RecordMiningOutcome(m, "similarity", "result")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_mining_items_total{outcome="result",pipeline="similarity"} 2`)
	assert.Contains(t, output, `test_unit_mining_items_total{outcome="dropped",pipeline="similarity"} 1`)
}

func TestRecordOutputFile(t *testing.T) {
	m, c := newTestMinerMetrics(t)
	RecordOutputFile(m, "results", nil)
	RecordOutputFile(m, "image", errors.New("disk full"))

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_output_files_total{kind="results",status="ok"} 1`)
	assert.Contains(t, output, `test_unit_output_files_total{kind="image",status="error"} 1`)
}

func TestNewNoopMinerMetrics(t *testing.T) {
	m := NewNoopMinerMetrics()
	assert.NotPanics(t, func() {
		RecordKEGGRequest(m, "entry", 503, time.Millisecond)
		RecordCacheAccess(m, "memory", false)
		RecordMiningOutcome(m, "metadata", "failed")
		RecordOutputFile(m, "failed", nil)
		m.MiningInFlight.WithLabelValues("metadata").Inc()
	})
}
