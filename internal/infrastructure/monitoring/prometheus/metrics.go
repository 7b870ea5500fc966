package prometheus

import (
	"strconv"
	"time"
)

// MinerMetrics holds every metric a mining run reports.
type MinerMetrics struct {
	// KEGG REST layer
	KEGGRequestsTotal   CounterVec
	KEGGRequestDuration HistogramVec
	KEGGRetriesTotal    CounterVec
	KEGGBreakerState    GaugeVec

	// Fingerprint cache
	FingerprintCacheHits   CounterVec
	FingerprintCacheMisses CounterVec
	FingerprintComputed    CounterVec

	// Pipelines
	MiningItemsTotal  CounterVec
	MiningInFlight    GaugeVec
	MiningRunDuration HistogramVec

	// Outputs
	OutputFilesTotal CounterVec
}

// Default buckets
var (
	DefaultRemoteDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultRunDurationBuckets    = []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200}
)

// NewMinerMetrics registers all metrics on collector.
func NewMinerMetrics(collector MetricsCollector) *MinerMetrics {
	m := &MinerMetrics{}

	m.KEGGRequestsTotal = collector.RegisterCounter("kegg_requests_total", "KEGG REST requests by endpoint and HTTP status", "endpoint", "status")
	m.KEGGRequestDuration = collector.RegisterHistogram("kegg_request_duration_seconds", "KEGG REST request latency", DefaultRemoteDurationBuckets, "endpoint")
	m.KEGGRetriesTotal = collector.RegisterCounter("kegg_retries_total", "KEGG attempts beyond the first", "endpoint")
	m.KEGGBreakerState = collector.RegisterGauge("kegg_circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name")

	m.FingerprintCacheHits = collector.RegisterCounter("fingerprint_cache_hits_total", "Fingerprint cache hits", "tier")
	m.FingerprintCacheMisses = collector.RegisterCounter("fingerprint_cache_misses_total", "Fingerprint cache misses", "tier")
	m.FingerprintComputed = collector.RegisterCounter("fingerprint_computations_total", "Fingerprints computed", "result")

	m.MiningItemsTotal = collector.RegisterCounter("mining_items_total", "Identifiers resolved by pipeline and outcome", "pipeline", "outcome")
	m.MiningInFlight = collector.RegisterGauge("mining_in_flight", "Identifiers currently being processed", "pipeline")
	m.MiningRunDuration = collector.RegisterHistogram("mining_run_duration_seconds", "Pipeline run duration", DefaultRunDurationBuckets, "pipeline")

	m.OutputFilesTotal = collector.RegisterCounter("output_files_total", "Output files written or published", "kind", "status")

	return m
}

// NewNoopMinerMetrics returns metrics that discard every update.
func NewNoopMinerMetrics() *MinerMetrics {
	return NewMinerMetrics(NewNoopCollector())
}

// Helpers

// RecordKEGGRequest counts one HTTP exchange. status is 0 when no response
// arrived.
func RecordKEGGRequest(m *MinerMetrics, endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.KEGGRequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.KEGGRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func RecordCacheAccess(m *MinerMetrics, tier string, hit bool) {
	if hit {
		m.FingerprintCacheHits.WithLabelValues(tier).Inc()
	} else {
		m.FingerprintCacheMisses.WithLabelValues(tier).Inc()
	}
}

func RecordMiningOutcome(m *MinerMetrics, pipeline, outcome string) {
	m.MiningItemsTotal.WithLabelValues(pipeline, outcome).Inc()
}

func RecordOutputFile(m *MinerMetrics, kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OutputFilesTotal.WithLabelValues(kind, status).Inc()
}
