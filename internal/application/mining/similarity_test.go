package mining

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keggminer/internal/application/fingerprint"
	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/kegg"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/internal/testutil"
	"github.com/turtacn/keggminer/pkg/errors"
)

func similarityOptions(threshold float64) Options {
	o := DefaultOptions()
	o.Reference = "CCO"
	o.Threshold = threshold
	o.Workers = 4
	return o
}

func newSimilarity(t *testing.T, f MolFetcher, opts Options, popts ...PipelineOption) *SimilarityPipeline {
	t.Helper()
	p, err := NewSimilarityPipeline(f, nil, opts, popts...)
	require.NoError(t, err)
	return p
}

// assertPartition checks every input lands in exactly one bucket.
func assertPartition(t *testing.T, input []compound.ID, r *SimilarityReport) {
	t.Helper()
	seen := map[compound.ID]int{}
	for _, res := range r.Results {
		seen[res.ID]++
	}
	for _, f := range r.Failures {
		seen[f.ID]++
	}
	for _, id := range r.Dropped {
		seen[id]++
	}
	assert.Equal(t, len(input), len(r.Results)+len(r.Failures)+len(r.Dropped))
	for _, id := range input {
		assert.Equal(t, 1, seen[id], "identifier %s", id)
	}
}

func TestNewSimilarityPipeline_Validation(t *testing.T) {
	_, err := NewSimilarityPipeline(newStubFetcher(), nil, similarityOptions(1.2))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSimilarityThresholdInvalid))

	bad := similarityOptions(0.5)
	bad.Reference = "C1CC"
	_, err = NewSimilarityPipeline(newStubFetcher(), nil, bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))

	p := newSimilarity(t, newStubFetcher(), similarityOptions(0.5))
	assert.Equal(t, "CCO", p.Reference())
}

func TestSimilarityPipeline_Partition(t *testing.T) {
	f := newStubFetcher()
	f.mols["C00469"] = ethanolMol
	f.mols["C00116"] = propanolMol
	f.mols["C06533"] = benzeneMol
	f.mols["C99999"] = "this is not a molfile"

	input := idList("C06533", "C00469", "C00002", "C99999", "C00116")
	report := newSimilarity(t, f, similarityOptions(0.8)).Run(context.Background(), input)

	assertPartition(t, input, report)
	assert.Equal(t, len(input), report.Total)
	assert.NotEmpty(t, report.RunID)

	require.NotEmpty(t, report.Results)
	assert.Equal(t, compound.ID("C00469"), report.Results[0].ID)
	assert.Equal(t, "CCO", report.Results[0].SMILES)
	assert.InDelta(t, 1.0, report.Results[0].Similarity, 1e-12)
	for _, r := range report.Results {
		assert.GreaterOrEqual(t, r.Similarity, 0.8)
		assert.Contains(t, report.Structures, r.ID)
	}
	assert.Len(t, report.Structures, len(report.Results))
	assert.Contains(t, report.Dropped, compound.ID("C06533"))

	require.Len(t, report.Failures, 2)
	assert.Equal(t, compound.Failure{
		ID:     "C00002",
		Stage:  compound.StageFetch,
		Reason: report.Failures[0].Reason,
	}, report.Failures[0])
	assert.Equal(t, compound.ID("C99999"), report.Failures[1].ID)
	assert.Equal(t, compound.StageParse, report.Failures[1].Stage)
	assert.Equal(t, idList("C00002", "C99999"), report.FailedIDs())
}

func TestSimilarityPipeline_ResultsSortedDescending(t *testing.T) {
	f := newStubFetcher()
	f.mols["C00469"] = ethanolMol
	f.mols["C00116"] = propanolMol
	f.mols["C00470"] = ethanolMol

	report := newSimilarity(t, f, similarityOptions(0)).Run(context.Background(), idList("C00116", "C00470", "C00469"))

	require.Len(t, report.Results, 3)
	for i := 1; i < len(report.Results); i++ {
		prev, cur := report.Results[i-1], report.Results[i]
		assert.True(t, prev.Similarity > cur.Similarity ||
			(prev.Similarity == cur.Similarity && prev.ID < cur.ID), "%v before %v", prev, cur)
	}
	assert.Equal(t, compound.ID("C00469"), report.Results[0].ID)
	assert.Equal(t, compound.ID("C00470"), report.Results[1].ID)
	assert.Equal(t, compound.ID("C00116"), report.Results[2].ID)
}

func TestSimilarityPipeline_ThresholdInclusive(t *testing.T) {
	scorer := fingerprint.NewScorer(nil)
	opts := similarityOptions(0)
	exact := scorer.Score("CCO", "CCCO", opts.Radius, opts.NBits)
	require.Greater(t, exact, 0.0)
	require.Less(t, exact, 1.0)

	f := newStubFetcher()
	f.mols["C00116"] = propanolMol

	opts.Threshold = exact
	p, err := NewSimilarityPipeline(f, scorer, opts)
	require.NoError(t, err)
	report := p.Run(context.Background(), idList("C00116"))
	require.Len(t, report.Results, 1)
	assert.Equal(t, exact, report.Results[0].Similarity)

	opts.Threshold = exact + 1e-9
	p, err = NewSimilarityPipeline(f, scorer, opts)
	require.NoError(t, err)
	report = p.Run(context.Background(), idList("C00116"))
	assert.Empty(t, report.Results)
	assert.Equal(t, idList("C00116"), report.Dropped)
}

func TestSimilarityPipeline_EmptyInput(t *testing.T) {
	var calls [][2]int
	progress := ProgressFunc(func(done, total int) { calls = append(calls, [2]int{done, total}) })

	report := newSimilarity(t, newStubFetcher(), similarityOptions(0.8), WithProgress(progress)).
		Run(context.Background(), nil)

	assert.Empty(t, report.Results)
	assert.Empty(t, report.Failures)
	assert.Empty(t, report.Dropped)
	assert.NotNil(t, report.Results)
	assert.Equal(t, [][2]int{{0, 0}}, calls)
}

func TestSimilarityPipeline_CanceledRun(t *testing.T) {
	f := newStubFetcher()
	f.mols["C00469"] = ethanolMol

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := idList("C00469", "C00470", "C00471")
	report := newSimilarity(t, f, similarityOptions(0.8)).Run(ctx, input)

	assertPartition(t, input, report)
	require.Len(t, report.Failures, 3)
	for _, fl := range report.Failures {
		assert.Equal(t, compound.StageFetch, fl.Stage)
	}
}

func TestSimilarityPipeline_DuplicateIDsProcessedTwice(t *testing.T) {
	f := newStubFetcher()
	f.mols["C00469"] = ethanolMol

	report := newSimilarity(t, f, similarityOptions(0.8)).Run(context.Background(), idList("C00469", "C00469"))

	assert.Len(t, report.Results, 2)
	assert.Equal(t, 2, f.callCount("C00469"))
}

func TestSimilarityPipeline_LogsAndMetrics(t *testing.T) {
	f := newStubFetcher()
	f.mols["C00469"] = ethanolMol
	f.mols["C06533"] = benzeneMol
	f.mols["C99999"] = "garbage"

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	log := testutil.NewMockLogger()
	p := newSimilarity(t, f, similarityOptions(0.8),
		WithLogger(log), WithMetrics(prometheus.NewMinerMetrics(collector)))

	report := p.Run(context.Background(), idList("C00469", "C06533", "C99999", "C00002"))

	started := log.Filter("info", "similarity run started")
	require.Len(t, started, 1)
	runID, ok := started[0].Field("run_id")
	require.True(t, ok)
	assert.Equal(t, report.RunID, runID)
	assert.True(t, log.HasMessage("info", "similarity run finished"))
	parseWarns := log.Filter("warn", "structure parse failed")
	require.Len(t, parseWarns, 1)
	id, _ := parseWarns[0].Field("kegg_id")
	assert.Equal(t, "C99999", id)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_mining_items_total{outcome="result",pipeline="similarity"} 1`)
	assert.Contains(t, body, `test_mining_items_total{outcome="dropped",pipeline="similarity"} 1`)
	assert.Contains(t, body, `test_mining_items_total{outcome="failed",pipeline="similarity"} 2`)
	assert.Contains(t, body, `test_mining_in_flight{pipeline="similarity"} 0`)
	assert.Contains(t, body, `test_mining_run_duration_seconds_count{pipeline="similarity"} 1`)
}

// TestSimilarityPipeline_EndToEnd drives the pipeline through the real KEGG
// client against a local server.
func TestSimilarityPipeline_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/get/C00469/mol"):
			_, _ = w.Write([]byte(ethanolMol))
		case strings.HasPrefix(r.URL.Path, "/get/C06533/mol"):
			_, _ = w.Write([]byte(benzeneMol))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	client, err := kegg.NewClient(srv.URL)
	require.NoError(t, err)
	fetcher := kegg.NewFetcher(client, kegg.NewRetryPolicy(2, 0, 0))

	input := idList("C00469", "C00002", "C06533")
	report := newSimilarity(t, fetcher, similarityOptions(0.8)).Run(context.Background(), input)

	assertPartition(t, input, report)
	require.Len(t, report.Results, 1)
	assert.Equal(t, compound.Result{ID: "C00469", SMILES: "CCO", Similarity: 1}, report.Results[0])
	require.Len(t, report.Failures, 1)
	assert.Equal(t, compound.ID("C00002"), report.Failures[0].ID)
	assert.Equal(t, compound.StageFetch, report.Failures[0].Stage)
	assert.Contains(t, report.Failures[0].Reason, string(errors.ErrCodeKEGGNoData))
	assert.Equal(t, idList("C06533"), report.Dropped)
}
