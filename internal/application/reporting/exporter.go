package reporting

import (
	"context"
	"io"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/keggminer/internal/application/mining"
	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
)

// Artifact kinds, used as metric labels and publication metadata.
const (
	KindResults  = "results"
	KindFailed   = "failed"
	KindMetadata = "metadata"
	KindImage    = "image"
)

// Paths names the local output files. An empty path disables that output.
type Paths struct {
	Results  string
	Failed   string
	Metadata string
	Image    string
}

// Artifact is one file written by an export.
type Artifact struct {
	Kind string
	Path string
}

// Summary lists what an export produced.
type Summary struct {
	Written   []Artifact
	Published []string
}

// Path returns the local path written for kind, or "".
func (s *Summary) Path(kind string) string {
	for _, a := range s.Written {
		if a.Kind == kind {
			return a.Path
		}
	}
	return ""
}

// Exporter writes pipeline reports to disk and optionally publishes them.
type Exporter struct {
	paths     Paths
	grid      GridOptions
	logger    logging.Logger
	metrics   *prometheus.MinerMetrics
	publisher *Publisher
}

type ExporterOption func(*Exporter)

func WithExportLogger(log logging.Logger) ExporterOption {
	return func(e *Exporter) {
		if log != nil {
			e.logger = log
		}
	}
}

func WithExportMetrics(m *prometheus.MinerMetrics) ExporterOption {
	return func(e *Exporter) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithGridOptions(opt GridOptions) ExporterOption {
	return func(e *Exporter) { e.grid = opt }
}

// WithPublisher uploads every written file after a successful export.
func WithPublisher(p *Publisher) ExporterOption {
	return func(e *Exporter) { e.publisher = p }
}

func NewExporter(paths Paths, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		paths:   paths,
		grid:    DefaultGridOptions(),
		logger:  logging.NewNopLogger(),
		metrics: prometheus.NewNoopMinerMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type job struct {
	kind  string
	path  string
	write func(io.Writer) error
}

// ExportSimilarity writes the results table, the failed list when there are
// failures, and the grid image when there are results.
func (e *Exporter) ExportSimilarity(ctx context.Context, report *mining.SimilarityReport) (*Summary, error) {
	var jobs []job
	if e.paths.Results != "" {
		jobs = append(jobs, job{KindResults, e.paths.Results, func(w io.Writer) error {
			return WriteSimilarityCSV(w, report.Results)
		}})
	}
	if e.paths.Failed != "" && len(report.Failures) > 0 {
		ids := report.FailedIDs()
		jobs = append(jobs, job{KindFailed, e.paths.Failed, func(w io.Writer) error {
			return WriteFailedCSV(w, ids)
		}})
	}
	if e.paths.Image != "" && len(report.Results) > 0 {
		items := GridItems(report.Results, report.Structures, e.grid.Limit)
		if len(items) > 0 {
			jobs = append(jobs, job{KindImage, e.paths.Image, func(w io.Writer) error {
				return RenderGrid(w, items, e.grid)
			}})
		}
	}
	return e.export(ctx, report.RunID, mining.PipelineSimilarity, jobs)
}

// ExportMetadata writes the metadata table and the failed list.
func (e *Exporter) ExportMetadata(ctx context.Context, report *mining.MetadataReport) (*Summary, error) {
	var jobs []job
	if e.paths.Metadata != "" {
		jobs = append(jobs, job{KindMetadata, e.paths.Metadata, func(w io.Writer) error {
			return WriteMetadataCSV(w, report.Entries)
		}})
	}
	if e.paths.Failed != "" && len(report.Failures) > 0 {
		ids := make([]compound.ID, len(report.Failures))
		for i, f := range report.Failures {
			ids[i] = f.ID
		}
		jobs = append(jobs, job{KindFailed, e.paths.Failed, func(w io.Writer) error {
			return WriteFailedCSV(w, ids)
		}})
	}
	return e.export(ctx, report.RunID, mining.PipelineMetadata, jobs)
}

func (e *Exporter) export(ctx context.Context, runID, pipeline string, jobs []job) (*Summary, error) {
	log := e.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String(logging.FieldPipeline, pipeline))

	var (
		mu      sync.Mutex
		summary = &Summary{}
	)
	g := new(errgroup.Group)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			err := writeFile(j.path, j.write)
			prometheus.RecordOutputFile(e.metrics, j.kind, err)
			if err != nil {
				log.Error("output write failed", logging.String("kind", j.kind), logging.String("path", j.path), logging.Err(err))
				return err
			}
			log.Info("output written", logging.String("kind", j.kind), logging.String("path", j.path))
			mu.Lock()
			summary.Written = append(summary.Written, Artifact{Kind: j.kind, Path: j.path})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	sortArtifacts(summary.Written)

	if e.publisher != nil && len(summary.Written) > 0 {
		keys, err := e.publisher.Publish(ctx, runID, pipeline, summary.Written)
		summary.Published = keys
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

var kindOrder = map[string]int{KindResults: 0, KindMetadata: 1, KindFailed: 2, KindImage: 3}

func sortArtifacts(a []Artifact) {
	sort.SliceStable(a, func(i, j int) bool { return kindOrder[a[i].Kind] < kindOrder[a[j].Kind] })
}
