// Package mining runs the per-identifier pipelines over a worker pool and
// partitions their outcomes into the records written by a run.
package mining

import (
	"context"
	"time"

	"github.com/turtacn/keggminer/internal/application/fingerprint"
	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
)

// MolFetcher retrieves the molfile of one compound.
type MolFetcher interface {
	Fetch(ctx context.Context, id compound.ID) ([]byte, error)
}

// SimilarityReport partitions a similarity run. Every input identifier is in
// exactly one of Results, Failures and Dropped.
type SimilarityReport struct {
	RunID     string
	Reference string
	Total     int
	Results   []compound.Result
	Failures  []compound.Failure
	Dropped   []compound.ID
	Duration  time.Duration

	// Structures holds the parsed structure of every result, for rendering.
	Structures map[compound.ID]*molecule.Molecule
}

// FailedIDs lists failed identifiers in the order of Failures.
func (r *SimilarityReport) FailedIDs() []compound.ID {
	ids := make([]compound.ID, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.ID
	}
	return ids
}

// SimilarityPipeline scores every compound against one reference structure.
type SimilarityPipeline struct {
	fetcher   MolFetcher
	scorer    *fingerprint.Scorer
	opts      Options
	reference string
	deps      pipelineDeps
}

type scored struct {
	smiles    string
	score     float64
	structure *molecule.Molecule
}

// NewSimilarityPipeline validates opts and canonicalises the reference.
func NewSimilarityPipeline(fetcher MolFetcher, scorer *fingerprint.Scorer, opts Options, popts ...PipelineOption) (*SimilarityPipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ref, err := opts.CanonicalReference()
	if err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = fingerprint.NewScorer(nil)
	}
	return &SimilarityPipeline{
		fetcher:   fetcher,
		scorer:    scorer,
		opts:      opts,
		reference: ref,
		deps:      newDeps(popts),
	}, nil
}

// Reference returns the canonical reference notation.
func (p *SimilarityPipeline) Reference() string { return p.reference }

func (p *SimilarityPipeline) work(ctx context.Context, id compound.ID) (interface{}, error) {
	body, err := p.fetcher.Fetch(ctx, id)
	if err != nil {
		return nil, failed(compound.StageFetch, err)
	}
	m, err := molecule.ParseMolBlock(string(body))
	if err != nil {
		p.deps.logger.Warn("structure parse failed", logging.KeggID(id.String()), logging.Err(err))
		return nil, failed(compound.StageParse, err)
	}
	smiles := molecule.CanonicalSMILES(m)
	return scored{
		smiles:    smiles,
		score:     p.scorer.Score(p.reference, smiles, p.opts.Radius, p.opts.NBits),
		structure: m,
	}, nil
}

// Run resolves every identifier. It never fails as a whole: per-identifier
// problems become failures.
func (p *SimilarityPipeline) Run(ctx context.Context, ids []compound.ID) *SimilarityReport {
	log := p.deps.logger.With(logging.String(logging.FieldPipeline, PipelineSimilarity))
	report := &SimilarityReport{
		RunID:      newRunID(),
		Reference:  p.reference,
		Total:      len(ids),
		Results:    []compound.Result{},
		Failures:   []compound.Failure{},
		Dropped:    []compound.ID{},
		Structures: make(map[compound.ID]*molecule.Molecule),
	}
	log = log.With(logging.String(logging.FieldRunID, report.RunID))
	log.Info("similarity run started",
		logging.Int("total", len(ids)),
		logging.String("reference", p.reference),
		logging.Float64("threshold", p.opts.Threshold))

	timer := startRun(PipelineSimilarity, p.deps.metrics)
	sched := &Scheduler{Workers: p.opts.Workers, Logger: log}
	outcomes := Collect(sched.Run(ctx, ids, timer.track(p.work)), len(ids), p.deps.progress)

	for _, o := range outcomes {
		if o.Err != nil {
			report.Failures = append(report.Failures, failureOf(o))
			prometheus.RecordMiningOutcome(p.deps.metrics, PipelineSimilarity, outcomeFailed)
			continue
		}
		s := o.Value.(scored)
		if s.score >= p.opts.Threshold {
			report.Results = append(report.Results, compound.Result{ID: o.ID, SMILES: s.smiles, Similarity: s.score})
			report.Structures[o.ID] = s.structure
			prometheus.RecordMiningOutcome(p.deps.metrics, PipelineSimilarity, outcomeResult)
		} else {
			report.Dropped = append(report.Dropped, o.ID)
			prometheus.RecordMiningOutcome(p.deps.metrics, PipelineSimilarity, outcomeDropped)
		}
	}

	compound.SortResults(report.Results)
	compound.SortFailures(report.Failures)
	sortIDs(report.Dropped)
	report.Duration = timer.stop()

	log.Info("similarity run finished",
		logging.Int("results", len(report.Results)),
		logging.Int("failed", len(report.Failures)),
		logging.Int("below_threshold", len(report.Dropped)),
		logging.Duration("duration", report.Duration))
	return report
}
