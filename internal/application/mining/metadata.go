package mining

import (
	"context"
	"sort"
	"time"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
)

// MetadataFetcher retrieves the molfile and flat-file record of a compound.
type MetadataFetcher interface {
	FetchWithMetadata(ctx context.Context, id compound.ID) (mol []byte, entry []byte, err error)
}

// MetadataReport partitions a metadata run. Every input identifier is in
// exactly one of Entries and Failures.
type MetadataReport struct {
	RunID    string
	Total    int
	Entries  []compound.Entry
	Failures []compound.Failure
	Duration time.Duration
}

// MetadataPipeline collects name, formula and canonical SMILES per compound.
type MetadataPipeline struct {
	fetcher MetadataFetcher
	workers int
	deps    pipelineDeps
}

// NewMetadataPipeline builds a pipeline over fetcher. Workers at or below
// zero mean one per CPU.
func NewMetadataPipeline(fetcher MetadataFetcher, workers int, popts ...PipelineOption) *MetadataPipeline {
	return &MetadataPipeline{
		fetcher: fetcher,
		workers: workers,
		deps:    newDeps(popts),
	}
}

func (p *MetadataPipeline) work(ctx context.Context, id compound.ID) (interface{}, error) {
	molText, entryText, err := p.fetcher.FetchWithMetadata(ctx, id)
	if err != nil {
		return nil, failed(compound.StageFetch, err)
	}
	m, err := molecule.ParseMolBlock(string(molText))
	if err != nil {
		p.deps.logger.Warn("structure parse failed", logging.KeggID(id.String()), logging.Err(err))
		return nil, failed(compound.StageParse, err)
	}
	if err := compound.ValidateEntry(string(entryText)); err != nil {
		p.deps.logger.Warn("entry parse failed", logging.KeggID(id.String()), logging.Err(err))
		return nil, failed(compound.StageParse, err)
	}
	name, formula := compound.ParseEntry(string(entryText))
	return compound.Entry{
		ID:      id,
		Name:    name,
		Formula: formula,
		SMILES:  molecule.CanonicalSMILES(m),
	}, nil
}

// Run resolves every identifier.
func (p *MetadataPipeline) Run(ctx context.Context, ids []compound.ID) *MetadataReport {
	report := &MetadataReport{
		RunID:    newRunID(),
		Total:    len(ids),
		Entries:  []compound.Entry{},
		Failures: []compound.Failure{},
	}
	log := p.deps.logger.With(
		logging.String(logging.FieldPipeline, PipelineMetadata),
		logging.String(logging.FieldRunID, report.RunID))
	log.Info("metadata run started", logging.Int("total", len(ids)))

	timer := startRun(PipelineMetadata, p.deps.metrics)
	sched := &Scheduler{Workers: p.workers, Logger: log}
	outcomes := Collect(sched.Run(ctx, ids, timer.track(p.work)), len(ids), p.deps.progress)

	for _, o := range outcomes {
		if o.Err != nil {
			report.Failures = append(report.Failures, failureOf(o))
			prometheus.RecordMiningOutcome(p.deps.metrics, PipelineMetadata, outcomeFailed)
			continue
		}
		report.Entries = append(report.Entries, o.Value.(compound.Entry))
		prometheus.RecordMiningOutcome(p.deps.metrics, PipelineMetadata, outcomeResult)
	}

	compound.SortEntries(report.Entries)
	compound.SortFailures(report.Failures)
	report.Duration = timer.stop()

	log.Info("metadata run finished",
		logging.Int("entries", len(report.Entries)),
		logging.Int("failed", len(report.Failures)),
		logging.Duration("duration", report.Duration))
	return report
}

func sortIDs(ids []compound.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
