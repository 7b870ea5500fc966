package mining

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/domain/molecule"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/keggminer/pkg/errors"
)

const (
	PipelineSimilarity = "similarity"
	PipelineMetadata   = "metadata"

	outcomeResult  = "result"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

// Options are the per-run task parameters.
type Options struct {
	// Reference is the SMILES every compound is compared against.
	Reference string
	// Threshold is the inclusive minimum similarity for a result.
	Threshold float64
	Radius    int
	NBits     int
	// Workers is the pool size; zero or less means one per CPU.
	Workers int
}

// DefaultOptions compares against aspirin at threshold 0.8 with the default
// fingerprint shape.
func DefaultOptions() Options {
	return Options{
		Reference: "CC(=O)OC1=CC=CC=C1C(=O)O",
		Threshold: 0.8,
		Radius:    molecule.DefaultRadius,
		NBits:     molecule.DefaultNBits,
	}
}

// Validate checks the numeric options.
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1 {
		return errors.New(errors.ErrCodeSimilarityThresholdInvalid, "threshold must be within [0, 1]").
			WithDetailf("got %v", o.Threshold)
	}
	if o.Radius < 0 {
		return errors.New(errors.ErrCodeValidation, "radius must not be negative").WithDetailf("got %d", o.Radius)
	}
	if o.NBits < 1 {
		return errors.New(errors.ErrCodeValidation, "nbits must be positive").WithDetailf("got %d", o.NBits)
	}
	return nil
}

// CanonicalReference validates Reference and returns its canonical form.
func (o Options) CanonicalReference() (string, error) {
	ref, err := molecule.Canonicalize(o.Reference)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeMoleculeInvalidSMILES, "reference SMILES is not parseable").
			WithDetail(o.Reference)
	}
	return ref, nil
}

// pipelineDeps holds what both pipelines share.
type pipelineDeps struct {
	logger   logging.Logger
	metrics  *prometheus.MinerMetrics
	progress Progress
}

// PipelineOption configures a pipeline at construction.
type PipelineOption func(*pipelineDeps)

// WithLogger sets the run logger. A nil logger is ignored.
func WithLogger(log logging.Logger) PipelineOption {
	return func(d *pipelineDeps) {
		if log != nil {
			d.logger = log
		}
	}
}

// WithMetrics sets the metrics sink. A nil value is ignored.
func WithMetrics(m *prometheus.MinerMetrics) PipelineOption {
	return func(d *pipelineDeps) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithProgress sets the observer told after each finished item.
func WithProgress(p Progress) PipelineOption {
	return func(d *pipelineDeps) {
		if p != nil {
			d.progress = p
		}
	}
}

func newDeps(opts []PipelineOption) pipelineDeps {
	d := pipelineDeps{
		logger:   logging.NewNopLogger(),
		metrics:  prometheus.NewNoopMinerMetrics(),
		progress: NopProgress{},
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// stageError tags a work error with the step that produced it.
type stageError struct {
	stage compound.Stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failed(stage compound.Stage, err error) error {
	return &stageError{stage: stage, err: err}
}

// failureOf converts a failed outcome. Errors without a stage come from
// recovered panics, which only structure handling can raise.
func failureOf(o Outcome) compound.Failure {
	stage := compound.StageParse
	var se *stageError
	if errors.As(o.Err, &se) {
		stage = se.stage
	}
	return compound.Failure{ID: o.ID, Stage: stage, Reason: o.Err.Error()}
}

func newRunID() string { return uuid.New().String() }

// runTimer records the pipeline duration and in-flight gauge.
type runTimer struct {
	pipeline string
	metrics  *prometheus.MinerMetrics
	timer    *prometheus.Timer
}

func startRun(pipeline string, m *prometheus.MinerMetrics) *runTimer {
	return &runTimer{
		pipeline: pipeline,
		metrics:  m,
		timer:    prometheus.NewTimer(m.MiningRunDuration.WithLabelValues(pipeline)),
	}
}

func (t *runTimer) track(fn WorkFunc) WorkFunc {
	return func(ctx context.Context, id compound.ID) (interface{}, error) {
		g := t.metrics.MiningInFlight.WithLabelValues(t.pipeline)
		g.Inc()
		defer g.Dec()
		return fn(ctx, id)
	}
}

func (t *runTimer) stop() time.Duration { return t.timer.ObserveDuration() }
