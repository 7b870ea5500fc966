package mining

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/keggminer/pkg/errors"
)

// WorkFunc resolves one identifier. It must not touch other identifiers'
// state.
type WorkFunc func(ctx context.Context, id compound.ID) (interface{}, error)

// Outcome is the result of one WorkFunc call. ID always names the identifier
// the work ran for.
type Outcome struct {
	ID    compound.ID
	Value interface{}
	Err   error
}

// Scheduler fans identifiers out to a fixed pool of goroutines.
type Scheduler struct {
	// Workers is the pool size; zero or less means runtime.NumCPU().
	Workers int
	Logger  logging.Logger
}

func (s *Scheduler) workers(n int) int {
	w := s.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Run starts the pool and returns a channel of outcomes in completion order.
// Every identifier in ids produces exactly one outcome, cancelled or not; the
// channel is closed after the last one.
func (s *Scheduler) Run(ctx context.Context, ids []compound.ID, work WorkFunc) <-chan Outcome {
	log := s.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	workers := s.workers(len(ids))
	tasks := make(chan compound.ID)
	out := make(chan Outcome, workers)

	go func() {
		defer close(tasks)
		for _, id := range ids {
			tasks <- id
		}
	}()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for id := range tasks {
				out <- runOne(ctx, id, work, log)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func runOne(ctx context.Context, id compound.ID, work WorkFunc, log logging.Logger) (o Outcome) {
	o.ID = id
	defer func() {
		if r := recover(); r != nil {
			log.Error("worker panic recovered",
				logging.KeggID(id.String()),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			o.Value = nil
			o.Err = errors.Newf(errors.ErrCodeInternal, "panic while processing %s: %v", id, r)
		}
	}()
	o.Value, o.Err = work(ctx, id)
	return o
}

// Collect drains outcomes, reporting progress after each one.
func Collect(outcomes <-chan Outcome, total int, progress Progress) []Outcome {
	if progress == nil {
		progress = NopProgress{}
	}
	collected := make([]Outcome, 0, total)
	progress.Advance(0, total)
	for o := range outcomes {
		collected = append(collected, o)
		progress.Advance(len(collected), total)
	}
	return collected
}
