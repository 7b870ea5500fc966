package mining

import (
	"sync"
)

// Progress observes a run. done never decreases within a run.
type Progress interface {
	Advance(done, total int)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(done, total int)

func (f ProgressFunc) Advance(done, total int) { f(done, total) }

// NopProgress discards progress.
type NopProgress struct{}

func (NopProgress) Advance(int, int) {}

// MultiProgress forwards to every non-nil observer.
func MultiProgress(observers ...Progress) Progress {
	var list []Progress
	for _, p := range observers {
		if p != nil {
			list = append(list, p)
		}
	}
	return ProgressFunc(func(done, total int) {
		for _, p := range list {
			p.Advance(done, total)
		}
	})
}

// ProgressSnapshot is the state reported by Tracker.
type ProgressSnapshot struct {
	Pipeline string `json:"pipeline"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
	Running  bool   `json:"running"`
}

// Tracker remembers the latest progress of the current pipeline so other
// goroutines can read it.
type Tracker struct {
	mu   sync.RWMutex
	snap ProgressSnapshot
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker { return &Tracker{} }

// Start resets the tracker for a new pipeline run.
func (t *Tracker) Start(pipeline string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = ProgressSnapshot{Pipeline: pipeline, Total: total, Running: true}
}

func (t *Tracker) Advance(done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if done > t.snap.Done {
		t.snap.Done = done
	}
	t.snap.Total = total
}

// Finish marks the run complete.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Running = false
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() ProgressSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
