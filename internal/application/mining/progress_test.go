package mining

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, ProgressSnapshot{}, tr.Snapshot())

	tr.Start(PipelineSimilarity, 4)
	assert.Equal(t, ProgressSnapshot{Pipeline: PipelineSimilarity, Total: 4, Running: true}, tr.Snapshot())

	tr.Advance(2, 4)
	tr.Advance(1, 4)
	assert.Equal(t, 2, tr.Snapshot().Done, "done must not go backwards")

	tr.Advance(4, 4)
	tr.Finish()
	assert.Equal(t, ProgressSnapshot{Pipeline: PipelineSimilarity, Done: 4, Total: 4}, tr.Snapshot())

	tr.Start(PipelineMetadata, 2)
	assert.Equal(t, 0, tr.Snapshot().Done)
	assert.Equal(t, PipelineMetadata, tr.Snapshot().Pipeline)
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	tr.Start(PipelineSimilarity, 1000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= 1000; i++ {
			tr.Advance(i, 1000)
		}
	}()
	go func() {
		defer wg.Done()
		last := 0
		for i := 0; i < 1000; i++ {
			d := tr.Snapshot().Done
			assert.GreaterOrEqual(t, d, last)
			last = d
		}
	}()
	wg.Wait()
	assert.Equal(t, 1000, tr.Snapshot().Done)
}

func TestMultiProgress(t *testing.T) {
	tr := NewTracker()
	tr.Start(PipelineMetadata, 3)
	var got []int
	p := MultiProgress(nil, tr, ProgressFunc(func(done, _ int) { got = append(got, done) }))

	p.Advance(1, 3)
	p.Advance(3, 3)

	assert.Equal(t, []int{1, 3}, got)
	assert.Equal(t, 3, tr.Snapshot().Done)
}
