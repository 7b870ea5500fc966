package mining

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keggminer/internal/domain/compound"
	"github.com/turtacn/keggminer/internal/testutil"
	"github.com/turtacn/keggminer/pkg/errors"
)

func manyIDs(n int) []compound.ID {
	out := make([]compound.ID, n)
	for i := range out {
		out[i] = compound.ID(fmt.Sprintf("C%05d", i+1))
	}
	return out
}

func TestScheduler_EveryIDOnce(t *testing.T) {
	input := manyIDs(100)
	s := &Scheduler{Workers: 8}

	seen := map[compound.ID]int{}
	for o := range s.Run(context.Background(), input, func(_ context.Context, id compound.ID) (interface{}, error) {
		return id.String() + "!", nil
	}) {
		seen[o.ID]++
		assert.Equal(t, o.ID.String()+"!", o.Value)
		assert.NoError(t, o.Err)
	}

	require.Len(t, seen, len(input))
	for _, id := range input {
		assert.Equal(t, 1, seen[id], id)
	}
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	var current, peak int32
	s := &Scheduler{Workers: 3}
	outcomes := s.Run(context.Background(), manyIDs(20), func(context.Context, compound.ID) (interface{}, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil, nil
	})
	for range outcomes {
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestScheduler_Empty(t *testing.T) {
	s := &Scheduler{}
	var count int
	for range s.Run(context.Background(), nil, func(context.Context, compound.ID) (interface{}, error) {
		return nil, nil
	}) {
		count++
	}
	assert.Zero(t, count)
}

func TestScheduler_PanicBecomesFailure(t *testing.T) {
	log := testutil.NewMockLogger()
	s := &Scheduler{Workers: 2, Logger: log}

	var failed []Outcome
	for o := range s.Run(context.Background(), idList("C00001", "C00002", "C00003"), func(_ context.Context, id compound.ID) (interface{}, error) {
		if id == "C00002" {
			panic("boom")
		}
		return 1, nil
	}) {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}

	require.Len(t, failed, 1)
	assert.Equal(t, compound.ID("C00002"), failed[0].ID)
	assert.Nil(t, failed[0].Value)
	assert.True(t, errors.IsCode(failed[0].Err, errors.ErrCodeInternal))
	assert.Contains(t, failed[0].Err.Error(), "boom")

	msgs := log.Filter("error", "worker panic recovered")
	require.Len(t, msgs, 1)
	id, ok := msgs[0].Field("kegg_id")
	require.True(t, ok)
	assert.Equal(t, "C00002", id)
}

func TestScheduler_CanceledContextStillYieldsEveryOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &Scheduler{Workers: 4}
	outs := Collect(s.Run(ctx, manyIDs(10), func(ctx context.Context, _ compound.ID) (interface{}, error) {
		return nil, ctx.Err()
	}), 10, nil)

	require.Len(t, outs, 10)
	for _, o := range outs {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestCollect_ReportsMonotonicProgress(t *testing.T) {
	var mu sync.Mutex
	var calls [][2]int
	progress := ProgressFunc(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, [2]int{done, total})
	})

	s := &Scheduler{Workers: 4}
	outs := Collect(s.Run(context.Background(), manyIDs(5), func(context.Context, compound.ID) (interface{}, error) {
		return nil, nil
	}), 5, progress)

	require.Len(t, outs, 5)
	require.Len(t, calls, 6)
	for i, c := range calls {
		assert.Equal(t, [2]int{i, 5}, c)
	}
}
