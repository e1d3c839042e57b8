package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lsds/gpureduce/tensor"
)

// TestDeterminismRepeatedHierarchicalAllreduce reproduces spec section 8's
// determinism property: running the same hierarchical reduction many times
// must produce the same result every time, since Op SUM over a fixed set
// of fixed inputs has no floating-point reordering freedom across runs (a
// single-entry, single-precision batch, no concurrent mutation of the
// inputs).
func TestDeterminismRepeatedHierarchicalAllreduce(t *testing.T) {
	const n = 1024
	const rounds = 25
	for round := 0; round < rounds; round++ {
		cl := newCluster4(t, true)
		var wg sync.WaitGroup
		outputs := make([][]byte, len(cl.engines))
		for rank, e := range cl.engines {
			value := float32(rank + 1)
			entry := makeFloatEntry("g", n, rank%2, func(int) float32 { return value })
			outputs[rank] = entry.Output
			wg.Add(1)
			go func(e *Engine, entry *tensor.Entry) {
				defer wg.Done()
				require.NoError(t, e.Execute([]*tensor.Entry{entry}, cl.response()))
			}(e, entry)
		}
		wg.Wait()
		cl.shutdown(t)
		for rank, out := range outputs {
			for i := 0; i < n; i++ {
				require.Equalf(t, float32(10), readFloat32(out[i*4:]), "round %d rank %d elem %d", round, rank, i)
			}
		}
	}
}

// TestEventPoolConservationAcrossManyJobs reproduces the event-pool
// conservation property of spec section 8 across many jobs: after every job
// has drained and finalized, each worker's device-0 pool holds the events
// its jobs released. The check is a lower bound (at least one idle event);
// the pool does not report how many events it created, so the idle count
// is not compared with that number here (devevent's own tests do that).
// Each worker submits its jobs one after another, since an Engine handles
// one batch at a time.
func TestEventPoolConservationAcrossManyJobs(t *testing.T) {
	cl := newCluster4(t, false)
	const jobsPerWorker = 12
	var wg sync.WaitGroup
	for _, e := range cl.engines {
		wg.Add(1)
		go func(e *Engine) {
			defer wg.Done()
			for i := 0; i < jobsPerWorker; i++ {
				entry := makeFloatEntry("g", 16, 0, func(int) float32 { return 1 })
				require.NoError(t, e.Execute([]*tensor.Entry{entry}, cl.response()))
			}
		}(e)
	}
	wg.Wait()
	cl.shutdown(t)

	for _, e := range cl.engines {
		pooled := e.Pipeline.Events.Len(0)
		require.GreaterOrEqualf(t, pooled, 1, "device 0's event pool should hold at least the events the finalized jobs released")
	}
}
