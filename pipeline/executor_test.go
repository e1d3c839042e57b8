package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lsds/gpureduce/commcache"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/timeline"
	"github.com/lsds/gpureduce/transport/faketransport"
)

func newFinalizableJob(t *testing.T, p *Pipeline) *Job {
	e := &tensor.Entry{
		Name:   "grad",
		Input:  make([]byte, 16),
		Output: make([]byte, 16),
		Count:  4,
		Type:   tensor.Float32,
		Device: 0,
		Callback: func(tensor.Status) {},
	}
	batch, err := tensor.NewBatch([]*tensor.Entry{e})
	if err != nil {
		t.Fatal(err)
	}
	key := plan.NewDeviceKey([]int{0})
	scope := commcache.BuildScope{RankInGroup: 0, GroupSize: 1}
	job, err := p.Initialize(batch, 4, key, scope)
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestExecutorShutdownWaitsForSubmittedJobs(t *testing.T) {
	cluster := faketransport.NewCluster()
	v := faketransport.NewView(cluster, 0, 1, 0, 1, "node0")
	comms := commcache.New(v.Device(), v)
	exec := NewExecutor(2)
	p := New(v, comms, timeline.Noop, exec)

	var mu sync.Mutex
	delivered := 0
	const n = 10
	for i := 0; i < n; i++ {
		job := newFinalizableJob(t, p)
		job.Batch.Entries[0].Callback = func(tensor.Status) {
			mu.Lock()
			delivered++
			mu.Unlock()
		}
		if err := p.Finalize(job); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if delivered != n {
		t.Errorf("delivered = %d, want %d (every job's callback fired before Shutdown returned)", delivered, n)
	}
}

func TestExecutorBoundsConcurrency(t *testing.T) {
	const workers = 2
	cluster := faketransport.NewCluster()
	v := faketransport.NewView(cluster, 0, 1, 0, 1, "node0")
	comms := commcache.New(v.Device(), v)
	exec := NewExecutor(workers)
	p := New(v, comms, timeline.Noop, exec)

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	const n = 8
	for i := 0; i < n; i++ {
		job := newFinalizableJob(t, p)
		job.Batch.Entries[0].Callback = func(tensor.Status) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
		}
		if err := p.Finalize(job); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if maxInFlight > workers {
		t.Errorf("observed %d jobs finalizing concurrently, want at most %d", maxInFlight, workers)
	}
}

func TestExecutorShutdownTimesOutWhenJobNeverFinalizes(t *testing.T) {
	e := NewExecutor(1)
	block := make(chan struct{})
	e.g.Go(func() error {
		<-block
		return nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := e.Shutdown(ctx); err == nil {
		t.Error("Shutdown should have timed out while a job is still blocked")
	}
}
