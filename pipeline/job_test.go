package pipeline

import (
	"testing"

	"github.com/lsds/gpureduce/commcache"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/timeline"
	"github.com/lsds/gpureduce/transport/faketransport"
)

type recordingSpan struct{ ended *int }

func (s recordingSpan) End() { *s.ended++ }

type recordingSink struct {
	begins int
	ends   int
	names  []string
}

func (s *recordingSink) Begin(row, name string) timeline.Span {
	s.begins++
	s.names = append(s.names, name)
	return recordingSpan{ended: &s.ends}
}

func newTestJob(t *testing.T, sink timeline.Sink) (*Job, *Pipeline) {
	cluster := faketransport.NewCluster()
	v := faketransport.NewView(cluster, 0, 1, 0, 1, "node0")
	comms := commcache.New(v.Device(), v)
	p := New(v, comms, sink, NewExecutor(1))

	e := &tensor.Entry{
		Name:   "grad",
		Input:  make([]byte, 16),
		Output: make([]byte, 16),
		Count:  4,
		Type:   tensor.Float32,
		Device: 0,
	}
	batch, err := tensor.NewBatch([]*tensor.Entry{e})
	if err != nil {
		t.Fatal(err)
	}
	key := plan.NewDeviceKey([]int{0})
	scope := commcache.BuildScope{RankInGroup: 0, GroupSize: 1, Scope: 0}
	job, err := p.Initialize(batch, 4, key, scope)
	if err != nil {
		t.Fatal(err)
	}
	return job, p
}

func TestInitializeStartsInInitializedState(t *testing.T) {
	job, _ := newTestJob(t, timeline.Noop)
	if job.State != Initialized {
		t.Errorf("State = %s, want Initialized", job.State)
	}
}

func TestRecordEventEndIsNoopWhenUntraced(t *testing.T) {
	job, _ := newTestJob(t, timeline.Noop)
	before := job.Queue.Len()
	if err := job.RecordEventEnd("allreduce"); err != nil {
		t.Fatal(err)
	}
	if job.Queue.Len() != before {
		t.Errorf("Queue grew from %d to %d with an untraced sink", before, job.Queue.Len())
	}
}

func TestRecordEventEndAppendsWhenTraced(t *testing.T) {
	sink := &recordingSink{}
	job, _ := newTestJob(t, sink)
	before := job.Queue.Len()
	if err := job.RecordEventEnd("allreduce"); err != nil {
		t.Fatal(err)
	}
	if job.Queue.Len() != before+1 {
		t.Errorf("Queue len = %d, want %d", job.Queue.Len(), before+1)
	}
}

func TestWaitForEventsDrainsInFIFOOrder(t *testing.T) {
	sink := &recordingSink{}
	job, p := newTestJob(t, sink)
	for _, stage := range []string{"a", "b", "c"} {
		if err := job.RecordEventEnd(stage); err != nil {
			t.Fatal(err)
		}
	}
	idleBefore := p.Events.Len(job.Device)
	if err := job.WaitForEvents(); err != nil {
		t.Fatal(err)
	}
	if job.Queue.Len() != 0 {
		t.Errorf("Queue len after WaitForEvents = %d, want 0", job.Queue.Len())
	}
	// With a tracing sink, Initialize already queued a "queue" event ahead
	// of a, b and c, so four events are drained.
	if got := p.Events.Len(job.Device); got != idleBefore+4 {
		t.Errorf("idle pool len = %d, want %d (all 4 events released)", got, idleBefore+4)
	}
	if sink.begins != 4 || sink.ends != 4 {
		t.Errorf("sink saw %d begins / %d ends, want 4/4", sink.begins, sink.ends)
	}
	want := []string{"queue", "a", "b", "c"}
	if len(sink.names) != len(want) {
		t.Fatalf("sink span names = %v, want %v", sink.names, want)
	}
	for i := range want {
		if sink.names[i] != want[i] {
			t.Errorf("span %d = %q, want %q (FIFO order)", i, sink.names[i], want[i])
		}
	}
}

func TestMemcpyInCopiesEveryEntryIntoFusionBuffer(t *testing.T) {
	job, _ := newTestJob(t, timeline.Noop)
	for i := range job.Batch.Entries[0].Input {
		job.Batch.Entries[0].Input[i] = byte(i + 1)
	}
	if err := job.MemcpyIn(); err != nil {
		t.Fatal(err)
	}
	for i, b := range job.Batch.Entries[0].Input {
		if job.Fusion[i] != b {
			t.Fatalf("Fusion[%d] = %d, want %d", i, job.Fusion[i], b)
		}
	}
}

func TestMemcpyOutCopiesOnlyEachEntrysOwnWidth(t *testing.T) {
	job, _ := newTestJob(t, timeline.Noop)
	for i := range job.Fusion {
		job.Fusion[i] = byte(i + 1)
	}
	if err := job.MemcpyOut(); err != nil {
		t.Fatal(err)
	}
	out := job.Batch.Entries[0].Output
	for i := range out {
		if out[i] != job.Fusion[i] {
			t.Fatalf("Output[%d] = %d, want %d", i, out[i], job.Fusion[i])
		}
	}
}
