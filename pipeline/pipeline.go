package pipeline

import (
	"github.com/lsds/gpureduce/commcache"
	"github.com/lsds/gpureduce/devevent"
	"github.com/lsds/gpureduce/devstream"
	"github.com/lsds/gpureduce/internal/config"
	"github.com/lsds/gpureduce/internal/log"
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/timeline"
	"github.com/lsds/gpureduce/transport"
)

// Pipeline is the process-scope capability object strategies borrow but
// never own (spec section 9's "cyclic ownership" design note): it holds
// the stream registry, event pool and communicator cache, and knows how to
// walk a Job through Initialize/Finalize. DoAllreduce itself is
// strategy-owned and lives in package reduce.
type Pipeline struct {
	Runtime  transport.DeviceRuntime
	Events   *devevent.Pool
	Streams  *devstream.Registry
	Comms    *commcache.Cache
	Sink     timeline.Sink
	Executor *Executor
}

// New builds a Pipeline over the given device runtime and communicator
// cache, using sink for tracing and exec as the finalizer worker pool. A
// nil sink falls back to internal/log's debug-logging sink when
// config.EnableTracing is set, else to timeline.Noop - the same
// env-seeded-default pattern engine.New uses for a nil parameter manager.
func New(runtime transport.DeviceRuntime, comms *commcache.Cache, sink timeline.Sink, exec *Executor) *Pipeline {
	if sink == nil {
		sink = timeline.Noop
		if config.EnableTracing {
			sink = log.DefaultTimelineSink
		}
	}
	return &Pipeline{
		Runtime:  runtime,
		Events:   devevent.NewPool(runtime),
		Streams:  devstream.NewRegistry(runtime),
		Comms:    comms,
		Sink:     sink,
		Executor: exec,
	}
}

// Initialize is step 1 of spec section 4.4: set the device, resolve the
// stream, resolve-or-build the communicator, allocate a fresh fusion
// buffer of count elements, and record the "queue" event if tracing.
// count is supplied by the caller (the reduce strategy) because only the
// strategy knows whether hierarchical padding (spec section 4.6) applies.
func (p *Pipeline) Initialize(batch *tensor.Batch, count int, key plan.DeviceKey, scope commcache.BuildScope) (*Job, error) {
	device := batch.Device()
	if err := p.Runtime.SetDevice(device); err != nil {
		return nil, xerrors.NewCollectiveRuntimeError("SetDevice", err)
	}
	stream, err := p.Streams.GetOrCreate(device)
	if err != nil {
		return nil, xerrors.NewCollectiveRuntimeError("CreateStream", err)
	}
	comm, err := p.Comms.GetOrBuild(key, scope)
	if err != nil {
		return nil, err
	}
	job := &Job{
		pipe:   p,
		sink:   p.Sink,
		Batch:  batch,
		Device: device,
		Count:  count,
		Stream: stream,
		Comm:   comm,
		Fusion: make([]byte, count*batch.Type().Size()),
		State:  Created,
	}
	if err := job.RecordEventEnd("queue"); err != nil {
		return nil, err
	}
	job.State = Initialized
	return job, nil
}

// Finalize is step 5 of spec section 4.4: enqueue the terminal sentinel
// and hand the job to the executor. It returns as soon as the handoff has
// been made - completion and callback delivery happen on an executor
// worker, never on the submission thread (spec section 4.4's rationale:
// a blocking synchronize here would serialize the next batch's planning
// behind this batch's completion).
func (p *Pipeline) Finalize(job *Job) error {
	if err := job.recordSentinel(); err != nil {
		return err
	}
	job.State = Enqueued
	job.State = Finalizing
	log.With("device", job.Device, "state", job.State).
		Debugf("finalizing job with %d queued events", job.Queue.Len())
	p.Executor.Submit(job)
	return nil
}
