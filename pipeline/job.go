// Package pipeline implements the async GPU operation pipeline of spec
// section 4.4: AsyncReduceJob's Initialize/MemcpyIn/DoAllreduce/MemcpyOut/
// Finalize lifecycle, its event queue, and the executor that drains a
// finished job's events off the submission thread.
//
// Grounded on the teacher's srcs/go/ordergroup (explicit start/wait
// bookkeeping around a per-rank completion channel) generalized from
// "one ordered slot per peer rank" to "one ordered slot per pipeline
// stage", and on kungfu/session/session.go's fan-out-then-collect shape
// for the capability object (Pipeline) that strategies borrow but never
// own - spec section 9's "cyclic ownership" design note.
package pipeline

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/timeline"
	"github.com/lsds/gpureduce/transport"
)

// memcpyFanout bounds how many goroutines copyEntries fans an entry range
// across. Entries touch disjoint byte ranges of the fusion buffer, so
// issuing their copies concurrently is safe; the bound exists because a
// batch can carry far more entries than there is any benefit to having
// host threads contending to enqueue on the same device stream.
const memcpyFanout = 4

// Job is one in-flight reduction. It is created by Pipeline.Initialize, walked
// through Initialize/MemcpyIn/DoAllreduce(strategy-owned)/MemcpyOut/
// Finalize by the submission thread, then handed to the executor.
type Job struct {
	pipe  *Pipeline
	sink  timeline.Sink
	Batch *tensor.Batch

	Device int
	Count  int // effective element count, possibly padded (spec section 4.6)
	Stream transport.Stream
	Comm   transport.CommHandle

	Fusion []byte // fusion buffer, sized Count*dtype.Size()
	Host   []byte // allocated only by the hierarchical cross-node phase

	Queue EventQueue
	State State
}

// Pipe returns the capability object this job was created from, so
// strategy code in package reduce can reach the device runtime without
// the Job itself owning it (spec section 9's "strategies take the
// capability by reference, never own it").
func (j *Job) Pipe() *Pipeline { return j.pipe }

// Sink returns the timeline sink this job traces to.
func (j *Job) Sink() timeline.Sink { return j.sink }

// RecordEventEnd appends a stage-named event to the queue only when
// tracing is initialized (spec section 4.4): "the critical path pays no
// event cost in the untraced case."
func (j *Job) RecordEventEnd(stage string) error {
	if !timeline.Enabled(j.sink) {
		return nil
	}
	ev, err := j.pipe.Events.Acquire(j.Device)
	if err != nil {
		return xerrors.NewCollectiveRuntimeError("CreateEvent", err)
	}
	if err := j.pipe.Runtime.RecordEvent(ev, j.Stream); err != nil {
		return xerrors.NewCollectiveRuntimeError("RecordEvent", err)
	}
	j.Queue.Append(stage, ev)
	return nil
}

// recordSentinel appends the terminal, unnamed event that dominates all
// prior stream work (spec section 3): its completion implies the entry
// output buffers are ready. Unlike RecordEventEnd this always records,
// tracing or not - the finalizer needs it to know the job is done.
func (j *Job) recordSentinel() error {
	ev, err := j.pipe.Events.Acquire(j.Device)
	if err != nil {
		return xerrors.NewCollectiveRuntimeError("CreateEvent", err)
	}
	if err := j.pipe.Runtime.RecordEvent(ev, j.Stream); err != nil {
		return xerrors.NewCollectiveRuntimeError("RecordEvent", err)
	}
	j.Queue.Append("", ev)
	return nil
}

// WaitForEvents drains every event currently queued, synchronously on the
// calling (submission) thread, and releases them back to the pool. It is
// the hierarchical strategy's only mid-job host synchronization (spec
// section 4.6 phase 3b / spec section 5): the host-side cross-node
// transport is not stream-aware, so phases 1-2 must be visible on the host
// before the device-to-host copy in phase 3c can trust the buffer's
// contents.
func (j *Job) WaitForEvents() error {
	for {
		stage, ev, ok := j.Queue.PopFront()
		if !ok {
			return nil
		}
		span := j.sink.Begin(j.Batch.Entries[0].Name, stage)
		err := j.pipe.Runtime.SyncEvent(ev)
		span.End()
		if err != nil {
			return xerrors.NewCollectiveRuntimeError("SyncEvent", err)
		}
		j.pipe.Events.Release(j.Device, ev)
	}
}

// MemcpyIn enqueues an async device-to-device copy from every entry's
// input buffer into its offset within the fusion buffer (spec section 4.4
// step 2).
func (j *Job) MemcpyIn() error {
	return j.copyEntries(func(i int, off, width int) error {
		e := j.Batch.Entries[i]
		return j.pipe.Runtime.MemcpyD2D(j.Fusion[off:off+width], e.Input, j.Stream)
	})
}

// MemcpyOut enqueues an async device-to-device copy from the fusion buffer
// back to every entry's output buffer (spec section 4.4 step 4). Only the
// entry's own size is copied, which is what makes hierarchical padding
// (spec section 4.6) harmless - trailing padded elements are never read.
func (j *Job) MemcpyOut() error {
	return j.copyEntries(func(i int, off, width int) error {
		e := j.Batch.Entries[i]
		return j.pipe.Runtime.MemcpyD2D(e.Output, j.Fusion[off:off+width], j.Stream)
	})
}

// copyEntries fans the per-entry memcpy calls for this job's batch across
// at most memcpyFanout goroutines, partitioning the entry index range with
// plan.EvenPartition so each worker owns a contiguous, disjoint run of
// entries - no two workers ever touch the same fusion-buffer offset.
func (j *Job) copyEntries(do func(i int, off, width int) error) error {
	dtype := j.Batch.Type()
	n := len(j.Batch.Entries)
	workers := memcpyFanout
	if workers > n {
		workers = n
	}
	var g errgroup.Group
	for _, part := range plan.EvenPartition(plan.Interval{Begin: 0, End: n}, workers) {
		part := part
		g.Go(func() error {
			for i := part.Begin; i < part.End; i++ {
				e := j.Batch.Entries[i]
				off := j.Batch.Offset(i) * dtype.Size()
				width := e.Count * dtype.Size()
				if err := do(i, off, width); err != nil {
					return xerrors.NewCollectiveRuntimeError("MemcpyAsync", err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (j *Job) String() string {
	return fmt.Sprintf("Job{device=%d count=%d state=%s}", j.Device, j.Count, j.State)
}
