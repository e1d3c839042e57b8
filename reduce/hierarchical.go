package reduce

import (
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/pipeline"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// doHierarchical implements spec section 4.6's five phases: intra-node
// scatter-reduce, intra-node reduce-of-tail, cross-node host allreduce,
// intra-node scatter-gather, intra-node broadcast-of-tail. gs is this
// worker's place in the global/local rank spaces (spec section 3).
func doHierarchical(job *pipeline.Job, dc transport.DeviceCollective, host transport.HostTransport, gs plan.GlobalState) error {
	dtype := job.Batch.Type()
	width := dtype.Size()
	eper, erem, root := Split(job.Count, gs.LocalSize, gs.IsHomogeneous)
	isRoot := gs.LocalRank == root

	var shard, tail []byte

	// Phase 1: intra-node scatter-reduce.
	if eper > 0 {
		shard = make([]byte, eper*width)
		src := job.Fusion[:eper*gs.LocalSize*width]
		if err := dc.ReduceScatter(src, shard, eper, dtype, tensor.SUM, job.Comm, job.Stream); err != nil {
			return xerrors.NewCollectiveRuntimeError("ncclReduceScatter", err)
		}
		if err := job.RecordEventEnd("NCCL_REDUCE_SCATTER"); err != nil {
			return err
		}
	}

	// Phase 2: intra-node reduce of the tail to root.
	tailOff := eper * gs.LocalSize * width
	if erem > 0 {
		tailSrc := job.Fusion[tailOff : tailOff+erem*width]
		if isRoot {
			tail = make([]byte, erem*width)
		}
		if err := dc.ReduceToOne(tailSrc, tail, erem, dtype, tensor.SUM, root, job.Comm, job.Stream); err != nil {
			return xerrors.NewCollectiveRuntimeError("ncclReduce", err)
		}
		if err := job.RecordEventEnd("NCCL_REDUCE_TAIL"); err != nil {
			return err
		}
	}

	// Phase 3: cross-node host allreduce, only for ranks with a local
	// responsibility (spec section 4.6 phase 3).
	localResponsibility := eper
	if isRoot {
		localResponsibility += erem
	}
	if localResponsibility > 0 {
		if err := crossNodeAllreduce(job, host, gs, shard, tail, eper, erem, isRoot, dtype); err != nil {
			return err
		}
	}

	// Phase 4: intra-node scatter-gather, reconstructing the full buffer.
	if eper > 0 {
		dst := job.Fusion[:eper*gs.LocalSize*width]
		if err := dc.Allgather(shard, dst, eper, dtype, job.Comm, job.Stream); err != nil {
			return xerrors.NewCollectiveRuntimeError("ncclAllGather", err)
		}
		if err := job.RecordEventEnd("NCCL_ALLGATHER"); err != nil {
			return err
		}
	}

	// Phase 5: intra-node broadcast of the globally-reduced tail from root.
	if erem > 0 {
		tailBuf := job.Fusion[tailOff : tailOff+erem*width]
		if isRoot {
			copy(tailBuf, tail)
		}
		if err := dc.Broadcast(tailBuf, erem, dtype, root, job.Comm, job.Stream); err != nil {
			return xerrors.NewCollectiveRuntimeError("ncclBroadcast", err)
		}
		if err := job.RecordEventEnd("NCCL_BCAST_TAIL"); err != nil {
			return err
		}
	}

	return nil
}

// crossNodeAllreduce is spec section 4.6 phase 3: the only mid-job host
// synchronization (step b), a device-to-host copy of this rank's local
// responsibility (step c), the cross-node host-transport allreduce itself
// (step d), and the host-to-device copy back (step e).
func crossNodeAllreduce(job *pipeline.Job, host transport.HostTransport, gs plan.GlobalState, shard, tail []byte, eper, erem int, isRoot bool, dtype tensor.DType) error {
	width := dtype.Size()
	localCount := eper
	if isRoot {
		localCount += erem
	}
	job.Host = make([]byte, localCount*width)

	// Step b: synchronize the job's progress to host - phases 1-2 must be
	// visible before the device-to-host copy below can trust the buffer.
	if err := job.WaitForEvents(); err != nil {
		return err
	}

	local := make([]byte, 0, localCount*width)
	local = append(local, shard...)
	if isRoot {
		local = append(local, tail...)
	}

	// Step c: device-to-host copy. Per spec this is synchronous with
	// respect to the host under the runtime's documented rules, so it is
	// traced directly rather than through the event queue.
	span := job.Sink().Begin(job.Batch.Entries[0].Name, "MEMCPY_D2H")
	err := job.Pipe().Runtime.MemcpyD2H(job.Host, local, job.Stream)
	span.End()
	if err != nil {
		return xerrors.NewCollectiveRuntimeError("cudaMemcpyAsync(D2H)", err)
	}

	// Step d: cross-node allreduce over the peers sharing this local rank.
	if err := host.Allreduce(job.Host, job.Host, localCount, dtype, tensor.SUM, transport.ScopeCross); err != nil {
		return xerrors.NewTransportError("Allreduce(cross-node)", err)
	}

	// Step e: host-to-device copy back.
	span = job.Sink().Begin(job.Batch.Entries[0].Name, "MEMCPY_H2D")
	err = job.Pipe().Runtime.MemcpyH2D(local, job.Host, job.Stream)
	span.End()
	if err != nil {
		return xerrors.NewCollectiveRuntimeError("cudaMemcpyAsync(H2D)", err)
	}
	copy(shard, local[:eper*width])
	if isRoot {
		copy(tail, local[eper*width:])
	}
	return nil
}
