// Package transport defines the two external collaborators the spec treats
// as out-of-scope contracts (spec section 6): the host transport used for
// identifier broadcast, barriers and the cross-node allreduce, and the
// device-collective transport used for all on-device collectives. It also
// defines the device-runtime primitives (streams, events, async memcpy)
// that devevent and devstream need a backend for, since the engine itself
// never talks to real GPU hardware directly - just like the teacher's Go
// layer never does (the actual math lives behind cgo in KungFu; here it
// lives behind this interface so the engine stays pure Go and testable).
//
// Interface shape is grounded on btracey-mpi's Mpi interface + Register
// seam (a package-level interface implementations plug into) and on the
// teacher's rchannel/client.go (blocking, thread-safe calls shared by many
// goroutines).
package transport

import (
	"github.com/lsds/gpureduce/tensor"
)

// Scope is the set of peers a host-transport operation addresses.
type Scope int

const (
	ScopeGlobal Scope = iota // every worker
	ScopeLocal                // this node's workers
	ScopeCross                // one worker per node, at a fixed local rank
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "GLOBAL"
	case ScopeLocal:
		return "LOCAL"
	case ScopeCross:
		return "CROSS"
	default:
		return "UNKNOWN"
	}
}

// Stream and Event are opaque device-runtime handles. The engine only ever
// stores and replays them; it never inspects their contents.
type Stream interface{}
type Event interface{}

// CommHandle is an opaque, process-scope collective communicator, built
// exactly once per device-tuple key by commcache.
type CommHandle interface{}

// HostTransport is the CPU channel used for communicator-id distribution
// and the hierarchical strategy's cross-node allreduce. The engine treats
// it as blocking and thread-safe among the peers in scope.
type HostTransport interface {
	Broadcast(buf []byte, scope Scope, root int) error
	Barrier(scope Scope) error
	Allreduce(send, recv []byte, count int, dtype tensor.DType, op tensor.Op, scope Scope) error
	TypeSize(dtype tensor.DType) int
}

// DeviceCollective is the on-device collective library (the engine's stand
// in for NCCL): unique-id generation, rank-scoped init, and the five
// collectives the hierarchical strategy composes.
type DeviceCollective interface {
	NewUniqueID() ([]byte, error)
	InitRank(id []byte, size, rank int) (CommHandle, error)

	Allreduce(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, comm CommHandle, stream Stream) error
	ReduceScatter(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, comm CommHandle, stream Stream) error
	Allgather(src, dst []byte, count int, dtype tensor.DType, comm CommHandle, stream Stream) error
	ReduceToOne(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, root int, comm CommHandle, stream Stream) error
	Broadcast(buf []byte, count int, dtype tensor.DType, root int, comm CommHandle, stream Stream) error
}

// DeviceRuntime is the underlying GPU runtime: device selection, stream and
// event lifecycle, and async device<->device/host memcpy. Streams are
// created with the highest available priority and non-blocking semantics
// (spec section 4.2); events are created with blocking-synchronize and
// timing disabled (spec section 4.1).
//
// Three memcpy directions are distinguished because the hierarchical
// strategy's cross-node phase (spec section 4.6 phase 3) is the only place
// a host buffer is involved: MemcpyD2D backs MemcpyIn/MemcpyOut, MemcpyD2H
// and MemcpyH2D back the host-transport hand-off. Per spec section 4.6 step
// 3c, MemcpyD2H is documented by the underlying runtime to be synchronous
// with respect to the host, which is what makes its trace span accurate.
type DeviceRuntime interface {
	SetDevice(device int) error
	StreamPriorityRange(device int) (least, greatest int, err error)
	CreateStream(device, priority int) (Stream, error)
	CreateEvent(device int) (Event, error)
	DestroyEvent(device int, event Event) error
	RecordEvent(event Event, stream Stream) error
	SyncEvent(event Event) error
	MemcpyD2D(dst, src []byte, stream Stream) error
	MemcpyD2H(dst, src []byte, stream Stream) error
	MemcpyH2D(dst, src []byte, stream Stream) error
}

// ParameterManager exposes the single read-only runtime toggle the
// hierarchical strategy consults (spec section 6).
type ParameterManager interface {
	HierarchicalAllreduce() bool
}
