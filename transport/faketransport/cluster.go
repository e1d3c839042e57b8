// Package faketransport provides a deterministic, goroutine-safe in-memory
// implementation of transport.HostTransport, transport.DeviceCollective and
// transport.DeviceRuntime, for the property tests of spec section 8 and for
// examples. Every rank in a simulated run is a goroutine sharing one
// Cluster; Cluster fans operations in and out the way a real MPI/NCCL stack
// would, but entirely with sync primitives (mutexes and condition variables).
//
// Grounded on btracey-mpi__mpi.go's Register/interface-seam pattern (a
// package-level interface with a pluggable concrete implementation) and on
// unixpickle-dist-sys's allreduce/tester.go, which runs one goroutine per
// simulated node and checks the reduced result against a reference sum -
// the same harness shape this package's tests reuse.
package faketransport

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// Cluster is the shared rendezvous point for every simulated rank. It is
// safe for concurrent use by one goroutine per rank.
type Cluster struct {
	mu           sync.Mutex
	groups       map[groupKey]*group
	deviceGroups map[string]*group // keyed by the comm's unique-id bytes
	rt           *devRuntime

	uniqueIDCount int // NewUniqueID calls, reported by UniqueIDCalls
}

type groupKey struct {
	scope transport.Scope
	// id distinguishes concurrent distinct groups sharing a Scope, e.g.
	// the per-node LOCAL groups or the per-local-rank CROSS groups. The
	// empty string is the single GLOBAL group.
	id string
}

func NewCluster() *Cluster {
	return &Cluster{
		groups:       make(map[groupKey]*group),
		deviceGroups: make(map[string]*group),
		rt:           newDevRuntime(),
	}
}

// UniqueIDCalls reports how many times NewUniqueID has been invoked across
// every View sharing this Cluster.
func (c *Cluster) UniqueIDCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uniqueIDCount
}

func (c *Cluster) group(key groupKey, size int) *group {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[key]
	if !ok {
		g = newGroup(size)
		c.groups[key] = g
	}
	return g
}

// View is one rank's handle onto a Cluster. It implements HostTransport and
// DeviceRuntime for that rank; the DeviceView returned by Device implements
// DeviceCollective.
type View struct {
	cluster *Cluster

	rank, size           int
	localRank, localSize int
	// nodeID identifies the LOCAL-scope group; the CROSS-scope group (one
	// per local rank) is derived from localRank.
	nodeID string
}

// NewView builds the View for one rank. nodeID groups ranks that share a
// node for LOCAL-scope operations (e.g. "node0", "node1"); ranks with equal
// localRank across different nodes share a CROSS-scope group.
func NewView(cluster *Cluster, rank, size, localRank, localSize int, nodeID string) *View {
	return &View{
		cluster:   cluster,
		rank:      rank,
		size:      size,
		localRank: localRank,
		localSize: localSize,
		nodeID:    nodeID,
	}
}

func (v *View) globalKey() groupKey { return groupKey{scope: transport.ScopeGlobal} }
func (v *View) localKey() groupKey  { return groupKey{scope: transport.ScopeLocal, id: v.nodeID} }
func (v *View) crossKey() groupKey {
	return groupKey{scope: transport.ScopeCross, id: fmt.Sprintf("local%d", v.localRank)}
}

func (v *View) keyAndSize(scope transport.Scope) (groupKey, int) {
	switch scope {
	case transport.ScopeGlobal:
		return v.globalKey(), v.size
	case transport.ScopeLocal:
		return v.localKey(), v.localSize
	case transport.ScopeCross:
		return v.crossKey(), v.size / v.localSize
	default:
		panic("faketransport: unknown scope")
	}
}

func (v *View) rankInScope(scope transport.Scope) int {
	switch scope {
	case transport.ScopeGlobal:
		return v.rank
	case transport.ScopeLocal:
		return v.localRank
	case transport.ScopeCross:
		return v.rank / v.localSize
	default:
		panic("faketransport: unknown scope")
	}
}

// --- transport.HostTransport ---

func (v *View) Broadcast(buf []byte, scope transport.Scope, root int) error {
	key, size := v.keyAndSize(scope)
	g := v.cluster.group(key, size)
	return g.broadcast(buf, root, v.rankInScope(scope))
}

func (v *View) Barrier(scope transport.Scope) error {
	key, size := v.keyAndSize(scope)
	g := v.cluster.group(key, size)
	g.barrier()
	return nil
}

func (v *View) Allreduce(send, recv []byte, count int, dtype tensor.DType, op tensor.Op, scope transport.Scope) error {
	key, size := v.keyAndSize(scope)
	g := v.cluster.group(key, size)
	return g.allreduce(send, recv, count, dtype, op, v.rankInScope(scope))
}

func (v *View) TypeSize(dtype tensor.DType) int {
	return dtype.Size()
}

// --- transport.DeviceCollective ---
//
// Real NCCL communicators carry no notion of "scope" once built - the
// unique id broadcast during commcache's build protocol is itself what
// identifies the group, since every peer in the group (and only those
// peers) received the same id bytes. The fake mirrors that: CommHandle
// wraps the id bytes, and a device-collective group is looked up purely by
// id, independent of the transport.Scope the id happened to be broadcast
// over. Stream/Event are no-ops (device execution is synchronous in this
// fake - see devruntime.go).
//
// DeviceCollective and HostTransport both declare methods named Allreduce
// and Broadcast with different signatures, so a single Go type cannot
// implement both at once. DeviceView carries the device-collective method
// set on its own type (embedding *View for the shared rank/cluster state)
// so a caller that needs both roles out of one rank - e.g. passing the
// same underlying View to commcache.New(dc, host) - uses v and v.Device()
// respectively.

// DeviceView is a rank's transport.DeviceCollective handle, sharing the
// same underlying Cluster/rank state as the View it was obtained from.
type DeviceView struct {
	*View
}

// Device returns v's transport.DeviceCollective handle.
func (v *View) Device() *DeviceView {
	return &DeviceView{v}
}

func (v *DeviceView) NewUniqueID() ([]byte, error) {
	v.cluster.mu.Lock()
	v.cluster.uniqueIDCount++
	v.cluster.mu.Unlock()
	id := uuid.New()
	return id[:], nil
}

type commHandle struct {
	idKey string
	size  int
	rank  int
}

func (v *DeviceView) InitRank(id []byte, size, rank int) (transport.CommHandle, error) {
	// A real communicator init blocks on every peer in the group. InitRank
	// here only records id, size and rank and returns at once; the shared
	// group is built lazily (memoized by id) by the first collective call
	// on the handle, and that call is where the fake rendezvous happens,
	// blocking until `size` peers arrive.
	return commHandle{idKey: string(id), size: size, rank: rank}, nil
}

func (v *DeviceView) deviceGroup(comm transport.CommHandle) (*group, int, error) {
	h, ok := comm.(commHandle)
	if !ok {
		return nil, 0, fmt.Errorf("faketransport: comm handle is not from this fake")
	}
	v.cluster.mu.Lock()
	g, ok := v.cluster.deviceGroups[h.idKey]
	if !ok {
		g = newGroup(h.size)
		v.cluster.deviceGroups[h.idKey] = g
	}
	v.cluster.mu.Unlock()
	return g, h.rank, nil
}

func (v *DeviceView) Allreduce(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, comm transport.CommHandle, stream transport.Stream) error {
	g, rank, err := v.deviceGroup(comm)
	if err != nil {
		return err
	}
	return g.allreduce(src, dst, count, dtype, op, rank)
}

// ReduceScatter sums every participant's src and leaves each rank owning
// its own shard: dst must be count elements (the shard size); src is the
// full count*size-element vector this rank contributes.
func (v *DeviceView) ReduceScatter(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, comm transport.CommHandle, stream transport.Stream) error {
	g, rank, err := v.deviceGroup(comm)
	if err != nil {
		return err
	}
	if op != tensor.SUM {
		return fmt.Errorf("faketransport: reduce-scatter: unsupported op %s", op)
	}
	contrib := g.collectiveRound(src, rank)
	width := dtype.Size()
	full := count * g.size
	sum := make([]byte, full*width)
	tensor.Zero(sum, full, dtype)
	for _, c := range contrib {
		tensor.Sum(sum, sum, c, full, dtype)
	}
	copy(dst, sum[rank*count*width:(rank+1)*count*width])
	return nil
}

// Allgather concatenates every participant's count-element src shard into
// dst (count*size elements, in rank order).
func (v *DeviceView) Allgather(src, dst []byte, count int, dtype tensor.DType, comm transport.CommHandle, stream transport.Stream) error {
	g, rank, err := v.deviceGroup(comm)
	if err != nil {
		return err
	}
	contrib := g.collectiveRound(src, rank)
	width := count * dtype.Size()
	for i, c := range contrib {
		copy(dst[i*width:(i+1)*width], c)
	}
	return nil
}

// ReduceToOne sums every participant's count-element src into dst, but only
// on root; non-root dst is left untouched, matching a real reduce-to-root
// collective where only the root's output buffer is defined.
func (v *DeviceView) ReduceToOne(src, dst []byte, count int, dtype tensor.DType, op tensor.Op, root int, comm transport.CommHandle, stream transport.Stream) error {
	g, rank, err := v.deviceGroup(comm)
	if err != nil {
		return err
	}
	if op != tensor.SUM {
		return fmt.Errorf("faketransport: reduce-to-one: unsupported op %s", op)
	}
	contrib := g.collectiveRound(src, rank)
	if rank != root {
		return nil
	}
	width := count * dtype.Size()
	sum := make([]byte, width)
	tensor.Zero(sum, count, dtype)
	for _, c := range contrib {
		tensor.Sum(sum, sum, c, count, dtype)
	}
	copy(dst, sum)
	return nil
}

// Broadcast distributes root's count-element buf to every participant.
func (v *DeviceView) Broadcast(buf []byte, count int, dtype tensor.DType, root int, comm transport.CommHandle, stream transport.Stream) error {
	g, rank, err := v.deviceGroup(comm)
	if err != nil {
		return err
	}
	return g.broadcast(buf, root, rank)
}
