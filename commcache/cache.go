// Package commcache implements the communicator cache of spec section 4.3:
// a device-tuple key maps to a lazily built collective communicator, shared
// by every subsequent job for that key, built exactly once via a
// rendezvous over the host transport.
//
// Adapted from the teacher's kungfu/session/session.go (a session-scoped,
// once-built cache of peer-derived state) and rchannel/connection_pool.go
// (lazy, memoized-by-key construction). Per spec section 5, the cache
// lookup itself is not protected by a lock in the source system - the
// engine assumes the caller serializes one reduction batch at a time, so
// Initialize for job N+1 cannot race Initialize for job N. We still guard
// the map with a mutex (matching every pool in the teacher's rchannel
// package, which always wraps its maps even when a comment says races
// "shouldn't" happen) as cheap insurance against a caller that violates
// that assumption.
package commcache

import (
	"fmt"
	"sync"

	"github.com/lsds/gpureduce/internal/log"
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/plan"
	"github.com/lsds/gpureduce/transport"
)

// BuildScope is what a strategy supplies to describe the communicator
// group it needs built: this peer's rank within the group, the group size,
// and the host-transport scope the rendezvous broadcast/barrier run over.
type BuildScope struct {
	RankInGroup int
	GroupSize   int
	Scope       transport.Scope
}

// uniqueIDSize is the fixed width of the opaque identifier broadcast during
// communicator construction, matching NCCL's ncclUniqueId convention (128
// bytes) so a real device-collective transport can be dropped in without
// resizing this buffer.
const uniqueIDSize = 128

type Cache struct {
	mu    sync.Mutex
	dc    transport.DeviceCollective
	host  transport.HostTransport
	byKey map[plan.DeviceKey]transport.CommHandle

	// genUniqueID is overridable for tests that count invocations (spec
	// section 8's idempotence property: two batches with identical device
	// tuples build exactly one communicator).
	genUniqueID func() ([]byte, error)
}

func New(dc transport.DeviceCollective, host transport.HostTransport) *Cache {
	c := &Cache{
		dc:    dc,
		host:  host,
		byKey: make(map[plan.DeviceKey]transport.CommHandle),
	}
	c.genUniqueID = dc.NewUniqueID
	return c
}

// GetOrBuild returns the memoized communicator for key, building it via the
// rendezvous protocol of spec section 4.3 on first use. A build entry, once
// inserted, is never replaced or removed.
func (c *Cache) GetOrBuild(key plan.DeviceKey, scope BuildScope) (transport.CommHandle, error) {
	c.mu.Lock()
	if h, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	h, err := c.build(scope)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.byKey[key]; ok {
		// Another caller raced us despite the external-serialization
		// assumption; keep whichever was inserted first so an entry is
		// never replaced, per spec section 3's invariant.
		c.mu.Unlock()
		return existing, nil
	}
	c.byKey[key] = h
	c.mu.Unlock()
	log.With("rank", scope.RankInGroup, "size", scope.GroupSize, "scope", scope.Scope).
		Debugf("built communicator for key")
	return h, nil
}

func (c *Cache) build(scope BuildScope) (transport.CommHandle, error) {
	buf := make([]byte, uniqueIDSize)
	if scope.RankInGroup == 0 {
		id, err := c.genUniqueID()
		if err != nil {
			return nil, xerrors.NewCollectiveRuntimeError("NewUniqueID", err)
		}
		n := copy(buf, id)
		if n < len(id) {
			return nil, xerrors.NewCollectiveRuntimeError("NewUniqueID", errTooLong(len(id), uniqueIDSize))
		}
	}
	if err := c.host.Broadcast(buf, scope.Scope, 0); err != nil {
		return nil, xerrors.NewTransportError("Broadcast(unique_id)", err)
	}
	handle, err := c.dc.InitRank(buf, scope.GroupSize, scope.RankInGroup)
	if err != nil {
		return nil, xerrors.NewCollectiveRuntimeError("InitRank", err)
	}
	// Guards against a known post-init deadlock in the underlying
	// collective library (spec section 4.3 step 4).
	if err := c.host.Barrier(scope.Scope); err != nil {
		return nil, xerrors.NewTransportError("Barrier(post-init)", err)
	}
	return handle, nil
}

func errTooLong(got, want int) error {
	return fmt.Errorf("unique id of %d bytes exceeds the %d-byte wire format", got, want)
}
