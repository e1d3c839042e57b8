// Package devevent implements the per-device event pool of spec section
// 4.1: a LIFO of recycled device events behind a single mutex shared across
// every device's queue, because event creation has non-zero cost in the
// underlying device runtime.
//
// Adapted from the teacher's rchannel buffer-recycling pools
// (buffer_pool.go, leaky_pool.go), which use the same shape - a
// mutex-guarded map from key to a reusable resource queue - for byte
// buffers instead of device events.
package devevent

import (
	"sync"

	"github.com/lsds/gpureduce/internal/assert"
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

// Pool caches device events per GPU. Acquire returns a recycled event if
// one is available, otherwise it creates a fresh one. Release returns an
// event to its device's queue; correctness requires the event has already
// been synchronized on before it is released (the finalizer is the only
// caller of Release, and it always synchronizes first).
type Pool struct {
	mu      sync.Mutex
	runtime transport.DeviceRuntime
	free    map[int][]transport.Event // device -> LIFO stack of idle events
}

func NewPool(runtime transport.DeviceRuntime) *Pool {
	return &Pool{
		runtime: runtime,
		free:    make(map[int][]transport.Event),
	}
}

// Acquire returns a recycled event for device if one is idle, else creates
// a new one.
func (p *Pool) Acquire(device int) (transport.Event, error) {
	assert.True(device != tensor.CPUDeviceID, xerrors.CollectiveRuntimeError,
		"device-event pool touched with host pseudo-device id %d", device)
	p.mu.Lock()
	stack := p.free[device]
	if n := len(stack); n > 0 {
		ev := stack[n-1]
		p.free[device] = stack[:n-1]
		p.mu.Unlock()
		return ev, nil
	}
	p.mu.Unlock()
	return p.runtime.CreateEvent(device)
}

// Release returns ev to device's idle queue for reuse.
func (p *Pool) Release(device int, ev transport.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free[device] = append(p.free[device], ev)
}

// Len reports the number of idle events currently cached for device. It
// exists for the event-pool conservation property test (spec section 8):
// acquires minus releases must equal the number of events held in live
// event queues, and in steady state after a drain the pool's idle count
// plus in-flight count should account for every event ever created.
func (p *Pool) Len(device int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[device])
}
