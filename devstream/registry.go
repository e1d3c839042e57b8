// Package devstream implements the one-stream-per-device registry of spec
// section 4.2. Sharing the training framework's compute stream would
// serialize unrelated compute behind collectives (and vice versa), killing
// backprop/communication overlap, so every device gets its own stream,
// created lazily at the highest available priority with non-blocking
// semantics.
//
// Adapted from the teacher's rchannel/connection_pool.go: a mutex-guarded
// map, built lazily and memoized by key, with nothing fancier needed
// because entries are never replaced once inserted.
package devstream

import (
	"sync"

	"github.com/lsds/gpureduce/internal/assert"
	"github.com/lsds/gpureduce/internal/xerrors"
	"github.com/lsds/gpureduce/tensor"
	"github.com/lsds/gpureduce/transport"
)

type Registry struct {
	mu      sync.Mutex
	runtime transport.DeviceRuntime
	streams map[int]transport.Stream
}

func NewRegistry(runtime transport.DeviceRuntime) *Registry {
	return &Registry{
		runtime: runtime,
		streams: make(map[int]transport.Stream),
	}
}

// GetOrCreate returns the stream for device, creating it on first touch.
func (r *Registry) GetOrCreate(device int) (transport.Stream, error) {
	assert.True(device != tensor.CPUDeviceID, xerrors.CollectiveRuntimeError,
		"stream registry touched with host pseudo-device id %d", device)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.streams[device]; ok {
		return s, nil
	}
	_, greatest, err := r.runtime.StreamPriorityRange(device)
	if err != nil {
		return nil, err
	}
	s, err := r.runtime.CreateStream(device, greatest)
	if err != nil {
		return nil, err
	}
	r.streams[device] = s
	return s, nil
}
