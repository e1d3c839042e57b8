package faketransport

import (
	"fmt"
	"sync"

	"github.com/lsds/gpureduce/transport"
)

// devRuntime is the shared fake transport.DeviceRuntime backing every View
// in a Cluster. Device execution is synchronous here - there is no real
// GPU, so every operation has completed by the time its call returns, a
// "stream" only records its device and priority, and recording an event
// just marks it recorded. Work issued before an event is therefore
// complete by the time the event is synchronized on, as real CUDA stream
// semantics promise.
type devRuntime struct {
	mu      sync.Mutex
	streams map[int][]*fakeStream
	events  map[*fakeEvent]bool
}

func newDevRuntime() *devRuntime {
	return &devRuntime{
		streams: make(map[int][]*fakeStream),
		events:  make(map[*fakeEvent]bool),
	}
}

type fakeStream struct {
	device   int
	priority int
}

type fakeEvent struct {
	mu   sync.Mutex
	done bool
}

func (v *View) SetDevice(device int) error {
	return nil
}

// StreamPriorityRange mirrors cudaDeviceGetStreamPriorityRange's
// convention: lower numeric value is higher priority. The fake exposes a
// fixed range wide enough that "greatest" is always distinguishable from
// the default stream's priority (0) in tests that care.
func (v *View) StreamPriorityRange(device int) (least, greatest int, err error) {
	return 0, -1, nil
}

func (v *View) CreateStream(device, priority int) (transport.Stream, error) {
	s := &fakeStream{device: device, priority: priority}
	v.cluster.rt.mu.Lock()
	v.cluster.rt.streams[device] = append(v.cluster.rt.streams[device], s)
	v.cluster.rt.mu.Unlock()
	return s, nil
}

func (v *View) CreateEvent(device int) (transport.Event, error) {
	ev := &fakeEvent{}
	v.cluster.rt.mu.Lock()
	v.cluster.rt.events[ev] = true
	v.cluster.rt.mu.Unlock()
	return ev, nil
}

func (v *View) DestroyEvent(device int, event transport.Event) error {
	ev, ok := event.(*fakeEvent)
	if !ok {
		return fmt.Errorf("faketransport: event is not from this fake")
	}
	v.cluster.rt.mu.Lock()
	delete(v.cluster.rt.events, ev)
	v.cluster.rt.mu.Unlock()
	return nil
}

// RecordEvent marks ev complete. Because this fake executes every enqueued
// operation synchronously (memcpys and collectives run to completion before
// their call returns), every stream operation enqueued before RecordEvent
// is already done by the time it is called - recording just needs to flip
// the flag SyncEvent waits on.
func (v *View) RecordEvent(event transport.Event, stream transport.Stream) error {
	ev, ok := event.(*fakeEvent)
	if !ok {
		return fmt.Errorf("faketransport: event is not from this fake")
	}
	ev.mu.Lock()
	ev.done = true
	ev.mu.Unlock()
	return nil
}

func (v *View) SyncEvent(event transport.Event) error {
	ev, ok := event.(*fakeEvent)
	if !ok {
		return fmt.Errorf("faketransport: event is not from this fake")
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if !ev.done {
		return fmt.Errorf("faketransport: event synced before it was recorded")
	}
	return nil
}

func (v *View) MemcpyD2D(dst, src []byte, stream transport.Stream) error {
	copy(dst, src)
	return nil
}

func (v *View) MemcpyD2H(dst, src []byte, stream transport.Stream) error {
	copy(dst, src)
	return nil
}

func (v *View) MemcpyH2D(dst, src []byte, stream transport.Stream) error {
	copy(dst, src)
	return nil
}
