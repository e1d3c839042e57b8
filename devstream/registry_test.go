package devstream

import (
	"testing"

	"github.com/lsds/gpureduce/transport"
)

type fakeStream struct{ device, priority int }

type fakeRuntime struct {
	priorityCalls int
	createCalls   int
}

func (r *fakeRuntime) StreamPriorityRange(device int) (int, int, error) {
	r.priorityCalls++
	return 0, -5, nil
}

func (r *fakeRuntime) CreateStream(device, priority int) (transport.Stream, error) {
	r.createCalls++
	return &fakeStream{device: device, priority: priority}, nil
}

func (r *fakeRuntime) SetDevice(device int) error                                     { return nil }
func (r *fakeRuntime) CreateEvent(device int) (transport.Event, error)                { return nil, nil }
func (r *fakeRuntime) DestroyEvent(device int, event transport.Event) error           { return nil }
func (r *fakeRuntime) RecordEvent(event transport.Event, stream transport.Stream) error {
	return nil
}
func (r *fakeRuntime) SyncEvent(event transport.Event) error                   { return nil }
func (r *fakeRuntime) MemcpyD2D(dst, src []byte, stream transport.Stream) error { return nil }
func (r *fakeRuntime) MemcpyD2H(dst, src []byte, stream transport.Stream) error { return nil }
func (r *fakeRuntime) MemcpyH2D(dst, src []byte, stream transport.Stream) error { return nil }

func TestGetOrCreateUsesGreatestPriority(t *testing.T) {
	rt := &fakeRuntime{}
	r := NewRegistry(rt)
	s, err := r.GetOrCreate(3)
	if err != nil {
		t.Fatal(err)
	}
	fs := s.(*fakeStream)
	if fs.device != 3 {
		t.Errorf("device = %d, want 3", fs.device)
	}
	if fs.priority != -5 {
		t.Errorf("priority = %d, want -5 (the greatest/most urgent priority)", fs.priority)
	}
}

func TestGetOrCreateMemoizes(t *testing.T) {
	rt := &fakeRuntime{}
	r := NewRegistry(rt)
	s1, _ := r.GetOrCreate(0)
	s2, _ := r.GetOrCreate(0)
	if s1 != s2 {
		t.Error("GetOrCreate built a second stream for the same device")
	}
	if rt.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", rt.createCalls)
	}
}

func TestGetOrCreateIsPerDevice(t *testing.T) {
	rt := &fakeRuntime{}
	r := NewRegistry(rt)
	r.GetOrCreate(0)
	r.GetOrCreate(1)
	if rt.createCalls != 2 {
		t.Errorf("createCalls = %d, want 2", rt.createCalls)
	}
}
