package tensor

import "fmt"

// CPUDeviceID is the sentinel Device value denoting host placement.
const CPUDeviceID = -1

// Entry is an externally owned record describing one tensor's participation
// in a reduction. The engine never copies or retains ownership of Input/
// Output; callers must keep them valid until Callback fires.
type Entry struct {
	Name     string
	Input    []byte
	Output   []byte
	Count    int // number of elements, not bytes
	Type     DType
	Device   int // CPUDeviceID denotes host placement
	Callback Callback

	// Context is opaque data the coordinator attaches to an entry (e.g. a
	// framework-side tensor handle). The engine never inspects it; it is
	// only carried through so callers can recover per-tensor state from
	// inside Callback without a second lookup.
	Context interface{}
}

func (e *Entry) String() string {
	return fmt.Sprintf("Entry{%s, %s x%d, device=%d}", e.Name, e.Type, e.Count, e.Device)
}

func (e *Entry) deliver(s Status) {
	if e.Callback != nil {
		e.Callback(s)
	}
}

// Validate checks the entry's buffers are consistent with its declared
// Count and Type, independent of any other entry in its batch.
func (e *Entry) Validate() error {
	want := e.Count * e.Type.Size()
	if len(e.Input) != want {
		return fmt.Errorf("tensor: entry %q: input buffer is %d bytes, want %d", e.Name, len(e.Input), want)
	}
	if len(e.Output) != want {
		return fmt.Errorf("tensor: entry %q: output buffer is %d bytes, want %d", e.Name, len(e.Output), want)
	}
	return nil
}
