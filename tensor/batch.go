package tensor

import "fmt"

// Batch is an ordered, non-empty sequence of Entries sharing the same
// element type and device id. Batch order defines the fusion-buffer
// layout: entries are concatenated in iteration order with element-sized
// alignment; the first entry supplies element-type metadata for the whole
// batch.
type Batch struct {
	Entries []*Entry

	// offsets[i] is the element offset of Entries[i] within the fusion
	// buffer; offsets[len(Entries)] is the total element count.
	offsets []int
}

// NewBatch validates and lays out entries into fusion-buffer order.
func NewBatch(entries []*Entry) (*Batch, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("tensor: batch must be non-empty")
	}
	dtype := entries[0].Type
	device := entries[0].Device
	offsets := make([]int, len(entries)+1)
	for i, e := range entries {
		if e.Type != dtype {
			return nil, fmt.Errorf("tensor: batch: entry %q has type %s, want %s", e.Name, e.Type, dtype)
		}
		if e.Device != device {
			return nil, fmt.Errorf("tensor: batch: entry %q has device %d, want %d", e.Name, e.Device, device)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		offsets[i+1] = offsets[i] + e.Count
	}
	return &Batch{Entries: entries, offsets: offsets}, nil
}

func (b *Batch) Type() DType {
	return b.Entries[0].Type
}

func (b *Batch) Device() int {
	return b.Entries[0].Device
}

// NumElements is the total element count of the un-padded fusion buffer.
func (b *Batch) NumElements() int {
	return b.offsets[len(b.Entries)]
}

// Offset returns the element offset of Entries[i] within the fusion buffer.
func (b *Batch) Offset(i int) int {
	return b.offsets[i]
}

// Fused reports whether the batch is a true fusion of more than one entry.
// Padding for the hierarchical strategy only applies in this case.
func (b *Batch) Fused() bool {
	return len(b.Entries) >= 2
}

// DeliverAll invokes every entry's callback with s. Used by the finalizer,
// with OK after a clean drain or a failed Status when the drain fails.
func (b *Batch) DeliverAll(s Status) {
	for _, e := range b.Entries {
		e.deliver(s)
	}
}
