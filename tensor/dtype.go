// Package tensor defines the data model the reduction engine operates on:
// typed byte-backed entries, fusion batches, and completion status. The
// engine never owns entry memory; it requires entries remain valid until
// their callback fires.
package tensor

import "fmt"

// DType is an element type the engine knows how to reduce.
type DType int

const (
	Int32 DType = iota
	Int64
	Float16
	Float32
	Float64

	// Int8, UInt8 and Bool are named so an UnsupportedType error can report
	// them by name (spec section 6), but are deliberately absent from
	// dtypeSizes: the engine only ever reduces the five types above.
	Int8
	UInt8
	Bool
)

var dtypeSizes = map[DType]int{
	Int32:   4,
	Int64:   8,
	Float16: 2,
	Float32: 4,
	Float64: 8,
}

var dtypeNames = map[DType]string{
	Int32:   "INT32",
	Int64:   "INT64",
	Float16: "FLOAT16",
	Float32: "FLOAT32",
	Float64: "FLOAT64",
	Int8:    "INT8",
	UInt8:   "UINT8",
	Bool:    "BOOL",
}

// Size returns the element size in bytes.
func (t DType) Size() int {
	return dtypeSizes[t]
}

func (t DType) String() string {
	if n, ok := dtypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("DType(%d)", int(t))
}

// Supported reports whether t is one of the engine-visible element types of
// spec section 6. Any other type is a fatal UnsupportedType error before
// enqueue.
func (t DType) Supported() bool {
	_, ok := dtypeSizes[t]
	return ok
}
