package tensor

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

// Sum adds the elements of a and b into dst, interpreting all three buffers
// as dtype-typed arrays of count elements. dst may alias a or b. This is
// the element-wise reduction primitive the in-memory host-transport and
// device-collective fakes use to actually perform the sums the spec's
// property tests check for - grounded on the teacher's kb.Transform2,
// generalized from KungFu's byte-vector-plus-op model to every dtype the
// engine supports, including FLOAT16 via the x448/float16 conversion
// routines (the pack carries this dependency transitively through gomlx;
// nothing in the standard library decodes IEEE-754 half floats).
func Sum(dst, a, b []byte, count int, dtype DType) {
	switch dtype {
	case Int32:
		for i := 0; i < count; i++ {
			off := i * 4
			v := int32(binary.LittleEndian.Uint32(a[off:])) + int32(binary.LittleEndian.Uint32(b[off:]))
			binary.LittleEndian.PutUint32(dst[off:], uint32(v))
		}
	case Int64:
		for i := 0; i < count; i++ {
			off := i * 8
			v := int64(binary.LittleEndian.Uint64(a[off:])) + int64(binary.LittleEndian.Uint64(b[off:]))
			binary.LittleEndian.PutUint64(dst[off:], uint64(v))
		}
	case Float32:
		for i := 0; i < count; i++ {
			off := i * 4
			v := math.Float32frombits(binary.LittleEndian.Uint32(a[off:])) + math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
		}
	case Float64:
		for i := 0; i < count; i++ {
			off := i * 8
			v := math.Float64frombits(binary.LittleEndian.Uint64(a[off:])) + math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
			binary.LittleEndian.PutUint64(dst[off:], math.Float64bits(v))
		}
	case Float16:
		for i := 0; i < count; i++ {
			off := i * 2
			fa := float16.Frombits(binary.LittleEndian.Uint16(a[off:])).Float32()
			fb := float16.Frombits(binary.LittleEndian.Uint16(b[off:])).Float32()
			binary.LittleEndian.PutUint16(dst[off:], float16.Fromfloat32(fa+fb).Bits())
		}
	}
}

// Zero clears count dtype-typed elements of buf to the additive identity.
func Zero(buf []byte, count int, dtype DType) {
	for i := range buf[:count*dtype.Size()] {
		buf[i] = 0
	}
}
