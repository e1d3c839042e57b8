package tensor

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestSumFloat32(t *testing.T) {
	const n = 4
	a := make([]byte, n*4)
	b := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(a[i*4:], math.Float32bits(float32(i)))
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(float32(10)))
	}
	dst := make([]byte, n*4)
	Sum(dst, a, b, n, Float32)
	for i := 0; i < n; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(dst[i*4:]))
		want := float32(i) + 10
		if got != want {
			t.Errorf("dst[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestSumInt64(t *testing.T) {
	const n = 3
	a := make([]byte, n*8)
	b := make([]byte, n*8)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint64(a[i*8:], uint64(i))
		binary.LittleEndian.PutUint64(b[i*8:], uint64(100))
	}
	dst := make([]byte, n*8)
	Sum(dst, a, b, n, Int64)
	for i := 0; i < n; i++ {
		got := int64(binary.LittleEndian.Uint64(dst[i*8:]))
		if want := int64(i + 100); got != want {
			t.Errorf("dst[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestSumAliasesDst(t *testing.T) {
	const n = 2
	a := make([]byte, n*4)
	b := make([]byte, n*4)
	binary.LittleEndian.PutUint32(a[0:], math.Float32bits(1))
	binary.LittleEndian.PutUint32(a[4:], math.Float32bits(2))
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(3))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(4))
	Sum(a, a, b, n, Float32) // dst aliases a
	if got := math.Float32frombits(binary.LittleEndian.Uint32(a[0:])); got != 4 {
		t.Errorf("a[0] = %v, want 4", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(a[4:])); got != 6 {
		t.Errorf("a[1] = %v, want 6", got)
	}
}

func TestZero(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	Zero(buf, 2, Int32)
	for i, b := range buf {
		if b != 0 {
			t.Errorf("buf[%d] = %d, want 0", i, b)
		}
	}
}

func TestDTypeSupported(t *testing.T) {
	for _, dt := range []DType{Int32, Int64, Float16, Float32, Float64} {
		if !dt.Supported() {
			t.Errorf("%s should be supported", dt)
		}
	}
	for _, dt := range []DType{Int8, UInt8, Bool} {
		if dt.Supported() {
			t.Errorf("%s should not be supported", dt)
		}
	}
}

func TestDTypeStringIncludesINT8(t *testing.T) {
	if got, want := Int8.String(), "INT8"; got != want {
		t.Errorf("Int8.String() = %q, want %q", got, want)
	}
}
