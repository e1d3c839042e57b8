package plan

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// DeviceKey is the ordered list of device ids forming a collective group,
// encoded so it can be used as a Go map key. Two keys are equal iff the
// underlying device-id sequences are element-wise equal once sorted -
// membership in a collective group does not depend on enumeration order.
//
// Adapted from the teacher's plan.PeerList.Bytes(), which serializes a peer
// list for exactly this purpose (a total, explicit encoding to back a map
// key) - see spec section 9's open question about the source system's nccl_comms using
// an unordered map keyed by a vector needing "explicit and total" hash and
// equality; encoding into a comparable string sidesteps that pitfall
// entirely rather than hand-rolling a slice hash.
type DeviceKey string

// NewDeviceKey builds the key for a device-tuple. It does not check the
// ids: negative ones are encoded like any other, and its callers pass the
// device ids of a Response without checking them either.
func NewDeviceKey(devices []int) DeviceKey {
	sorted := append([]int(nil), devices...)
	sort.Ints(sorted)
	var buf bytes.Buffer
	for _, d := range sorted {
		binary.Write(&buf, binary.LittleEndian, int64(d))
	}
	return DeviceKey(buf.String())
}
