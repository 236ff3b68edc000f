package instance

import (
	"encoding/binary"
	"math"
)

// Matches WGSL InstanceData
// struct InstanceData {
//    model : mat4x4<f32>; (64)
//    color : u32;         (4)
//    padding : u32[3];    (12)
// }; -> 80 bytes
const SlotStride = 80

func (s *Slot) ToBytes(buf []byte) {
	for i, f := range s.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(buf[64:68], s.Color)

	// Padding
	clear(buf[68:SlotStride])
}

// Bytes packs every occupied slot for a full buffer upload.
func (t *Table) Bytes() []byte {
	return t.RangeBytes(0, len(t.ids))
}

// RangeBytes packs slots [lo, hi), clamped to the occupied range.
func (t *Table) RangeBytes(lo, hi int) []byte {
	lo = max(lo, 0)
	hi = min(hi, len(t.ids))
	if hi <= lo {
		return nil
	}

	buf := make([]byte, (hi-lo)*SlotStride)
	for i := lo; i < hi; i++ {
		off := (i - lo) * SlotStride
		t.slots[i].ToBytes(buf[off : off+SlotStride])
	}
	return buf
}
