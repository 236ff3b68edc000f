package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/placer/rt/instance"
)

// InstanceBuffer mirrors an instance.Table into a GPU vertex buffer used by
// the instanced draw call.
type InstanceBuffer struct {
	Device *wgpu.Device
	Buf    *wgpu.Buffer

	// Spare slots reserved on (re)allocation so small additions don't
	// reallocate.
	HeadroomSlots int

	generation uint64
	uploaded   bool
}

func NewInstanceBuffer(device *wgpu.Device) *InstanceBuffer {
	return &InstanceBuffer{
		Device:        device,
		HeadroomSlots: 256,
	}
}

// Upload writes the whole table after a rebuild and only the dirty slot range
// after partial updates. It returns true if the buffer was recreated and
// bind groups referencing it must be rebuilt.
func (b *InstanceBuffer) Upload(t *instance.Table) bool {
	lo, hi, dirty := t.Dirty()
	full := !b.uploaded || t.Generation() != b.generation

	recreated := false
	if full {
		data := t.Bytes()
		if len(data) == 0 {
			data = make([]byte, instance.SlotStride)
		}
		recreated = b.ensureBuffer("InstancesBuf", data, b.HeadroomSlots*instance.SlotStride)
		b.generation = t.Generation()
		b.uploaded = true
	} else if dirty {
		data := t.RangeBytes(lo, hi)
		if len(data) > 0 {
			b.Device.GetQueue().WriteBuffer(b.Buf, uint64(lo*instance.SlotStride), data)
		}
	}

	t.ClearDirty()
	return recreated
}

func (b *InstanceBuffer) Release() {
	if b.Buf != nil {
		b.Buf.Release()
		b.Buf = nil
	}
	b.uploaded = false
}

func (b *InstanceBuffer) ensureBuffer(name string, data []byte, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	if b.Buf == nil || b.Buf.GetSize() < uint64(len(data)) {
		if b.Buf != nil {
			b.Buf.Release()
		}

		desc := &wgpu.BufferDescriptor{
			Label:            name,
			Size:             neededSize,
			Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
			MappedAtCreation: false,
		}
		newBuf, err := b.Device.CreateBuffer(desc)
		if err != nil {
			panic(err)
		}
		b.Buf = newBuf

		b.Device.GetQueue().WriteBuffer(b.Buf, 0, data)
		return true
	}

	b.Device.GetQueue().WriteBuffer(b.Buf, 0, data)
	return false
}
