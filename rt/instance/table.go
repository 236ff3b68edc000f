package instance

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/placer/rt/core"
)

// Object is the host's view of one placed item.
type Object struct {
	ID       uuid.UUID
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler degrees, X roll, Y pitch, Z yaw
	Scale    mgl32.Vec3
	GroupID  int // 0 means ungrouped
}

// Matrix composes the same world transform the bounds engine consumes.
func (o Object) Matrix() mgl32.Mat4 {
	return core.ComposeEuler(o.Position, o.Rotation, o.Scale)
}

type Selection interface {
	IsSelected(id uuid.UUID) bool
}

// Warner receives non-fatal conditions such as capacity overflow.
type Warner interface {
	Warnf(format string, args ...any)
}

type Slot struct {
	Transform mgl32.Mat4
	Color     uint32 // 0xRRGGBB
}

type RebuildStats struct {
	Rendered   int
	Overflow   int
	Duplicates int
}

// Table owns the flat instance slots and the id <-> slot mapping. It is not
// safe for concurrent use; the host drives it from one loop.
type Table struct {
	capacity int
	palette  Palette
	log      Warner

	slots   []Slot
	ids     []uuid.UUID
	indexOf map[uuid.UUID]int

	generation uint64
	dirtyLo    int
	dirtyHi    int
}

func NewTable(maxInstances int, palette Palette, log Warner) *Table {
	if maxInstances < 0 {
		maxInstances = 0
	}
	return &Table{
		capacity: maxInstances,
		palette:  palette,
		log:      log,
		slots:    make([]Slot, maxInstances),
		ids:      make([]uuid.UUID, 0, maxInstances),
		indexOf:  make(map[uuid.UUID]int, maxInstances),
	}
}

// Rebuild repopulates every slot from objects in order. Objects past the
// capacity stay with the host but are not drawn. Any index handed out before
// is invalid afterwards.
func (t *Table) Rebuild(objects []Object, sel Selection) RebuildStats {
	prev := len(t.ids)
	clear(t.indexOf)
	t.ids = t.ids[:0]

	var stats RebuildStats
	for _, obj := range objects {
		if _, dup := t.indexOf[obj.ID]; dup {
			stats.Duplicates++
			continue
		}
		if len(t.ids) == t.capacity {
			stats.Overflow++
			continue
		}

		i := len(t.ids)
		t.slots[i] = Slot{
			Transform: obj.Matrix(),
			Color:     t.palette.Resolve(obj.GroupID, isSelected(sel, obj.ID)),
		}
		t.ids = append(t.ids, obj.ID)
		t.indexOf[obj.ID] = i
	}

	// Zero what the previous build left past the new count.
	for i := len(t.ids); i < prev; i++ {
		t.slots[i] = Slot{}
	}

	stats.Rendered = len(t.ids)
	if stats.Overflow > 0 {
		t.warnf("instance table full: drawing %d of %d objects (%d over capacity)",
			stats.Rendered, stats.Rendered+stats.Overflow, stats.Overflow)
	}
	if stats.Duplicates > 0 {
		t.warnf("instance table: skipped %d duplicate object ids", stats.Duplicates)
	}

	t.generation++
	t.dirtyLo, t.dirtyHi = 0, len(t.ids)
	return stats
}

// UpdateColors recomputes only the colour of mapped slots.
func (t *Table) UpdateColors(objects []Object, sel Selection) {
	if len(t.indexOf) == 0 {
		return
	}
	for _, obj := range objects {
		i, ok := t.indexOf[obj.ID]
		if !ok {
			continue
		}
		c := t.palette.Resolve(obj.GroupID, isSelected(sel, obj.ID))
		if t.slots[i].Color != c {
			t.slots[i].Color = c
			t.markDirty(i)
		}
	}
}

// UpdateSlotsForIDs moves the given slots by delta in place. Ids that are not
// instanced are skipped. It returns how many slots were written.
func (t *Table) UpdateSlotsForIDs(ids []uuid.UUID, delta mgl32.Vec3) int {
	n := 0
	for _, id := range ids {
		i, ok := t.indexOf[id]
		if !ok {
			continue
		}
		t.slots[i].Transform = core.Translate(t.slots[i].Transform, delta)
		t.markDirty(i)
		n++
	}
	return n
}

// SetPalette swaps the colour policy; call UpdateColors to apply it.
func (t *Table) SetPalette(p Palette) {
	t.palette = p
}

func (t *Table) Len() int {
	return len(t.ids)
}

func (t *Table) Capacity() int {
	return t.capacity
}

// Slot returns the slot at index i. It panics if i is not occupied.
func (t *Table) Slot(i int) Slot {
	if i < 0 || i >= len(t.ids) {
		panic("instance: slot index out of range")
	}
	return t.slots[i]
}

// Slots returns the occupied slots. The slice aliases table storage.
func (t *Table) Slots() []Slot {
	return t.slots[:len(t.ids)]
}

func (t *Table) IndexOf(id uuid.UUID) (int, bool) {
	i, ok := t.indexOf[id]
	return i, ok
}

func (t *Table) IDAt(i int) (uuid.UUID, bool) {
	if i < 0 || i >= len(t.ids) {
		return uuid.Nil, false
	}
	return t.ids[i], true
}

// Generation changes on every Rebuild.
func (t *Table) Generation() uint64 {
	return t.generation
}

// Dirty reports the half-open slot range written since the last ClearDirty.
func (t *Table) Dirty() (int, int, bool) {
	return t.dirtyLo, t.dirtyHi, t.dirtyHi > t.dirtyLo
}

func (t *Table) ClearDirty() {
	t.dirtyLo, t.dirtyHi = 0, 0
}

func (t *Table) markDirty(i int) {
	if t.dirtyHi <= t.dirtyLo {
		t.dirtyLo, t.dirtyHi = i, i+1
		return
	}
	t.dirtyLo = min(t.dirtyLo, i)
	t.dirtyHi = max(t.dirtyHi, i+1)
}

func (t *Table) warnf(format string, args ...any) {
	if t.log != nil {
		t.log.Warnf(format, args...)
	}
}

func isSelected(sel Selection, id uuid.UUID) bool {
	return sel != nil && sel.IsSelected(id)
}
