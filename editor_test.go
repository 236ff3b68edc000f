package placer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/placer/rt/bounds"
	"github.com/gekko3d/placer/rt/instance"
	"github.com/gekko3d/placer/rt/snap"
)

type recordingUploader struct {
	calls       int
	generations []uint64
	ranges      [][2]int
}

func (u *recordingUploader) Upload(t *instance.Table) bool {
	u.calls++
	u.generations = append(u.generations, t.Generation())
	if lo, hi, ok := t.Dirty(); ok {
		u.ranges = append(u.ranges, [2]int{lo, hi})
	}
	t.ClearDirty()
	return u.calls == 1
}

func crateConfig() Config {
	cfg := DefaultConfig()
	e := [3]float32{100, 100, 100}
	cfg.Kinds["crate"] = KindConfig{Extents: &e}
	return cfg
}

func newTestEditor(t *testing.T, cfg Config) *Editor {
	t.Helper()
	ed, err := NewEditor(cfg, NewNopLogger())
	require.NoError(t, err)
	return ed
}

func slotPosition(t *testing.T, ed *Editor, id uuid.UUID) mgl32.Vec3 {
	t.Helper()
	i, ok := ed.Table().IndexOf(id)
	require.True(t, ok, "item %s not instanced", id)
	return ed.Table().Slot(i).Transform.Col(3).Vec3()
}

func vecNear(a, b mgl32.Vec3, tol float32) bool {
	for i := 0; i < 3; i++ {
		d := a[i] - b[i]
		if d > tol || d < -tol {
			return false
		}
	}
	return true
}

func TestEditorDragSnapsToNeighbour(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{200, 0, 0})
	require.NoError(t, ed.AddItems(a, b))

	ed.Select(b.ID)
	require.NoError(t, ed.BeginDrag())

	xOnly := snap.Axes{X: true}
	steps := []struct {
		offset float32
		want   float32
	}{
		{-60, -60},
		{-70, -70},
		{-80, -100}, // 20 from A's face, pulled flush
	}
	for _, s := range steps {
		got, err := ed.DragTo(mgl32.Vec3{s.offset, 0, 0}, xOnly)
		require.NoError(t, err)
		assert.True(t, vecNear(got, mgl32.Vec3{s.want, 0, 0}, 1e-4), "offset %v: got %v", s.offset, got)

		it, _ := ed.Item(b.ID)
		assert.True(t, vecNear(it.Position, mgl32.Vec3{200 + s.want, 0, 0}, 1e-4))
		assert.True(t, vecNear(slotPosition(t, ed, b.ID), it.Position, 1e-3))
	}

	require.NoError(t, ed.EndDrag())
	assert.False(t, ed.Dragging())

	bBox, _ := ed.ItemAABB(b.ID)
	aBox, _ := ed.ItemAABB(a.ID)
	assert.InDelta(t, aBox.Max.X(), bBox.Min.X(), 1e-4)

	// A never moves.
	assert.True(t, vecNear(slotPosition(t, ed, a.ID), mgl32.Vec3{}, 1e-6))
}

func TestEditorDragRespectsAxisLock(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{115, 0, 0})
	require.NoError(t, ed.AddItems(a, b))
	ed.Select(b.ID)
	require.NoError(t, ed.BeginDrag())

	// The X gap is within threshold but only Y may move.
	got, err := ed.DragTo(mgl32.Vec3{-5, 3, 0}, snap.Axes{Y: true})
	require.NoError(t, err)
	assert.True(t, vecNear(got, mgl32.Vec3{0, 3, 0}, 1e-5), "got %v", got)
}

func TestEditorSnapDisabled(t *testing.T) {
	cfg := crateConfig()
	cfg.SnapEnabled = false
	ed := newTestEditor(t, cfg)
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{200, 0, 0})
	require.NoError(t, ed.AddItems(a, b))
	ed.Select(b.ID)
	require.NoError(t, ed.BeginDrag())

	got, err := ed.DragTo(mgl32.Vec3{-80, 0, 0}, snap.AllAxes())
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{-80, 0, 0}, got)
}

func TestEditorCancelDragRestores(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{500, 0, 0})
	c := NewItem("crate", mgl32.Vec3{500, 300, 0})
	require.NoError(t, ed.AddItems(a, b, c))
	ed.Select(b.ID, c.ID)
	require.NoError(t, ed.BeginDrag())

	_, err := ed.DragTo(mgl32.Vec3{10, 20, 30}, snap.AllAxes())
	require.NoError(t, err)
	_, err = ed.DragTo(mgl32.Vec3{40, -20, 5}, snap.AllAxes())
	require.NoError(t, err)

	require.NoError(t, ed.CancelDrag())
	for _, it := range []Item{b, c} {
		got, _ := ed.Item(it.ID)
		assert.Equal(t, it.Position, got.Position)
		assert.True(t, vecNear(slotPosition(t, ed, it.ID), it.Position, 1e-3))
	}
}

func TestEditorDragErrors(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	require.ErrorIs(t, ed.BeginDrag(), ErrNoSelection)

	_, err := ed.DragTo(mgl32.Vec3{1, 0, 0}, snap.AllAxes())
	require.ErrorIs(t, err, ErrNotDragging)
	require.ErrorIs(t, ed.EndDrag(), ErrNotDragging)
	require.ErrorIs(t, ed.CancelDrag(), ErrNotDragging)
}

func TestEditorStructuralChangeDropsDrag(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	require.NoError(t, ed.AddItem(a))
	ed.Select(a.ID)
	require.NoError(t, ed.BeginDrag())

	require.NoError(t, ed.AddItem(NewItem("crate", mgl32.Vec3{400, 0, 0})))
	assert.False(t, ed.Dragging())
}

func TestEditorColors(t *testing.T) {
	cfg := crateConfig()
	cfg.GroupColors = map[int]string{1: "#ff0000"}
	ed := newTestEditor(t, cfg)

	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{200, 0, 0})
	require.NoError(t, ed.AddItems(a, b))

	color := func(id uuid.UUID) uint32 {
		i, ok := ed.Table().IndexOf(id)
		require.True(t, ok)
		return ed.Table().Slot(i).Color
	}
	gen := ed.Table().Generation()

	assert.Equal(t, uint32(0xD3D3D3), color(a.ID))

	require.NoError(t, ed.SetGroup(1, a.ID))
	assert.Equal(t, uint32(0xFF0000), color(a.ID))

	ed.Select(a.ID)
	assert.Equal(t, uint32(0xFFD700), color(a.ID))
	assert.Equal(t, uint32(0xD3D3D3), color(b.ID))

	ed.ClearSelection()
	assert.Equal(t, uint32(0xFF0000), color(a.ID))

	require.NoError(t, ed.SetGroup(0, a.ID))
	assert.Equal(t, uint32(0xD3D3D3), color(a.ID))

	// Colour changes never rebuild.
	assert.Equal(t, gen, ed.Table().Generation())

	require.ErrorIs(t, ed.SetGroup(2, uuid.New()), ErrUnknownItem)
	require.Error(t, ed.SetGroup(-1, a.ID))
}

func TestEditorSelection(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{200, 0, 0})
	require.NoError(t, ed.AddItems(a, b))

	_, ok := ed.SelectionBounds()
	assert.False(t, ok)

	// Order follows the collection, not the call.
	ed.Select(b.ID, a.ID, uuid.New())
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ed.SelectedIDs())

	obb, ok := ed.SelectionBounds()
	require.True(t, ok)
	box := obb.AABB()
	assert.True(t, vecNear(box.Min, mgl32.Vec3{-50, -50, 0}, 1e-4), "min %v", box.Min)
	assert.True(t, vecNear(box.Max, mgl32.Vec3{250, 50, 100}, 1e-4), "max %v", box.Max)

	ed.ToggleSelect(a.ID)
	assert.Equal(t, []uuid.UUID{b.ID}, ed.SelectedIDs())

	require.NoError(t, ed.RemoveItem(b.ID))
	assert.Empty(t, ed.SelectedIDs())
	require.ErrorIs(t, ed.RemoveItem(b.ID), ErrUnknownItem)
}

func TestEditorItemBounds(t *testing.T) {
	ed := newTestEditor(t, crateConfig())

	it := NewItem("crate", mgl32.Vec3{10, 0, 0})
	it.Rotation = mgl32.Vec3{0, 0, 90}
	it.Scale = mgl32.Vec3{2, 1, 1}
	unknown := NewItem("mystery", mgl32.Vec3{})
	require.NoError(t, ed.AddItems(it, unknown))

	box, ok := ed.ItemAABB(it.ID)
	require.True(t, ok)
	assert.True(t, vecNear(box.Min, mgl32.Vec3{-40, -100, 0}, 1e-3), "min %v", box.Min)
	assert.True(t, vecNear(box.Max, mgl32.Vec3{60, 100, 100}, 1e-3), "max %v", box.Max)

	obb, ok := ed.ItemOBB(it.ID)
	require.True(t, ok)
	assert.True(t, vecNear(obb.HalfExtents, mgl32.Vec3{100, 50, 50}, 1e-3))
	assert.True(t, vecNear(obb.Center, mgl32.Vec3{10, 0, 50}, 1e-3))

	// Unknown kinds fall back to a unit box.
	box, ok = ed.ItemAABB(unknown.ID)
	require.True(t, ok)
	assert.True(t, vecNear(box.Min, mgl32.Vec3{-0.5, -0.5, 0}, 1e-6))
	assert.True(t, vecNear(box.Max, mgl32.Vec3{0.5, 0.5, 1}, 1e-6))

	_, ok = ed.ItemAABB(uuid.New())
	assert.False(t, ok)
}

func TestEditorCapacityOverflow(t *testing.T) {
	var out, errOut bytes.Buffer
	cfg := crateConfig()
	cfg.MaxInstances = 2
	ed, err := NewEditor(cfg, NewLoggerTo(&out, &errOut, "test", false))
	require.NoError(t, err)

	items := []Item{
		NewItem("crate", mgl32.Vec3{0, 0, 0}),
		NewItem("crate", mgl32.Vec3{200, 0, 0}),
		NewItem("crate", mgl32.Vec3{400, 0, 0}),
	}
	require.NoError(t, ed.AddItems(items...))

	assert.Len(t, ed.Items(), 3)
	assert.Equal(t, 2, ed.Table().Len())
	_, ok := ed.Table().IndexOf(items[2].ID)
	assert.False(t, ok)
	assert.Contains(t, errOut.String(), "WARN")

	// The overflowing item can still be dragged without touching the table.
	ed.Select(items[2].ID)
	require.NoError(t, ed.BeginDrag())
	_, err = ed.DragTo(mgl32.Vec3{0, 500, 0}, snap.AllAxes())
	require.NoError(t, err)
	got, _ := ed.Item(items[2].ID)
	assert.Equal(t, mgl32.Vec3{400, 500, 0}, got.Position)
}

func TestEditorDuplicateIDs(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{})
	require.NoError(t, ed.AddItem(a))
	require.ErrorIs(t, ed.AddItem(a), ErrDuplicateItem)

	b := NewItem("crate", mgl32.Vec3{})
	require.ErrorIs(t, ed.AddItems(b, b), ErrDuplicateItem)
	assert.Len(t, ed.Items(), 1)
}

func TestEditorUpdateItem(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{})
	require.NoError(t, ed.AddItem(a))

	a.Position = mgl32.Vec3{7, 8, 9}
	require.NoError(t, ed.UpdateItem(a))
	assert.True(t, vecNear(slotPosition(t, ed, a.ID), a.Position, 1e-5))

	require.ErrorIs(t, ed.UpdateItem(NewItem("crate", mgl32.Vec3{})), ErrUnknownItem)
}

func TestEditorFlush(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	a := NewItem("crate", mgl32.Vec3{0, 0, 0})
	b := NewItem("crate", mgl32.Vec3{500, 0, 0})
	require.NoError(t, ed.AddItems(a, b))

	// Without an uploader the dirty range is simply dropped.
	assert.False(t, ed.Flush())
	_, _, dirty := ed.Table().Dirty()
	assert.False(t, dirty)

	up := &recordingUploader{}
	ed.SetUploader(up)

	ed.Select(b.ID)
	assert.True(t, ed.Flush())
	require.Len(t, up.ranges, 1)
	assert.Equal(t, [2]int{1, 2}, up.ranges[0])

	// Nothing changed since the last flush.
	assert.False(t, ed.Flush())
	assert.Len(t, up.ranges, 1)
	assert.Equal(t, up.generations[0], up.generations[1])
}

func TestEditorRegisterKind(t *testing.T) {
	ed := newTestEditor(t, DefaultConfig())
	require.Error(t, ed.RegisterKind("broken", bounds.Local{}))

	require.NoError(t, ed.RegisterKind("shelf", bounds.FromLocalBox(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{4, 2, 1})))
	it := NewItem("shelf", mgl32.Vec3{1, 1, 1})
	require.NoError(t, ed.AddItem(it))

	box, ok := ed.ItemAABB(it.ID)
	require.True(t, ok)
	assert.True(t, vecNear(box.Min, mgl32.Vec3{1, 1, 1}, 1e-6))
	assert.True(t, vecNear(box.Max, mgl32.Vec3{5, 3, 2}, 1e-6))
}

func TestEditorSetItemsRejectsDuplicates(t *testing.T) {
	ed := newTestEditor(t, crateConfig())
	keep := NewItem("crate", mgl32.Vec3{})
	require.NoError(t, ed.AddItem(keep))

	it := NewItem("crate", mgl32.Vec3{})
	require.ErrorIs(t, ed.SetItems([]Item{it, it}), ErrDuplicateItem)
	assert.Equal(t, []Item{keep}, ed.Items())

	// Each id moves its slot exactly once per drag step.
	require.NoError(t, ed.SetItems([]Item{it}))
	ed.Select(it.ID)
	require.Len(t, ed.SelectedIDs(), 1)
	require.NoError(t, ed.BeginDrag())
	_, err := ed.DragTo(mgl32.Vec3{10, 0, 0}, snap.AllAxes())
	require.NoError(t, err)

	got, _ := ed.Item(it.ID)
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, got.Position)
	assert.True(t, vecNear(slotPosition(t, ed, it.ID), got.Position, 1e-5))
}

func TestEditorUnknownKindLoggedOnce(t *testing.T) {
	var out, errOut bytes.Buffer
	ed, err := NewEditor(crateConfig(), NewLoggerTo(&out, &errOut, "test", true))
	require.NoError(t, err)

	a := NewItem("mystery", mgl32.Vec3{0, 0, 0})
	b := NewItem("mystery", mgl32.Vec3{3, 0, 0})
	c := NewItem("crate", mgl32.Vec3{500, 0, 0})
	require.NoError(t, ed.AddItems(a, b, c))

	ed.Select(a.ID)
	require.NoError(t, ed.BeginDrag())
	for i := 1; i <= 5; i++ {
		_, err := ed.DragTo(mgl32.Vec3{0, float32(i), 0}, snap.AllAxes())
		require.NoError(t, err)
	}
	require.NoError(t, ed.EndDrag())

	assert.Equal(t, 1, strings.Count(out.String(), `unknown item kind "mystery"`))
}
