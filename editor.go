package placer

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/placer/rt/bounds"
	"github.com/gekko3d/placer/rt/instance"
	"github.com/gekko3d/placer/rt/snap"
)

var (
	ErrUnknownItem   = errors.New("unknown item")
	ErrDuplicateItem = errors.New("duplicate item id")
	ErrNoSelection   = errors.New("nothing selected")
	ErrNotDragging   = errors.New("no drag in progress")
)

// Uploader pushes the instance table to the GPU. rt/gpu.InstanceBuffer
// satisfies it.
type Uploader interface {
	Upload(t *instance.Table) bool
}

type dragState struct {
	ids     []uuid.UUID
	start   map[uuid.UUID]mgl32.Vec3
	applied mgl32.Vec3
}

// Editor ties the item collection, the selection and the instance table
// together. It is driven from a single loop and is not safe for concurrent
// use.
type Editor struct {
	cfg   Config
	log   Logger
	kinds map[string]bounds.Local

	// kinds already reported as unknown
	unknownKinds map[string]struct{}

	items []Item
	index map[uuid.UUID]int
	sel   *Selection

	table    *instance.Table
	uploader Uploader
	drag     *dragState
}

func NewEditor(cfg Config, log Logger) (*Editor, error) {
	if log == nil {
		log = NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}
	palette, err := cfg.Palette()
	if err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}

	e := &Editor{
		cfg:   cfg,
		log:   log,
		kinds: make(map[string]bounds.Local, len(cfg.Kinds)),

		unknownKinds: make(map[string]struct{}),
		index: make(map[uuid.UUID]int),
		sel:   NewSelection(),
		table: instance.NewTable(cfg.MaxInstances, palette, log),
	}
	for name, k := range cfg.Kinds {
		l, err := k.Local()
		if err != nil {
			return nil, fmt.Errorf("new editor: kind %q: %w", name, err)
		}
		e.kinds[name] = l
	}
	return e, nil
}

func (e *Editor) SetUploader(u Uploader) {
	e.uploader = u
}

func (e *Editor) Config() Config {
	return e.cfg
}

func (e *Editor) Table() *instance.Table {
	return e.table
}

func (e *Editor) Selection() *Selection {
	return e.sel
}

// RegisterKind sets the local bounds used for items of the given kind.
func (e *Editor) RegisterKind(name string, l bounds.Local) error {
	if !l.IsValid() {
		return fmt.Errorf("register kind %q: invalid local bounds", name)
	}
	e.kinds[name] = l
	return nil
}

func (e *Editor) localBounds(kind string) bounds.Local {
	if l, ok := e.kinds[kind]; ok {
		return l
	}
	if _, ok := e.unknownKinds[kind]; !ok {
		e.unknownKinds[kind] = struct{}{}
		e.log.Debugf("unknown item kind %q, using unit box", kind)
	}
	return bounds.FromExtents(1, 1, 1)
}

// Items returns a copy of the collection in rendering order.
func (e *Editor) Items() []Item {
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Editor) Item(id uuid.UUID) (Item, bool) {
	i, ok := e.index[id]
	if !ok {
		return Item{}, false
	}
	return e.items[i], true
}

func (e *Editor) AddItem(it Item) error {
	return e.AddItems(it)
}

func (e *Editor) AddItems(items ...Item) error {
	seen := make(map[uuid.UUID]struct{}, len(items))
	for _, it := range items {
		if _, ok := e.index[it.ID]; ok {
			return fmt.Errorf("add item %s: %w", it.ID, ErrDuplicateItem)
		}
		if _, ok := seen[it.ID]; ok {
			return fmt.Errorf("add item %s: %w", it.ID, ErrDuplicateItem)
		}
		seen[it.ID] = struct{}{}
	}
	e.items = append(e.items, items...)
	e.rebuild()
	return nil
}

func (e *Editor) RemoveItem(id uuid.UUID) error {
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("remove item %s: %w", id, ErrUnknownItem)
	}
	e.items = append(e.items[:i], e.items[i+1:]...)
	e.sel.Deselect(id)
	e.rebuild()
	return nil
}

// UpdateItem replaces the stored item with the same id.
func (e *Editor) UpdateItem(it Item) error {
	i, ok := e.index[it.ID]
	if !ok {
		return fmt.Errorf("update item %s: %w", it.ID, ErrUnknownItem)
	}
	e.items[i] = it
	e.rebuild()
	return nil
}

// SetItems replaces the whole collection and clears the selection. The
// collection is left alone if items repeats an id.
func (e *Editor) SetItems(items []Item) error {
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, it := range items {
		if _, ok := seen[it.ID]; ok {
			return fmt.Errorf("set items: item %d (%s): %w", i, it.ID, ErrDuplicateItem)
		}
		seen[it.ID] = struct{}{}
	}

	e.items = make([]Item, len(items))
	copy(e.items, items)
	e.sel.Clear()
	e.rebuild()
	return nil
}

func (e *Editor) rebuild() {
	if e.drag != nil {
		e.log.Debugf("collection changed, dropping drag of %d items", len(e.drag.ids))
		e.drag = nil
	}

	clear(e.index)
	for i, it := range e.items {
		if _, dup := e.index[it.ID]; !dup {
			e.index[it.ID] = i
		}
	}

	stats := e.table.Rebuild(objects(e.items), e.sel)
	e.log.Debugf("instance table rebuilt: %d rendered, %d overflow, %d duplicates",
		stats.Rendered, stats.Overflow, stats.Duplicates)
}

func (e *Editor) recolor() {
	e.table.UpdateColors(objects(e.items), e.sel)
}

func (e *Editor) Select(ids ...uuid.UUID) {
	changed := false
	for _, id := range ids {
		if _, ok := e.index[id]; !ok {
			continue
		}
		if e.sel.Select(id) {
			changed = true
		}
	}
	if changed {
		e.recolor()
	}
}

func (e *Editor) Deselect(ids ...uuid.UUID) {
	changed := false
	for _, id := range ids {
		if e.sel.Deselect(id) {
			changed = true
		}
	}
	if changed {
		e.recolor()
	}
}

func (e *Editor) ToggleSelect(id uuid.UUID) {
	if _, ok := e.index[id]; !ok {
		return
	}
	e.sel.Toggle(id)
	e.recolor()
}

func (e *Editor) ClearSelection() {
	if e.sel.Len() == 0 {
		return
	}
	e.sel.Clear()
	e.recolor()
}

func (e *Editor) SelectedIDs() []uuid.UUID {
	return e.sel.IDs(e.items)
}

// SetGroup assigns group to the given items. Zero ungroups them.
func (e *Editor) SetGroup(group int, ids ...uuid.UUID) error {
	if group < 0 {
		return fmt.Errorf("set group: negative group id %d", group)
	}
	for _, id := range ids {
		i, ok := e.index[id]
		if !ok {
			return fmt.Errorf("set group %d on %s: %w", group, id, ErrUnknownItem)
		}
		e.items[i].GroupID = group
	}
	e.recolor()
	return nil
}

func (e *Editor) ItemAABB(id uuid.UUID) (bounds.AABB, bool) {
	it, ok := e.Item(id)
	if !ok {
		return bounds.EmptyAABB(), false
	}
	return e.localBounds(it.Kind).AABB(it.Matrix()), true
}

func (e *Editor) ItemOBB(id uuid.UUID) (bounds.OBB, bool) {
	it, ok := e.Item(id)
	if !ok {
		return bounds.OBB{}, false
	}
	return e.localBounds(it.Kind).OBB(it.Matrix()), true
}

// SelectionBounds merges the OBBs of every selected item.
func (e *Editor) SelectionBounds() (bounds.OBB, bool) {
	ids := e.SelectedIDs()
	if len(ids) == 0 {
		return bounds.OBB{}, false
	}
	return e.mergedOBB(ids, nil), true
}

// mergedOBB bounds ids, optionally at overridden positions. A single item
// keeps its own orientation.
func (e *Editor) mergedOBB(ids []uuid.UUID, pos map[uuid.UUID]mgl32.Vec3) bounds.OBB {
	obbs := make([]bounds.OBB, 0, len(ids))
	for _, id := range ids {
		it := e.items[e.index[id]]
		if p, ok := pos[id]; ok {
			it.Position = p
		}
		obbs = append(obbs, e.localBounds(it.Kind).OBB(it.Matrix()))
	}
	if len(obbs) == 1 {
		return obbs[0]
	}
	return bounds.MergeOBBs(obbs...)
}

func (e *Editor) Dragging() bool {
	return e.drag != nil
}

// BeginDrag snapshots the start positions of the selection.
func (e *Editor) BeginDrag() error {
	ids := e.SelectedIDs()
	if len(ids) == 0 {
		return fmt.Errorf("begin drag: %w", ErrNoSelection)
	}
	d := &dragState{
		ids:   ids,
		start: make(map[uuid.UUID]mgl32.Vec3, len(ids)),
	}
	for _, id := range ids {
		d.start[id] = e.items[e.index[id]].Position
	}
	e.drag = d
	return nil
}

// DragTo moves the selection to its start positions plus offset, snapping
// the group to the nearest neighbour face within the configured threshold.
// It returns the offset actually applied.
func (e *Editor) DragTo(offset mgl32.Vec3, axes snap.Axes) (mgl32.Vec3, error) {
	d := e.drag
	if d == nil {
		return mgl32.Vec3{}, fmt.Errorf("drag to: %w", ErrNotDragging)
	}

	final := axes.Constrain(offset)
	if corr, ok := e.snapCorrection(d, final, axes); ok {
		final = final.Add(corr)
	}

	step := final.Sub(d.applied)
	for _, id := range d.ids {
		e.items[e.index[id]].Position = d.start[id].Add(final)
	}
	e.table.UpdateSlotsForIDs(d.ids, step)
	d.applied = final
	return final, nil
}

func (e *Editor) snapCorrection(d *dragState, offset mgl32.Vec3, axes snap.Axes) (mgl32.Vec3, bool) {
	threshold := e.cfg.SnapThreshold
	if !e.cfg.SnapEnabled || threshold <= 0 || !axes.Any() {
		return mgl32.Vec3{}, false
	}

	proposed := make(map[uuid.UUID]mgl32.Vec3, len(d.ids))
	for _, id := range d.ids {
		proposed[id] = d.start[id].Add(offset)
	}
	moving := e.mergedOBB(d.ids, proposed)
	reach := moving.AABB().Expand(threshold)

	var best mgl32.Vec3
	found := false
	for _, it := range e.items {
		if _, ok := d.start[it.ID]; ok {
			continue
		}
		local := e.localBounds(it.Kind)
		m := it.Matrix()
		if !reach.Intersects(local.AABB(m)) {
			continue
		}
		corr, ok := snap.CalculateOBBSnapVector(moving, local.OBB(m), threshold)
		if !ok {
			continue
		}
		corr = axes.Constrain(corr)
		if corr.Len() <= snap.MinCorrection {
			continue
		}
		if !found || corr.Len() < best.Len() {
			best = corr
			found = true
		}
	}
	return best, found
}

func (e *Editor) EndDrag() error {
	if e.drag == nil {
		return fmt.Errorf("end drag: %w", ErrNotDragging)
	}
	e.drag = nil
	return nil
}

// CancelDrag puts the dragged items back where BeginDrag found them.
func (e *Editor) CancelDrag() error {
	d := e.drag
	if d == nil {
		return fmt.Errorf("cancel drag: %w", ErrNotDragging)
	}
	for _, id := range d.ids {
		e.items[e.index[id]].Position = d.start[id]
	}
	e.table.UpdateSlotsForIDs(d.ids, d.applied.Mul(-1))
	e.drag = nil
	return nil
}

// Flush hands pending slot changes to the uploader and reports whether the
// GPU buffer was recreated. Without an uploader it only clears the dirty
// range.
func (e *Editor) Flush() bool {
	if e.uploader == nil {
		e.table.ClearDirty()
		return false
	}
	return e.uploader.Upload(e.table)
}
