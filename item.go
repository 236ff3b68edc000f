package placer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/placer/rt/core"
	"github.com/gekko3d/placer/rt/instance"
)

// Item is one placed object in the editor.
type Item struct {
	ID       uuid.UUID  `json:"id"`
	Kind     string     `json:"kind"`
	Position mgl32.Vec3 `json:"position"`
	Rotation mgl32.Vec3 `json:"rotation"` // Euler degrees
	Scale    mgl32.Vec3 `json:"scale"`
	GroupID  int        `json:"group,omitempty"`
}

func NewItem(kind string, pos mgl32.Vec3) Item {
	return Item{
		ID:       uuid.New(),
		Kind:     kind,
		Position: pos,
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (it Item) Matrix() mgl32.Mat4 {
	return core.Compose(it.Position, core.EulerToQuat(it.Rotation), it.Scale)
}

func (it Item) Object() instance.Object {
	return instance.Object{
		ID:       it.ID,
		Position: it.Position,
		Rotation: it.Rotation,
		Scale:    it.Scale,
		GroupID:  it.GroupID,
	}
}

func objects(items []Item) []instance.Object {
	out := make([]instance.Object, len(items))
	for i := range items {
		out[i] = items[i].Object()
	}
	return out
}
