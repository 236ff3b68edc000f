package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/placer/rt/bounds"
)

func TestBoxOutline(t *testing.T) {
	box := bounds.Extents{Width: 2, Height: 4, Depth: 6}.LocalBox()
	verts := BoxOutline(box)
	require.Len(t, verts, 24)

	perAxis := [3]int{}
	seen := map[[2]mgl32.Vec3]bool{}
	for i := 0; i < len(verts); i += 2 {
		a, b := verts[i], verts[i+1]
		d := b.Sub(a)

		changed := 0
		for axis := 0; axis < 3; axis++ {
			if d[axis] != 0 {
				changed++
				perAxis[axis]++
				assert.Equal(t, box.Size()[axis], d[axis]*sign(d[axis]))
			}
		}
		assert.Equal(t, 1, changed, "edge %v-%v is not axis aligned", a, b)

		assert.False(t, seen[[2]mgl32.Vec3{a, b}] || seen[[2]mgl32.Vec3{b, a}], "edge repeated")
		seen[[2]mgl32.Vec3{a, b}] = true
	}
	assert.Equal(t, [3]int{4, 4, 4}, perAxis)
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
