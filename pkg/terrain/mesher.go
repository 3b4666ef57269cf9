package terrain

import (
	"fmt"

	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// builder interns vertices and records triangles. The first error sticks
// and turns every later call into a no-op.
type builder struct {
	index *mesh.VertexIndex
	tris  []mesh.Triangle
	err   error
}

func (b *builder) triangle(p, q, r math.Vec3) {
	if b.err != nil {
		return
	}
	if uint64(len(b.tris)) >= mesh.MaxCount {
		b.err = fmt.Errorf("%w: more than %d triangles", mesh.ErrCapacityExceeded, uint64(mesh.MaxCount))
		return
	}
	var t mesh.Triangle
	for i, v := range [3]math.Vec3{p, q, r} {
		id, err := b.index.Intern(v)
		if err != nil {
			b.err = err
			return
		}
		t[i] = id
	}
	b.tris = append(b.tris, t)
}

// quad emits the two triangles of the quad v1 v2 v3 v4, split along v2-v4.
func (b *builder) quad(v1, v2, v3, v4 math.Vec3) {
	b.triangle(v4, v2, v1)
	b.triangle(v4, v3, v2)
}

// wall emits the vertical quad below the edge from->to down to Z=0.
func (b *builder) wall(from, to math.Vec3) {
	from0, to0 := from, to
	from0.Z, to0.Z = 0, 0
	b.triangle(from, to, to0)
	b.triangle(to0, from0, from)
}

// mesher carries the per-run state shared by every cell.
type mesher struct {
	hm    *formats.Heightmap
	scale Scale
}

// cornerZ averages the scaled elevations of the up to four cells around
// grid corner (cx, cy). Cells are visited in row-major order of the 2x2
// block so every cell touching the corner computes the same bits.
func (m *mesher) cornerZ(cx, cy int) float32 {
	var sum float32
	n := 0
	for _, c := range [4][2]int{{cx - 1, cy - 1}, {cx, cy - 1}, {cx - 1, cy}, {cx, cy}} {
		v := m.hm.At(c[0], c[1])
		if formats.IsMasked(v) {
			continue
		}
		sum += m.scale.Elevation(v)
		n++
	}
	if n == 0 {
		panic(fmt.Sprintf("terrain: corner (%d,%d) has no unmasked cell", cx, cy))
	}
	return sum / float32(n)
}

// corner returns the output vertex at grid corner (cx, cy). Grid Y grows
// downward, output Y grows upward.
func (m *mesher) corner(cx, cy int) math.Vec3 {
	return math.Vec3{
		X: (float32(cx) - 0.5) * m.scale.XY,
		Y: (float32(m.hm.Height) - (float32(cy) - 0.5)) * m.scale.XY,
		Z: m.cornerZ(cx, cy),
	}
}

// BuildMesh meshes every unmasked cell of hm. With scale.GenerateBase the
// result is a closed solid; otherwise only the upper surface is produced.
// progress, if not nil, is called after each row.
func BuildMesh(hm *formats.Heightmap, scale Scale, progress func()) (*mesh.Mesh, error) {
	if len(hm.Data) != int(hm.Width)*int(hm.Height) {
		return nil, fmt.Errorf("%w: %dx%d with %d samples", formats.ErrInvalidDimensions, hm.Width, hm.Height, len(hm.Data))
	}

	m := &mesher{hm: hm, scale: scale}
	b := &builder{index: mesh.NewVertexIndex()}
	w, h := int(hm.Width), int(hm.Height)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if hm.Masked(x, y) {
				continue
			}

			//  1---2
			//  | / |   cell (x, y), corners offset half a unit
			//  4---3
			v1 := m.corner(x, y)
			v2 := m.corner(x+1, y)
			v3 := m.corner(x+1, y+1)
			v4 := m.corner(x, y+1)

			b.quad(v1, v2, v3, v4)
			if !scale.GenerateBase {
				continue
			}

			// Masked() is true off the grid, so image borders get walls too.
			if hm.Masked(x, y-1) {
				b.wall(v1, v2)
			}
			if hm.Masked(x+1, y) {
				b.wall(v2, v3)
			}
			if hm.Masked(x, y+1) {
				b.wall(v3, v4)
			}
			if hm.Masked(x-1, y) {
				b.wall(v4, v1)
			}

			v1.Z, v2.Z, v3.Z, v4.Z = 0, 0, 0, 0
			b.quad(v4, v3, v2, v1)
		}
		if b.err != nil {
			return nil, b.err
		}
		if progress != nil {
			progress()
		}
	}

	return &mesh.Mesh{Points: b.index.Points(), Triangles: b.tris}, nil
}
