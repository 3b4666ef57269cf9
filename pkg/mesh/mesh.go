// Package mesh holds indexed triangle meshes and the vertex index used to
// build them without duplicate vertices.
package mesh

import (
	"errors"
	"fmt"
	stdmath "math"

	"github.com/Faultbox/heightmesh/pkg/math"
)

// MaxCount is the largest number of vertices or triangles a mesh may hold.
// Binary STL stores the triangle count in a u32 and PLY indices are u32.
const MaxCount = stdmath.MaxUint32

// ErrCapacityExceeded is returned when a mesh would exceed MaxCount vertices
// or triangles.
var ErrCapacityExceeded = errors.New("mesh capacity exceeded")

// Triangle is an ordered triple of vertex ids. Vertices appear
// counter-clockwise when seen from outside the solid.
type Triangle [3]uint32

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Points    []math.Vec3
	Triangles []Triangle
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Points)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Triangles) == 0
}

// Append adds triangles to the mesh after validating their vertex ids.
func (m *Mesh) Append(tris ...Triangle) error {
	if uint64(len(m.Triangles))+uint64(len(tris)) > MaxCount {
		return fmt.Errorf("%w: %d triangles", ErrCapacityExceeded, uint64(len(m.Triangles))+uint64(len(tris)))
	}
	for i, t := range tris {
		for _, id := range t {
			if int64(id) >= int64(len(m.Points)) {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, id, len(m.Points))
			}
		}
	}
	m.Triangles = append(m.Triangles, tris...)
	return nil
}

// Bounds returns the axis-aligned bounding box of all points.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.Points) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		lo = math.Vec3{X: min(lo.X, p.X), Y: min(lo.Y, p.Y), Z: min(lo.Z, p.Z)}
		hi = math.Vec3{X: max(hi.X, p.X), Y: max(hi.Y, p.Y), Z: max(hi.Z, p.Z)}
	}
	return lo, hi
}
