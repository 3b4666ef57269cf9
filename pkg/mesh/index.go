package mesh

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/heightmesh/pkg/math"
)

// vertexKey is the bit pattern of a vertex. Keying on bits keeps equality
// exact and lets the map hash all three coordinates together.
type vertexKey [3]uint32

func keyOf(v math.Vec3) vertexKey {
	return vertexKey{
		stdmath.Float32bits(v.X),
		stdmath.Float32bits(v.Y),
		stdmath.Float32bits(v.Z),
	}
}

// VertexIndex assigns stable, sequential ids to distinct vertices.
// Ids are handed out in first-seen order and never change.
type VertexIndex struct {
	points []math.Vec3
	ids    map[vertexKey]uint32
}

// NewVertexIndex returns an empty index.
func NewVertexIndex() *VertexIndex {
	return &VertexIndex{ids: make(map[vertexKey]uint32)}
}

// Intern returns the id of v, adding it if it has not been seen before.
func (x *VertexIndex) Intern(v math.Vec3) (uint32, error) {
	k := keyOf(v)
	if id, ok := x.ids[k]; ok {
		return id, nil
	}
	if uint64(len(x.points)) >= MaxCount {
		return 0, fmt.Errorf("%w: more than %d vertices", ErrCapacityExceeded, uint64(MaxCount))
	}
	id := uint32(len(x.points))
	x.ids[k] = id
	x.points = append(x.points, v)
	return id, nil
}

// Lookup returns the id of v without adding it.
func (x *VertexIndex) Lookup(v math.Vec3) (uint32, bool) {
	id, ok := x.ids[keyOf(v)]
	return id, ok
}

// Len returns the number of distinct vertices.
func (x *VertexIndex) Len() int {
	return len(x.points)
}

// Points returns the vertices in insertion order. The slice is shared with
// the index and must not be modified while the index is still in use.
func (x *VertexIndex) Points() []math.Vec3 {
	return x.points
}
