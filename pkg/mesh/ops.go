package mesh

import (
	"errors"
	"fmt"
)

// ErrEmptyExtent is returned when a mesh has no XY extent to scale.
var ErrEmptyExtent = errors.New("mesh has zero XY extent")

// TrimBottom removes every triangle whose three vertices lie at Z == 0 and
// returns how many were removed. Points are left untouched.
func (m *Mesh) TrimBottom() int {
	kept := m.Triangles[:0]
	for _, t := range m.Triangles {
		if m.Points[t[0]].Z == 0 && m.Points[t[1]].Z == 0 && m.Points[t[2]].Z == 0 {
			continue
		}
		kept = append(kept, t)
	}
	removed := len(m.Triangles) - len(kept)
	m.Triangles = kept
	return removed
}

// ScaleToFit scales the mesh uniformly so that its larger XY extent equals
// size. It returns the factor that was applied.
func (m *Mesh) ScaleToFit(size float32) (float32, error) {
	if size <= 0 {
		return 0, fmt.Errorf("target size must be positive, got %v", size)
	}
	lo, hi := m.Bounds()
	extent := max(hi.X-lo.X, hi.Y-lo.Y)
	if extent == 0 {
		return 0, ErrEmptyExtent
	}

	factor := size / extent
	for i := range m.Points {
		m.Points[i] = m.Points[i].Scale(factor)
	}
	return factor, nil
}

// Compact drops vertices no triangle references and renumbers the
// triangles. Surviving vertices keep their relative order.
func (m *Mesh) Compact() int {
	const unused = ^uint32(0)

	remap := make([]uint32, len(m.Points))
	for i := range remap {
		remap[i] = unused
	}
	for _, t := range m.Triangles {
		for _, id := range t {
			remap[id] = 0
		}
	}

	next := uint32(0)
	points := m.Points[:0]
	for i, p := range m.Points {
		if remap[i] == unused {
			continue
		}
		remap[i] = next
		next++
		points = append(points, p)
	}
	dropped := len(m.Points) - len(points)
	m.Points = points

	for i, t := range m.Triangles {
		m.Triangles[i] = Triangle{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	return dropped
}

// EdgeStats summarises how triangle edges are shared.
type EdgeStats struct {
	Edges       int // distinct undirected edges
	Boundary    int // edges used by a single triangle
	NonManifold int // edges used by three or more triangles
	Misoriented int // directed edges used twice in the same direction
	Unbalanced  int // edges traversed a different number of times in each direction
}

// Watertight reports whether every edge is shared by exactly two
// consistently oriented triangles.
func (s EdgeStats) Watertight() bool {
	return s.Boundary == 0 && s.NonManifold == 0 && s.Misoriented == 0
}

// Closed reports whether every edge is traversed equally often in both
// directions. Unlike Watertight it accepts pinch edges shared by two
// sheets of the surface.
func (s EdgeStats) Closed() bool {
	return s.Unbalanced == 0
}

// EdgeStats counts edge usage over all triangles.
func (m *Mesh) EdgeStats() EdgeStats {
	undirected := make(map[[2]uint32]int)
	directed := make(map[[2]uint32]int)
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			a, b := t[k], t[(k+1)%3]
			directed[[2]uint32{a, b}]++
			if a > b {
				a, b = b, a
			}
			undirected[[2]uint32{a, b}]++
		}
	}

	var s EdgeStats
	s.Edges = len(undirected)
	for _, n := range undirected {
		switch {
		case n == 1:
			s.Boundary++
		case n > 2:
			s.NonManifold++
		}
	}
	for e, n := range directed {
		if n > 1 {
			s.Misoriented++
		}
		if e[0] < e[1] && directed[[2]uint32{e[1], e[0]}] != n {
			s.Unbalanced++
		}
		if e[0] > e[1] && directed[[2]uint32{e[1], e[0]}] == 0 {
			s.Unbalanced++
		}
	}
	return s
}
