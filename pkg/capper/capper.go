package capper

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Faultbox/heightmesh/pkg/earcut"
	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// TopologyKind classifies a TopologyError.
type TopologyKind int

// Topology error kinds.
const (
	// KindBranch means a vertex had a number of unused edges the walk
	// cannot resolve.
	KindBranch TopologyKind = iota
	// KindIncomplete means no ordering policy consumed every edge.
	KindIncomplete
	// KindDegenerate means a loop encloses zero area.
	KindDegenerate
	// KindOrphanHole means a hole lies outside every outer boundary.
	KindOrphanHole
)

// String returns the kind name.
func (k TopologyKind) String() string {
	switch k {
	case KindBranch:
		return "branch"
	case KindIncomplete:
		return "incomplete"
	case KindDegenerate:
		return "degenerate"
	case KindOrphanHole:
		return "orphan hole"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// TopologyError reports a bottom boundary that cannot be capped.
type TopologyError struct {
	Kind     TopologyKind
	Vertex   uint32 // vertex where the problem was found
	Expected int
	Produced int
}

func (e *TopologyError) Error() string {
	switch e.Kind {
	case KindBranch:
		return fmt.Sprintf("bottom boundary branches at vertex %d: %d unused edges, expected 1 or %d",
			e.Vertex, e.Produced, e.Expected)
	case KindIncomplete:
		return fmt.Sprintf("bottom boundary near vertex %d cannot be ordered: %d edges, longest walk %d",
			e.Vertex, e.Expected, e.Produced)
	case KindDegenerate:
		return fmt.Sprintf("bottom loop through vertex %d has zero area", e.Vertex)
	case KindOrphanHole:
		return fmt.Sprintf("hole through vertex %d is not inside any outer boundary", e.Vertex)
	default:
		return fmt.Sprintf("bottom boundary topology error at vertex %d", e.Vertex)
	}
}

// Loop is one closed bottom boundary. Vertices are ordered so the solid
// lies on the left; Area is the signed XY area.
type Loop struct {
	Vertices []uint32
	Area     float64
}

// Outer reports whether the loop bounds material rather than a hole.
func (l Loop) Outer() bool {
	return l.Area > 0
}

// Region is an outer loop together with the holes it contains.
type Region struct {
	Outer Loop
	Holes []Loop
}

// orient reverses nodes in place when most consecutive pairs run against
// the direction of the edges they were built from.
func orient(nodes []uint32, edges []Edge) {
	forward, backward := countDirections(nodes, edges)
	if backward > forward {
		slices.Reverse(nodes)
	}
}

func signedArea(points []math.Vec3, ids []uint32) float64 {
	var sum float64
	for i, j := 0, len(ids)-1; i < len(ids); j, i = i, i+1 {
		a, b := points[ids[j]], points[ids[i]]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	return sum / 2
}

// contains is a ray crossing test of p against the polygon ids.
func contains(points []math.Vec3, ids []uint32, p math.Vec2) bool {
	px, py := float64(p.X), float64(p.Y)
	inside := false
	for i, j := 0, len(ids)-1; i < len(ids); j, i = i, i+1 {
		a, b := points[ids[i]], points[ids[j]]
		ax, ay := float64(a.X), float64(a.Y)
		bx, by := float64(b.X), float64(b.Y)
		if (ay > py) != (by > py) && px < (bx-ax)*(py-ay)/(by-ay)+ax {
			inside = !inside
		}
	}
	return inside
}

// reflexTurn reports whether the closed sequence turns right at index k,
// away from the solid on its left.
func reflexTurn(points []math.Vec3, seq []uint32, k int) bool {
	n := len(seq)
	a, b, c := seq[(k+n-1)%n], seq[k], seq[(k+1)%n]
	return direction(points, a, b).Cross(direction(points, b, c)) < 0
}

// reflexRepeat finds two visits i < j of the same vertex that both turn
// right. The walk crossed over from one face to another there.
func reflexRepeat(points []math.Vec3, seq []uint32) (int, int, bool) {
	seen := make(map[uint32]int)
	for k, v := range seq {
		if !reflexTurn(points, seq, k) {
			continue
		}
		if i, ok := seen[v]; ok {
			return i, k, true
		}
		seen[v] = k
	}
	return 0, 0, false
}

// splitPinches cuts an oriented sequence at every pinch the walk crossed
// over, leaving one loop per face boundary. Visits that wrap around the
// solid at a pinch are kept in one loop.
func splitPinches(points []math.Vec3, nodes []uint32) [][]uint32 {
	var pieces [][]uint32
	work := [][]uint32{nodes}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		i, j, ok := reflexRepeat(points, cur)
		if !ok {
			pieces = append(pieces, cur)
			continue
		}
		inner := slices.Clone(cur[i:j])
		rest := append(slices.Clone(cur[j:]), cur[:i]...)
		work = append(work, rest, inner)
	}
	return pieces
}

// midpoint returns the XY midpoint of the first edge of the loop. Unlike a
// vertex it cannot sit on a point where the loop touches another.
func midpoint(points []math.Vec3, l Loop) math.Vec2 {
	a := points[l.Vertices[0]].XY()
	b := points[l.Vertices[1%len(l.Vertices)]].XY()
	return a.Add(b).Scale(0.5)
}

// Analyze extracts the bottom boundary of the mesh and groups its loops
// into regions, each an outer boundary with its holes. Where two faces of
// the bottom touch at a single vertex, each gets a loop of its own.
func Analyze(points []math.Vec3, triangles []mesh.Triangle) ([]Region, error) {
	edges := BottomEdges(points, triangles)

	var outers, holes []Loop
	for _, comp := range Components(edges) {
		nodes, err := SortEdges(comp, points)
		if err != nil {
			return nil, err
		}
		orient(nodes, comp)

		for _, piece := range splitPinches(points, nodes) {
			loop := Loop{Vertices: piece, Area: signedArea(points, piece)}
			switch {
			case loop.Area > 0:
				outers = append(outers, loop)
			case loop.Area < 0:
				holes = append(holes, loop)
			default:
				return nil, &TopologyError{Kind: KindDegenerate, Vertex: piece[0]}
			}
		}
	}

	// Smallest outer first, so the first container found is the tightest.
	order := make([]int, len(outers))
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(i, j int) bool {
		return outers[order[i]].Area < outers[order[j]].Area
	})

	regions := make([]Region, len(outers))
	for k, o := range outers {
		regions[k].Outer = o
	}
	for _, h := range holes {
		at := midpoint(points, h)
		owner := -1
		for _, k := range order {
			if contains(points, outers[k].Vertices, at) {
				owner = k
				break
			}
		}
		if owner < 0 {
			return nil, &TopologyError{Kind: KindOrphanHole, Vertex: h.Vertices[0]}
		}
		regions[owner].Holes = append(regions[owner].Holes, h)
	}
	return regions, nil
}

// Triangulate fills one region and returns downward facing triangles.
func (r Region) Triangulate(points []math.Vec3) ([]mesh.Triangle, error) {
	ids := slices.Clone(r.Outer.Vertices)
	outer := project(points, r.Outer.Vertices)
	holes := make([][]earcut.Point, len(r.Holes))
	for k, h := range r.Holes {
		holes[k] = project(points, h.Vertices)
		ids = append(ids, h.Vertices...)
	}

	indices, err := earcut.Triangulate(outer, holes...)
	if err != nil {
		return nil, fmt.Errorf("capping loop at vertex %d: %w", r.Outer.Vertices[0], err)
	}

	tris := make([]mesh.Triangle, 0, len(indices)/3)
	for k := 0; k+2 < len(indices); k += 3 {
		a, b, c := ids[indices[k]], ids[indices[k+1]], ids[indices[k+2]]
		// Counter-clockwise from above; swap to face down.
		tris = append(tris, mesh.Triangle{a, c, b})
	}
	return tris, nil
}

func project(points []math.Vec3, ids []uint32) []earcut.Point {
	ring := make([]earcut.Point, len(ids))
	for k, id := range ids {
		p := points[id]
		ring[k] = earcut.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return ring
}

// Cap returns the triangles that close the open bottom of the mesh. The
// mesh must not carry its own bottom facets; see mesh.TrimBottom.
func Cap(points []math.Vec3, triangles []mesh.Triangle) ([]mesh.Triangle, error) {
	regions, err := Analyze(points, triangles)
	if err != nil {
		return nil, err
	}

	var out []mesh.Triangle
	for _, r := range regions {
		tris, err := r.Triangulate(points)
		if err != nil {
			return nil, err
		}
		out = append(out, tris...)
	}
	return out, nil
}
