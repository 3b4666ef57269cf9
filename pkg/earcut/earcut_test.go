package earcut

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func concat(outer []Point, holes ...[]Point) []Point {
	all := append([]Point(nil), outer...)
	for _, h := range holes {
		all = append(all, h...)
	}
	return all
}

// checkTriangles asserts that every triangle is counter-clockwise and
// returns the total area.
func checkTriangles(t *testing.T, pts []Point, indices []int) float64 {
	t.Helper()
	require.Zero(t, len(indices)%3, "index count must be a multiple of 3")

	var total float64
	for k := 0; k < len(indices); k += 3 {
		a, b, c := pts[indices[k]], pts[indices[k+1]], pts[indices[k+2]]
		area := SignedArea([]Point{a, b, c})
		assert.GreaterOrEqual(t, area, 0.0, "triangle %d is clockwise", k/3)
		total += area
	}
	return total
}

// checkConforming asserts that the triangles share interior edges in
// opposite directions and use each ring edge exactly once, so no vertex
// sits in the middle of another triangle's edge.
func checkConforming(t *testing.T, ring []int, indices []int) {
	t.Helper()
	directed := make(map[[2]int]int)
	for k := 0; k < len(indices); k += 3 {
		for e := 0; e < 3; e++ {
			directed[[2]int{indices[k+e], indices[k+(e+1)%3]}]++
		}
	}
	boundary := make(map[[2]int]bool)
	for i := range ring {
		e := [2]int{ring[i], ring[(i+1)%len(ring)]}
		boundary[e] = true
		assert.Equal(t, 1, directed[e], "ring edge %v", e)
	}
	for e, n := range directed {
		if boundary[e] {
			continue
		}
		assert.Equal(t, n, directed[[2]int{e[1], e[0]}], "interior edge %v is unpaired", e)
	}
}

func regularPolygon(n int, r float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pts
}

func TestTriangulate_Triangle(t *testing.T) {
	pts := []Point{{0, 0}, {1, 0}, {0, 1}}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3)
	assert.InDelta(t, 0.5, checkTriangles(t, pts, indices), 1e-12)
}

func TestTriangulate_ConvexPolygon(t *testing.T) {
	for _, n := range []int{4, 5, 12, 64} {
		pts := regularPolygon(n, 10)

		indices, err := Triangulate(pts)
		require.NoError(t, err, "n=%d", n)
		assert.Len(t, indices, 3*(n-2), "n=%d", n)
		assert.InDelta(t, SignedArea(pts), checkTriangles(t, pts, indices), 1e-9, "n=%d", n)
	}
}

func TestTriangulate_ClockwiseInput(t *testing.T) {
	pts := []Point{{0, 0}, {0, 2}, {3, 2}, {3, 0}}
	require.Less(t, SignedArea(pts), 0.0)

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 6)
	assert.InDelta(t, 6, checkTriangles(t, pts, indices), 1e-12)
}

func TestTriangulate_KeepsCollinearVertices(t *testing.T) {
	// Outline of a 3x2 block of unit cells, one vertex per cell corner.
	pts := []Point{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{3, 1}, {3, 2},
		{2, 2}, {1, 2}, {0, 2},
		{0, 1},
	}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3*(len(pts)-2))
	assert.InDelta(t, 6, checkTriangles(t, pts, indices), 1e-12)

	used := make(map[int]bool)
	for _, i := range indices {
		used[i] = true
	}
	assert.Len(t, used, len(pts), "every vertex must be used")

	ring := make([]int, len(pts))
	for i := range ring {
		ring[i] = i
	}
	checkConforming(t, ring, indices)
}

func TestTriangulate_Concave(t *testing.T) {
	// A comb with three teeth.
	pts := []Point{
		{0, 0}, {5, 0}, {5, 3}, {4, 3}, {4, 1}, {3, 1}, {3, 3},
		{2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3},
	}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3*(len(pts)-2))
	assert.InDelta(t, SignedArea(pts), checkTriangles(t, pts, indices), 1e-12)
}

func TestTriangulate_TouchingLobes(t *testing.T) {
	// An L and a two cell bar meeting at (2,1), walked as one ring that
	// turns away from the interior at both visits of the shared corner.
	pts := []Point{
		{0, 0}, {1, 0}, {2, 0}, {2, 1}, {3, 1}, {4, 1}, {4, 2},
		{3, 2}, {2, 2}, {2, 1}, {1, 1}, {1, 2}, {0, 2}, {0, 1},
	}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3*10)
	assert.InDelta(t, 5, checkTriangles(t, pts, indices), 1e-12)
	for k := 0; k < len(indices); k += 3 {
		tri := []Point{pts[indices[k]], pts[indices[k+1]], pts[indices[k+2]]}
		assert.Greater(t, SignedArea(tri), 0.0, "triangle %d is flat", k/3)
	}
}

func TestTriangulate_HoleTouchingOuter(t *testing.T) {
	// A 3x3 block missing its centre and one corner cell, which touch at
	// (2,2). The ring wraps round the solid at both visits.
	pts := []Point{
		{0, 0}, {1, 0}, {2, 0}, {3, 0}, {3, 1}, {3, 2}, {2, 2}, {2, 1},
		{1, 1}, {1, 2}, {2, 2}, {2, 3}, {1, 3}, {0, 3}, {0, 2}, {0, 1},
	}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3*(len(pts)-2))
	assert.InDelta(t, 7, checkTriangles(t, pts, indices), 1e-12)
}

func TestDropDegenerate(t *testing.T) {
	// A zero-width spike up to (1,3) on top of a square.
	ring := []Point{{0, 0}, {2, 0}, {2, 2}, {1, 2}, {1, 3}, {1, 2}, {0, 2}}
	tr := &triangulator{}
	start := tr.linkRing(ring, 0, true)
	require.NotNil(t, start)

	p := dropDegenerate(start)
	assert.Equal(t, 5, ringLen(p))
	for q := p; ; q = q.next {
		assert.NotEqual(t, 4, q.i, "spike tip survived")
		if q.next == p {
			break
		}
	}
}

func TestIsValidDiagonal(t *testing.T) {
	pts := []Point{
		{0, 0}, {1, 0}, {2, 0}, {2, 1}, {3, 1}, {4, 1}, {4, 2},
		{3, 2}, {2, 2}, {2, 1}, {1, 1}, {1, 2}, {0, 2}, {0, 1},
	}
	tr := &triangulator{}
	last := tr.linkRing(pts, 0, true)
	byIndex := make(map[int]*node)
	for p := last.next; ; p = p.next {
		byIndex[p.i] = p
		if p == last {
			break
		}
	}

	assert.True(t, isValidDiagonal(byIndex[3], byIndex[9]), "copies of the shared corner")
	assert.False(t, isValidDiagonal(byIndex[2], byIndex[4]), "runs outside the ring")
	assert.True(t, isValidDiagonal(byIndex[0], byIndex[10]))
}

func TestTriangulate_Hole(t *testing.T) {
	outer := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	hole := []Point{{4, 4}, {6, 4}, {6, 6}, {4, 6}}
	pts := concat(outer, hole)

	indices, err := Triangulate(outer, hole)
	require.NoError(t, err)
	// 8 ring vertices plus two bridge copies
	assert.Len(t, indices, 3*8)
	assert.InDelta(t, 96, checkTriangles(t, pts, indices), 1e-9)

	used := make(map[int]bool)
	for _, i := range indices {
		used[i] = true
	}
	assert.Len(t, used, 8)
}

func TestTriangulate_TwoHoles(t *testing.T) {
	outer := []Point{{0, 0}, {20, 0}, {20, 10}, {0, 10}}
	left := []Point{{2, 2}, {2, 8}, {8, 8}, {8, 2}}
	right := []Point{{12, 2}, {18, 2}, {18, 8}, {12, 8}}
	pts := concat(outer, left, right)

	indices, err := Triangulate(outer, left, right)
	require.NoError(t, err)
	assert.InDelta(t, 200-36-36, checkTriangles(t, pts, indices), 1e-9)
}

func TestTriangulate_Hashed(t *testing.T) {
	// A star with alternating radii is concave and large enough to use
	// z-order hashing.
	const n = 120
	pts := make([]Point, n)
	for i := range pts {
		r := 10.0
		if i%2 == 1 {
			r = 6
		}
		a := 2 * math.Pi * float64(i) / n
		pts[i] = Point{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}

	indices, err := Triangulate(pts)
	require.NoError(t, err)
	assert.Len(t, indices, 3*(n-2))
	assert.InDelta(t, SignedArea(pts), checkTriangles(t, pts, indices), 1e-6)
}

func TestTriangulate_HashedWithHole(t *testing.T) {
	outer := regularPolygon(100, 50)
	hole := regularPolygon(40, 10)
	pts := concat(outer, hole)

	indices, err := Triangulate(outer, hole)
	require.NoError(t, err)
	want := SignedArea(outer) - SignedArea(hole)
	assert.InDelta(t, want, checkTriangles(t, pts, indices), 1e-6)
}

func TestTriangulate_Errors(t *testing.T) {
	_, err := Triangulate([]Point{{0, 0}, {1, 1}})
	assert.ErrorIs(t, err, ErrDegenerate)

	square := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	_, err = Triangulate(square, []Point{{5, 5}, {6, 5}, {6, 6}})
	assert.ErrorIs(t, err, ErrDegenerate, "hole outside the outer ring")

	_, err = Triangulate(square, []Point{{0.2, 0.2}, {0.4, 0.2}})
	assert.ErrorIs(t, err, ErrDegenerate, "two-vertex hole")
}

func TestSignedArea(t *testing.T) {
	ccw := []Point{{0, 0}, {4, 0}, {4, 3}, {0, 3}}
	assert.Equal(t, 12.0, SignedArea(ccw))

	cw := []Point{{0, 0}, {0, 3}, {4, 3}, {4, 0}}
	assert.Equal(t, -12.0, SignedArea(cw))
}
