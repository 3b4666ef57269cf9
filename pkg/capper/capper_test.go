package capper

import (
	"errors"
	stdmath "math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
	"github.com/Faultbox/heightmesh/pkg/terrain"
)

var nan = float32(stdmath.NaN())

// buildSolid meshes rows with a base and strips the per-cell bottom facets,
// leaving the bottom open for the capper.
func buildSolid(t *testing.T, rows [][]float32) *mesh.Mesh {
	t.Helper()
	hm := formats.NewHeightmap(uint32(len(rows[0])), uint32(len(rows)))
	for y, row := range rows {
		for x, v := range row {
			hm.Set(x, y, v)
		}
	}
	hm.Scan()

	scale, err := terrain.ComputeScale(terrain.Settings{ZScale: 1, GenerateBase: true}, hm)
	require.NoError(t, err)
	m, err := terrain.BuildMesh(hm, scale, nil)
	require.NoError(t, err)
	m.TrimBottom()
	return m
}

// maskRows turns a picture of the grid into heights, one row per string.
// '#' is a valid cell and anything else is missing.
func maskRows(rows ...string) [][]float32 {
	out := make([][]float32, len(rows))
	for y, row := range rows {
		out[y] = make([]float32, len(row))
		for x, c := range row {
			out[y][x] = nan
			if c == '#' {
				out[y][x] = float32(1 + x + y)
			}
		}
	}
	return out
}

// capSolid caps m in place and returns the number of cap triangles.
func capSolid(t *testing.T, m *mesh.Mesh) int {
	t.Helper()
	tris, err := Cap(m.Points, m.Triangles)
	require.NoError(t, err)
	require.NoError(t, m.Append(tris...))
	for _, tri := range tris {
		n := math.TriangleNormal(m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]])
		assert.Less(t, n.Z, float32(0), "cap triangle %v faces up", tri)
	}
	return len(tris)
}

// edgeTriangles builds one triangle per directed edge, with the apex
// raised off the z=0 plane, so that BottomEdges returns exactly edges.
func edgeTriangles(pts []math.Vec3, edges []Edge) ([]math.Vec3, []mesh.Triangle) {
	apex := uint32(len(pts))
	pts = append(pts, math.Vec3{Z: 1})
	tris := make([]mesh.Triangle, len(edges))
	for k, e := range edges {
		tris[k] = mesh.Triangle{e.A, e.B, apex}
	}
	return pts, tris
}

// covers asserts that the closed sequence nodes walks exactly the edges,
// ignoring direction.
func covers(t *testing.T, nodes []uint32, edges []Edge) {
	t.Helper()
	require.Len(t, nodes, len(edges))
	want := make(map[Edge]int)
	for _, e := range edges {
		if e.A > e.B {
			e = e.Reverse()
		}
		want[e]++
	}
	for k, a := range nodes {
		e := Edge{A: a, B: nodes[(k+1)%len(nodes)]}
		if e.A > e.B {
			e = e.Reverse()
		}
		want[e]--
	}
	for e, n := range want {
		assert.Zero(t, n, "edge %v", e)
	}
}

func TestBottomEdges(t *testing.T) {
	pts := []math.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 1},
		{X: 1, Y: 1, Z: 0},
	}
	tris := []mesh.Triangle{
		{0, 1, 2}, // zero at 0,1
		{2, 0, 1}, // zero at 1,2
		{1, 2, 0}, // zero at 0,2: winding runs 0 -> 1
		{0, 1, 3}, // all zero
		{2, 2, 0}, // one zero
	}

	edges := BottomEdges(pts, tris)
	want := []Edge{{0, 1}, {0, 1}, {0, 1}}
	assert.Equal(t, want, edges)
}

func TestComponents(t *testing.T) {
	edges := []Edge{{0, 1}, {10, 11}, {1, 2}, {11, 12}, {2, 0}, {12, 10}}

	groups := Components(edges)
	require.Len(t, groups, 2)
	assert.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 0}}, groups[0])
	assert.Equal(t, []Edge{{10, 11}, {11, 12}, {12, 10}}, groups[1])
}

func TestSortEdges_Square(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	edges := []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 0}}

	nodes, err := SortEdges(edges, pts)
	require.NoError(t, err)
	covers(t, nodes, edges)
	assert.Equal(t, []uint32{0, 1, 2, 3}, nodes)
}

func TestSortEdges_ShuffledSquare(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	edges := []Edge{{2, 3}, {0, 1}, {3, 0}, {1, 2}}

	nodes, err := SortEdges(edges, pts)
	require.NoError(t, err)
	covers(t, nodes, edges)
}

func TestSortEdges_FigureEight(t *testing.T) {
	// Two unit squares touching at the origin, both counter-clockwise.
	pts := []math.Vec3{
		{X: 0, Y: 0},
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: -1, Y: 0},
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}
	edges := []Edge{
		{1, 2}, {2, 0}, {0, 3}, {3, 1},
		{0, 4}, {4, 5}, {5, 6}, {6, 0},
	}

	nodes, err := SortEdges(edges, pts)
	require.NoError(t, err)
	covers(t, nodes, edges)

	visits := 0
	for _, v := range nodes {
		if v == 0 {
			visits++
		}
	}
	assert.Equal(t, 2, visits, "pinch vertex is visited once per lobe")

	f, b := countDirections(nodes, edges)
	assert.True(t, f == 0 || b == 0, "lobes must be walked the same way round")
}

func TestSortEdges_FollowsDirection(t *testing.T) {
	// A five cell ring closed by a single cell that touches it at two
	// corners. Walking against the winding strands half the boundary.
	m := buildSolid(t, maskRows(".##", "#.#", ".##"))

	edges := BottomEdges(m.Points, m.Triangles)
	require.Len(t, edges, 16)
	comps := Components(edges)
	require.Len(t, comps, 1)

	nodes, err := SortEdges(comps[0], m.Points)
	require.NoError(t, err)
	covers(t, nodes, edges)
	f, b := countDirections(nodes, edges)
	assert.Equal(t, 16, f)
	assert.Zero(t, b)
}

func TestSortEdges_SplicesSideLoops(t *testing.T) {
	// Two squares touching at the origin. Turning left at the pinch closes
	// the first square early; the second is spliced in at the pinch.
	pts := []math.Vec3{
		{X: 0, Y: 0},
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: -1, Y: 0},
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}
	edges := []Edge{
		{1, 2}, {2, 0}, {0, 3}, {3, 1},
		{0, 4}, {4, 5}, {5, 6}, {6, 0},
	}

	w := &walker{points: pts, policy: TurnLeft}
	nodes := w.circuit(edges)
	assert.Equal(t, []uint32{1, 2, 0, 4, 5, 6, 0, 3}, nodes)
}

func TestSortEdges_Branch(t *testing.T) {
	// A square with one diagonal: two vertices of degree three.
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	edges := []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {0, 2}}

	nodes, err := SortEdges(edges, pts)
	var te *TopologyError
	require.True(t, errors.As(err, &te), "expected *TopologyError, got %v", err)
	assert.Equal(t, KindIncomplete, te.Kind)
	assert.Equal(t, 5, te.Expected)
	assert.Equal(t, len(nodes), te.Produced)
	assert.Less(t, len(nodes), 5)
}

func TestSortEdges_Empty(t *testing.T) {
	nodes, err := SortEdges(nil, nil)
	assert.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestPinches(t *testing.T) {
	edges := []Edge{
		{1, 2}, {2, 0}, {0, 3}, {3, 1},
		{0, 4}, {4, 5}, {5, 6}, {6, 0},
	}
	assert.Equal(t, 1, pinches(edges))
	assert.Equal(t, 0, pinches(edges[:4]))
}

func TestBalanced(t *testing.T) {
	assert.True(t, balanced([]Edge{{0, 1}, {1, 2}, {2, 0}}))
	assert.False(t, balanced([]Edge{{0, 1}, {2, 1}, {2, 0}}))
}

func TestSplitPinches(t *testing.T) {
	// Both lobes of a figure eight, entered across the pinch.
	pts := []math.Vec3{
		{X: 0, Y: 0},
		{X: -1, Y: -1}, {X: 0, Y: -1}, {X: -1, Y: 0},
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}
	pieces := splitPinches(pts, []uint32{1, 2, 0, 4, 5, 6, 0, 3})
	require.Len(t, pieces, 2)
	assert.ElementsMatch(t, [][]uint32{{0, 4, 5, 6}, {0, 3, 1, 2}}, pieces)

	// A 3x3 block with a hole touching a notch at (2,2). The only closed
	// walk wraps round the solid at both visits, so nothing is cut.
	block := []math.Vec3{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0},
		{X: 3, Y: 1}, {X: 3, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 3},
		{X: 1, Y: 3}, {X: 0, Y: 3}, {X: 0, Y: 2}, {X: 0, Y: 1},
		{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 1},
	}
	ring := []uint32{0, 1, 2, 3, 4, 5, 6, 14, 12, 13, 6, 7, 8, 9, 10, 11}
	kept := splitPinches(block, ring)
	require.Len(t, kept, 1)
	assert.InDelta(t, 7, signedArea(block, kept[0]), 1e-9)
}

func TestAnalyze_Classification(t *testing.T) {
	m := buildSolid(t, [][]float32{
		{1, 2, 3},
		{4, nan, 6},
		{7, 8, 9},
	})

	regions, err := Analyze(m.Points, m.Triangles)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	r := regions[0]
	assert.True(t, r.Outer.Outer())
	assert.Len(t, r.Outer.Vertices, 12)
	assert.InDelta(t, 9, r.Outer.Area, 1e-9)
	require.Len(t, r.Holes, 1)
	assert.Len(t, r.Holes[0].Vertices, 4)
	assert.InDelta(t, -1, r.Holes[0].Area, 1e-9)
}

func TestAnalyze_OrphanHole(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	// Clockwise on its own: a hole with nothing around it.
	pts, tris := edgeTriangles(pts, []Edge{{0, 3}, {3, 2}, {2, 1}, {1, 0}})

	_, err := Analyze(pts, tris)
	var te *TopologyError
	require.True(t, errors.As(err, &te), "expected *TopologyError, got %v", err)
	assert.Equal(t, KindOrphanHole, te.Kind)
}

func TestAnalyze_Degenerate(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}}
	pts, tris := edgeTriangles(pts, []Edge{{0, 1}, {1, 0}})

	_, err := Analyze(pts, tris)
	var te *TopologyError
	require.True(t, errors.As(err, &te), "expected *TopologyError, got %v", err)
	assert.Equal(t, KindDegenerate, te.Kind)
}

func TestCap_FullGrid(t *testing.T) {
	m := buildSolid(t, [][]float32{
		{1, 2},
		{3, 4},
	})
	require.False(t, m.EdgeStats().Watertight(), "trimmed solid should be open")

	// 8 boundary vertices around the square, none dropped
	assert.Equal(t, 6, capSolid(t, m))
	stats := m.EdgeStats()
	assert.True(t, stats.Watertight(), "expected watertight mesh, got %+v", stats)
}

func TestCap_Hole(t *testing.T) {
	m := buildSolid(t, [][]float32{
		{1, 2, 3},
		{4, nan, 6},
		{7, 8, 9},
	})

	// 12 outer + 4 hole vertices + 2 bridge copies
	assert.Equal(t, 16, capSolid(t, m))
	stats := m.EdgeStats()
	assert.True(t, stats.Watertight(), "expected watertight mesh, got %+v", stats)
}

func TestCap_DiagonalPinch(t *testing.T) {
	m := buildSolid(t, [][]float32{
		{5, nan},
		{nan, 5},
	})

	capSolid(t, m)
	assert.Equal(t, 24, m.TriangleCount())
	stats := m.EdgeStats()
	assert.Zero(t, stats.Boundary)
	assert.True(t, stats.Closed(), "expected closed mesh, got %+v", stats)
}

func TestCap_DiagonalChain(t *testing.T) {
	// Three pinch points: the shared-neighbor policies go first.
	m := buildSolid(t, [][]float32{
		{2, nan, nan, nan},
		{nan, 3, nan, nan},
		{nan, nan, 4, nan},
		{nan, nan, nan, 5},
	})

	edges := BottomEdges(m.Points, m.Triangles)
	require.Equal(t, 3, pinches(edges))

	assert.Equal(t, 8, capSolid(t, m))
	stats := m.EdgeStats()
	assert.Zero(t, stats.Boundary)
	assert.True(t, stats.Closed(), "expected closed mesh, got %+v", stats)
}

func TestCap_TouchingCells(t *testing.T) {
	tests := []struct {
		name string
		mask []string
	}{
		{"bar touching column", []string{"##.", "..#", "..#"}},
		{"ring closed by a touching cell", []string{".##", "#.#", ".##"}},
		{"cup with a touching lid", []string{".#.", "#.#", "###"}},
		{"corner touching bar", []string{"#...", "##..", "..##"}},
		{"hole touching notch", []string{"###", "#.#", "##."}},
		{"holes touching each other", []string{"####", "#.##", "##.#", "####"}},
		{"checkerboard", []string{"#.#", ".#.", "#.#"}},
		{"staircase", []string{"#..", "##.", ".##"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := 0
			for _, row := range tt.mask {
				cells += strings.Count(row, "#")
			}

			m := buildSolid(t, maskRows(tt.mask...))
			tris, err := Cap(m.Points, m.Triangles)
			require.NoError(t, err)

			var area float64
			for _, tri := range tris {
				a, b, c := m.Points[tri[0]].XY(), m.Points[tri[1]].XY(), m.Points[tri[2]].XY()
				area -= float64(b.Sub(a).Cross(c.Sub(a))) / 2
			}
			assert.InDelta(t, float64(cells), area, 1e-6, "cap area")

			capSolid(t, m)
			stats := m.EdgeStats()
			assert.Zero(t, stats.Boundary)
			assert.True(t, stats.Closed(), "expected closed mesh, got %+v", stats)
		})
	}
}

func TestCap_SeparateIslands(t *testing.T) {
	m := buildSolid(t, [][]float32{
		{1, 1, nan, 2},
		{1, 1, nan, 2},
	})

	regions, err := Analyze(m.Points, m.Triangles)
	require.NoError(t, err)
	assert.Len(t, regions, 2)

	capSolid(t, m)
	stats := m.EdgeStats()
	assert.True(t, stats.Watertight(), "expected watertight mesh, got %+v", stats)
}

func TestTopologyError_Message(t *testing.T) {
	err := &TopologyError{Kind: KindIncomplete, Vertex: 7, Expected: 10, Produced: 6}
	assert.Contains(t, err.Error(), "vertex 7")
	assert.Contains(t, err.Error(), "10 edges")
	assert.Equal(t, "incomplete", KindIncomplete.String())
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "turn-right", TurnRight.String())
	assert.Equal(t, "shared-neighbor-left", SharedNeighborLeft.String())
	assert.Equal(t, TurnLeft, SharedNeighborLeft.turn())
}
