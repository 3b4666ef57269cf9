package mesh

import (
	"errors"
	"testing"

	"github.com/Faultbox/heightmesh/pkg/math"
)

func TestVertexIndexIntern(t *testing.T) {
	idx := NewVertexIndex()

	a := math.Vec3{X: 1, Y: 2, Z: 3}
	b := math.Vec3{X: 3, Y: 2, Z: 1}

	ida, err := idx.Intern(a)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	idb, _ := idx.Intern(b)
	again, _ := idx.Intern(a)

	if ida != 0 || idb != 1 {
		t.Errorf("expected sequential ids 0 and 1, got %d and %d", ida, idb)
	}
	if again != ida {
		t.Errorf("expected repeated vertex to keep id %d, got %d", ida, again)
	}
	if idx.Len() != 2 {
		t.Errorf("expected 2 vertices, got %d", idx.Len())
	}
}

func TestVertexIndexInsertionOrder(t *testing.T) {
	idx := NewVertexIndex()

	var want []math.Vec3
	for i := 0; i < 50; i++ {
		v := math.Vec3{X: float32(i % 7), Y: float32(i / 7), Z: 0.5}
		want = append(want, v)
		// Interleave duplicates of earlier vertices.
		if _, err := idx.Intern(v); err != nil {
			t.Fatalf("Intern failed: %v", err)
		}
		if _, err := idx.Intern(want[i/2]); err != nil {
			t.Fatalf("Intern failed: %v", err)
		}
	}

	got := idx.Points()
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestVertexIndexExactEquality(t *testing.T) {
	idx := NewVertexIndex()

	a := math.Vec3{X: 0.1, Y: 0, Z: 0}
	b := math.Vec3{X: 0.1 + 1e-7, Y: 0, Z: 0}
	ida, _ := idx.Intern(a)
	idb, _ := idx.Intern(b)
	if a != b && ida == idb {
		t.Errorf("nearly equal vertices must not be merged")
	}

	if _, ok := idx.Lookup(math.Vec3{X: 9}); ok {
		t.Error("expected lookup of unknown vertex to fail")
	}
	if id, ok := idx.Lookup(a); !ok || id != ida {
		t.Errorf("expected lookup to return %d, got %d (%v)", ida, id, ok)
	}
}

// cube returns a closed unit cube with outward winding.
func cube() *Mesh {
	m := &Mesh{Points: []math.Vec3{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}}
	m.Triangles = []Triangle{
		{0, 2, 1}, {0, 3, 2}, // bottom
		{4, 5, 6}, {4, 6, 7}, // top
		{0, 1, 5}, {0, 5, 4}, // front
		{1, 2, 6}, {1, 6, 5}, // right
		{2, 3, 7}, {2, 7, 6}, // back
		{3, 0, 4}, {3, 4, 7}, // left
	}
	return m
}

func TestEdgeStatsCube(t *testing.T) {
	s := cube().EdgeStats()
	if !s.Watertight() {
		t.Errorf("expected cube to be watertight, got %+v", s)
	}
	if s.Edges != 18 {
		t.Errorf("expected 18 edges, got %d", s.Edges)
	}
}

func TestTrimBottom(t *testing.T) {
	m := cube()
	removed := m.TrimBottom()
	if removed != 2 {
		t.Errorf("expected 2 bottom triangles removed, got %d", removed)
	}
	if m.TriangleCount() != 10 {
		t.Errorf("expected 10 triangles left, got %d", m.TriangleCount())
	}

	s := m.EdgeStats()
	if s.Boundary != 4 {
		t.Errorf("expected 4 boundary edges after trim, got %d", s.Boundary)
	}
}

func TestScaleToFit(t *testing.T) {
	m := cube()
	m.Points[6].X = 2 // stretch X extent to 2

	factor, err := m.ScaleToFit(10)
	if err != nil {
		t.Fatalf("ScaleToFit failed: %v", err)
	}
	if factor != 5 {
		t.Errorf("expected factor 5, got %v", factor)
	}
	lo, hi := m.Bounds()
	if hi.X-lo.X != 10 {
		t.Errorf("expected X extent 10, got %v", hi.X-lo.X)
	}
	if hi.Z != 5 {
		t.Errorf("expected Z to scale to 5, got %v", hi.Z)
	}
}

func TestScaleToFitErrors(t *testing.T) {
	m := &Mesh{Points: []math.Vec3{{X: 1, Y: 1}, {X: 1, Y: 1, Z: 3}}}
	if _, err := m.ScaleToFit(1); !errors.Is(err, ErrEmptyExtent) {
		t.Errorf("expected ErrEmptyExtent, got %v", err)
	}
	if _, err := cube().ScaleToFit(0); err == nil {
		t.Error("expected error for non-positive size")
	}
}

func TestCompact(t *testing.T) {
	m := cube()
	m.Points = append([]math.Vec3{{X: 9, Y: 9, Z: 9}}, m.Points...)
	for i := range m.Triangles {
		for k := range m.Triangles[i] {
			m.Triangles[i][k]++
		}
	}

	dropped := m.Compact()
	if dropped != 1 {
		t.Errorf("expected 1 vertex dropped, got %d", dropped)
	}
	if m.VertexCount() != 8 {
		t.Errorf("expected 8 vertices, got %d", m.VertexCount())
	}
	if m.Triangles[0] != (Triangle{0, 2, 1}) {
		t.Errorf("expected first triangle renumbered to {0 2 1}, got %v", m.Triangles[0])
	}
	if !m.EdgeStats().Watertight() {
		t.Error("expected compacted cube to stay watertight")
	}
}

func TestAppendValidatesIds(t *testing.T) {
	m := cube()
	if err := m.Append(Triangle{0, 1, 42}); err == nil {
		t.Error("expected error for out of range vertex id")
	}
	if err := m.Append(Triangle{0, 1, 2}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if m.TriangleCount() != 13 {
		t.Errorf("expected 13 triangles, got %d", m.TriangleCount())
	}
}
