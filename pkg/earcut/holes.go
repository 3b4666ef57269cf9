package earcut

import (
	"fmt"
	"math"
	"sort"
)

// eliminateHoles links every hole into the outer ring through a pair of
// bridge edges, turning the polygon into a single weakly simple ring.
func (t *triangulator) eliminateHoles(outer *node, offset int, holes [][]Point) (*node, error) {
	queue := make([]*node, 0, len(holes))
	for k, h := range holes {
		if len(h) < 3 {
			return nil, fmt.Errorf("%w: hole %d has %d vertices", ErrDegenerate, k, len(h))
		}
		list := t.linkRing(h, offset, false)
		offset += len(h)
		if list == nil {
			return nil, fmt.Errorf("%w: hole %d collapses", ErrDegenerate, k)
		}
		queue = append(queue, leftmost(list))
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].x != queue[j].x {
			return queue[i].x < queue[j].x
		}
		return queue[i].y < queue[j].y
	})

	for k, hole := range queue {
		bridge := findHoleBridge(hole, outer)
		if bridge == nil {
			return nil, fmt.Errorf("%w: hole %d at (%g,%g) lies outside the outer ring", ErrDegenerate, k, hole.x, hole.y)
		}
		splitPolygon(bridge, hole)
	}
	return outer, nil
}

func leftmost(start *node) *node {
	best := start
	for p := start.next; p != start; p = p.next {
		if p.x < best.x || (p.x == best.x && p.y < best.y) {
			best = p
		}
	}
	return best
}

// findHoleBridge returns the outer vertex to connect hole to. It casts a
// ray to the left of the hole's leftmost vertex, takes the nearer endpoint
// of the first segment hit, then swaps it for any reflex vertex that sits
// inside the triangle between the hit point and that endpoint.
func findHoleBridge(hole, outer *node) *node {
	hx, hy := hole.x, hole.y
	qx := math.Inf(-1)
	var m *node

	p := outer
	for {
		if hy <= p.y && hy >= p.next.y && p.next.y != p.y {
			x := p.x + (hy-p.y)*(p.next.x-p.x)/(p.next.y-p.y)
			if x <= hx && x > qx {
				qx = x
				m = p.next
				if p.x < p.next.x {
					m = p
				}
				if x == hx {
					// The hole touches this segment.
					return m
				}
			}
		}
		p = p.next
		if p == outer {
			break
		}
	}
	if m == nil {
		return nil
	}

	stop := m
	mx, my := m.x, m.y
	tanMin := math.Inf(1)
	hit := &node{x: qx, y: hy}
	h := &node{x: hx, y: hy}
	corner := &node{x: mx, y: my}

	p = m
	for {
		if hx >= p.x && p.x >= mx && hx != p.x && inTriangleAny(hit, corner, h, p) {
			tan := math.Abs(hy-p.y) / (hx - p.x)
			if locallyInside(p, hole) &&
				(tan < tanMin || (tan == tanMin && (p.x > m.x || (p.x == m.x && sectorContainsSector(m, p))))) {
				m = p
				tanMin = tan
			}
		}
		p = p.next
		if p == stop {
			break
		}
	}
	return m
}

// inTriangleAny is an inclusive point in triangle test for either winding.
func inTriangleAny(a, b, c, p *node) bool {
	d1, d2, d3 := cross(a, b, p), cross(b, c, p), cross(c, a, p)
	return (d1 >= 0 && d2 >= 0 && d3 >= 0) || (d1 <= 0 && d2 <= 0 && d3 <= 0)
}

// locallyInside reports whether the diagonal a-b leaves a into the
// polygon interior.
func locallyInside(a, b *node) bool {
	if cross(a.prev, a, a.next) > 0 {
		return cross(a, b, a.next) <= 0 && cross(a, a.prev, b) <= 0
	}
	return cross(a, b, a.prev) > 0 || cross(a, a.next, b) > 0
}

// sectorContainsSector reports whether the interior angle at m contains
// the one at p, for coincident candidates.
func sectorContainsSector(m, p *node) bool {
	return cross(m.prev, m, p.prev) > 0 && cross(p.next, m, m.next) > 0
}

// splitPolygon links a to b with two copies of the diagonal, splitting
// the ring in two or, when a and b are on different rings, merging them.
// It returns the copy of b.
func splitPolygon(a, b *node) *node {
	a2 := &node{i: a.i, x: a.x, y: a.y}
	b2 := &node{i: b.i, x: b.x, y: b.y}
	an, bp := a.next, b.prev

	a.next = b
	b.prev = a

	a2.next = an
	an.prev = a2

	b2.next = a2
	a2.prev = b2

	bp.next = b2
	b2.prev = bp

	return b2
}
