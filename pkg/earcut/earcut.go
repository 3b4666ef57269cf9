// Package earcut triangulates simple polygons with holes by ear clipping.
//
// The algorithm follows the linked-list design popularised by mapbox/earcut:
// holes are bridged into the outer ring, large rings use a z-order curve to
// speed up the ear test, and stalled rings are cured of local
// self-intersections, split along a valid diagonal, and finally clipped
// with looser ear tests. Unlike that library it never removes collinear
// vertices, because every input vertex is shared with a neighbouring facet
// and must appear in the output. Rings may touch themselves at a vertex.
package earcut

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDegenerate is returned when a polygon cannot be reduced to triangles.
var ErrDegenerate = errors.New("polygon cannot be triangulated")

// hashThreshold is the vertex count above which z-order hashing is used.
const hashThreshold = 80

// Point is a polygon vertex.
type Point struct {
	X, Y float64
}

type node struct {
	i    int // index into the concatenated input
	x, y float64

	prev, next *node

	z            int32
	prevZ, nextZ *node
}

func (n *node) equals(o *node) bool {
	return n.x == o.x && n.y == o.y
}

// cross is the z component of (q-p) x (r-p); positive when p, q, r turn
// counter-clockwise.
func cross(p, q, r *node) float64 {
	return (q.x-p.x)*(r.y-p.y) - (q.y-p.y)*(r.x-p.x)
}

// SignedArea returns the shoelace area of ring, positive when the ring is
// counter-clockwise.
func SignedArea(ring []Point) float64 {
	var sum float64
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		sum += ring[j].X*ring[i].Y - ring[i].X*ring[j].Y
	}
	return sum / 2
}

// Triangulate returns triangles covering outer minus holes as indices into
// the concatenation of outer and holes, three per triangle, each wound
// counter-clockwise. Rings may be given in either orientation.
func Triangulate(outer []Point, holes ...[]Point) ([]int, error) {
	if len(outer) < 3 {
		return nil, fmt.Errorf("%w: outer ring has %d vertices", ErrDegenerate, len(outer))
	}

	total := len(outer)
	for _, h := range holes {
		total += len(h)
	}
	t := &triangulator{indices: make([]int, 0, 3*(total+2*len(holes)))}

	start := t.linkRing(outer, 0, true)
	if start == nil {
		return nil, fmt.Errorf("%w: outer ring collapses", ErrDegenerate)
	}

	if len(holes) > 0 {
		var err error
		if start, err = t.eliminateHoles(start, len(outer), holes); err != nil {
			return nil, err
		}
	}

	if total > hashThreshold {
		t.initBounds(start)
	}
	if err := t.clip(start); err != nil {
		return nil, err
	}
	return t.indices, nil
}

type triangulator struct {
	indices []int

	hashed     bool
	minX, minY float64
	invSize    float64
}

// linkRing builds a circular list for ring in the requested orientation.
func (t *triangulator) linkRing(ring []Point, offset int, ccw bool) *node {
	var last *node
	if (SignedArea(ring) > 0) == ccw {
		for i, p := range ring {
			last = insertNode(offset+i, p, last)
		}
	} else {
		for i := len(ring) - 1; i >= 0; i-- {
			last = insertNode(offset+i, ring[i], last)
		}
	}
	if last != nil && last.equals(last.next) && last.next != last {
		removeNode(last)
		last = last.next
	}
	if last == nil || last.next == last || last.next.next == last {
		return nil
	}
	return last
}

func insertNode(i int, p Point, last *node) *node {
	n := &node{i: i, x: p.X, y: p.Y}
	if last == nil {
		n.prev, n.next = n, n
	} else {
		n.next = last.next
		n.prev = last
		last.next.prev = n
		last.next = n
	}
	return n
}

func removeNode(p *node) {
	p.next.prev = p.prev
	p.prev.next = p.next
	if p.prevZ != nil {
		p.prevZ.nextZ = p.nextZ
	}
	if p.nextZ != nil {
		p.nextZ.prevZ = p.prevZ
	}
}

// Ear test strictness, loosened each time a full lap finds no ear. The
// cure and split passes reshape the ring before the strict test is retried.
const (
	passStrict = iota
	passDeduplicated
	passCured
	passSplit
	passRelaxed
	passAnyConvex
	passCount
)

// emit records the triangle a-b-c counter-clockwise.
func (t *triangulator) emit(a, b, c *node) {
	if cross(a, b, c) < 0 {
		b, c = c, b
	}
	t.indices = append(t.indices, a.i, b.i, c.i)
}

func (t *triangulator) clip(ear *node) error {
	if t.hashed {
		t.indexCurve(ear)
	}

	pass := passStrict
	stop := ear
	for ear.prev != ear.next {
		prev, next := ear.prev, ear.next
		if t.isEar(ear, pass) {
			t.emit(prev, ear, next)
			removeNode(ear)
			ear = next.next
			stop = ear
			pass = passStrict
			continue
		}

		ear = next
		if ear != stop {
			continue
		}

		pass++
		switch pass {
		case passDeduplicated:
			ear = dropDegenerate(ear)
		case passCured:
			ear = t.cureLocalIntersections(ear)
		case passSplit:
			if ok, err := t.splitRing(ear); ok {
				return err
			}
			pass = passRelaxed
		case passCount:
			return fmt.Errorf("%w: %d vertices left without an ear", ErrDegenerate, ringLen(ear))
		}
		stop = ear
	}
	return nil
}

func (t *triangulator) isEar(ear *node, pass int) bool {
	switch pass {
	case passAnyConvex:
		return cross(ear.prev, ear, ear.next) >= 0
	case passRelaxed:
		return isEarLinear(ear, false)
	}
	if t.hashed {
		return t.isEarHashed(ear)
	}
	return isEarLinear(ear, true)
}

// blocks reports whether p prevents the ear a-b-c. A copy of a, left by a
// hole bridge or by a ring touching itself, never blocks it. Copies of b
// and c still do when they turn away from the interior, which keeps an ear
// from reaching across a touching point.
func blocks(a, b, c, p *node, inclusive bool) bool {
	if p.equals(a) {
		return false
	}
	if cross(p.prev, p, p.next) > 0 {
		return false
	}
	if inclusive {
		return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
	}
	return cross(a, b, p) > 0 && cross(b, c, p) > 0 && cross(c, a, p) > 0
}

func isEarLinear(ear *node, inclusive bool) bool {
	a, b, c := ear.prev, ear, ear.next
	if cross(a, b, c) <= 0 {
		return false
	}

	x0, x1 := min(a.x, b.x, c.x), max(a.x, b.x, c.x)
	y0, y1 := min(a.y, b.y, c.y), max(a.y, b.y, c.y)
	for p := c.next; p != a; p = p.next {
		if p.x >= x0 && p.x <= x1 && p.y >= y0 && p.y <= y1 && blocks(a, b, c, p, inclusive) {
			return false
		}
	}
	return true
}

func (t *triangulator) isEarHashed(ear *node) bool {
	a, b, c := ear.prev, ear, ear.next
	if cross(a, b, c) <= 0 {
		return false
	}

	x0, x1 := min(a.x, b.x, c.x), max(a.x, b.x, c.x)
	y0, y1 := min(a.y, b.y, c.y), max(a.y, b.y, c.y)
	minZ, maxZ := t.zOrder(x0, y0), t.zOrder(x1, y1)

	inBox := func(p *node) bool {
		return p.x >= x0 && p.x <= x1 && p.y >= y0 && p.y <= y1
	}
	check := func(p *node) bool {
		return p != a && p != c && inBox(p) && blocks(a, b, c, p, true)
	}

	p, n := ear.prevZ, ear.nextZ
	for p != nil && p.z >= minZ && n != nil && n.z <= maxZ {
		if check(p) {
			return false
		}
		p = p.prevZ
		if check(n) {
			return false
		}
		n = n.nextZ
	}
	for ; p != nil && p.z >= minZ; p = p.prevZ {
		if check(p) {
			return false
		}
	}
	for ; n != nil && n.z <= maxZ; n = n.nextZ {
		if check(n) {
			return false
		}
	}
	return true
}

// dropDegenerate removes vertices equal to their successor and the tips
// of zero-width spikes, whose two neighbours coincide. Both appear where a
// ring touches itself once the material around the touching point has
// been clipped away. It returns a surviving node.
func dropDegenerate(start *node) *node {
	p := start
	for {
		if p.next == p {
			return p
		}
		if p.equals(p.next) || (p.prev != p.next && p.prev.equals(p.next)) {
			removeNode(p)
			p = p.prev
			start = p
			continue
		}
		p = p.next
		if p == start {
			return p
		}
	}
}

func ringLen(start *node) int {
	n := 0
	for p := start; ; p = p.next {
		n++
		if p.next == start {
			return n
		}
	}
}

// initBounds enables z-order hashing with the bounding box of the ring at
// start. The box stays fixed while the ring is split.
func (t *triangulator) initBounds(start *node) {
	t.hashed = true
	t.minX, t.minY = start.x, start.y
	maxX, maxY := start.x, start.y
	for p := start.next; p != start; p = p.next {
		t.minX, t.minY = min(t.minX, p.x), min(t.minY, p.y)
		maxX, maxY = max(maxX, p.x), max(maxY, p.y)
	}
	if size := max(maxX-t.minX, maxY-t.minY); size != 0 {
		t.invSize = 32767 / size
	}
}

// indexCurve links the ring at start in z-order.
func (t *triangulator) indexCurve(start *node) {
	var nodes []*node
	for p := start; ; p = p.next {
		p.z = t.zOrder(p.x, p.y)
		nodes = append(nodes, p)
		if p.next == start {
			break
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].z < nodes[j].z })
	for k, p := range nodes {
		p.prevZ, p.nextZ = nil, nil
		if k > 0 {
			p.prevZ = nodes[k-1]
		}
		if k+1 < len(nodes) {
			p.nextZ = nodes[k+1]
		}
	}
}

// zOrder interleaves the bits of the 15-bit scaled coordinates.
func (t *triangulator) zOrder(x, y float64) int32 {
	xi := int32((x - t.minX) * t.invSize)
	yi := int32((y - t.minY) * t.invSize)

	xi = (xi | (xi << 8)) & 0x00FF00FF
	xi = (xi | (xi << 4)) & 0x0F0F0F0F
	xi = (xi | (xi << 2)) & 0x33333333
	xi = (xi | (xi << 1)) & 0x55555555

	yi = (yi | (yi << 8)) & 0x00FF00FF
	yi = (yi | (yi << 4)) & 0x0F0F0F0F
	yi = (yi | (yi << 2)) & 0x33333333
	yi = (yi | (yi << 1)) & 0x55555555

	return xi | (yi << 1)
}
