package earcut

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// onSegment reports whether q, known to be collinear with p and r, lies
// within their bounding box.
func onSegment(p, q, r *node) bool {
	return q.x <= max(p.x, r.x) && q.x >= min(p.x, r.x) &&
		q.y <= max(p.y, r.y) && q.y >= min(p.y, r.y)
}

// intersects reports whether segments p1-q1 and p2-q2 cross or touch.
func intersects(p1, q1, p2, q2 *node) bool {
	o1 := sign(cross(p1, q1, p2))
	o2 := sign(cross(p1, q1, q2))
	o3 := sign(cross(p2, q2, p1))
	o4 := sign(cross(p2, q2, q1))

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	return o4 == 0 && onSegment(p2, q1, q2)
}

// intersectsPolygon reports whether the diagonal a-b meets any ring edge
// not incident to a or b.
func intersectsPolygon(a, b *node) bool {
	p := a
	for {
		if p.i != a.i && p.next.i != a.i && p.i != b.i && p.next.i != b.i &&
			intersects(p, p.next, a, b) {
			return true
		}
		p = p.next
		if p == a {
			return false
		}
	}
}

// middleInside reports whether the midpoint of a-b lies inside the ring.
func middleInside(a, b *node) bool {
	px, py := (a.x+b.x)/2, (a.y+b.y)/2
	inside := false
	p := a
	for {
		if (p.y > py) != (p.next.y > py) && p.next.y != p.y &&
			px < (p.next.x-p.x)*(py-p.y)/(p.next.y-p.y)+p.x {
			inside = !inside
		}
		p = p.next
		if p == a {
			return inside
		}
	}
}

// isValidDiagonal reports whether a-b splits the ring into two rings that
// can be clipped on their own. Two copies of a touching point form a valid
// zero-length diagonal when the ring turns away from the interior at both.
func isValidDiagonal(a, b *node) bool {
	if a.next.i == b.i || a.prev.i == b.i || intersectsPolygon(a, b) {
		return false
	}
	if locallyInside(a, b) && locallyInside(b, a) && middleInside(a, b) &&
		(cross(a.prev, a, b.prev) != 0 || cross(a, b.prev, b) != 0) {
		return true
	}
	return a.equals(b) && cross(a.prev, a, a.next) < 0 && cross(b.prev, b, b.next) < 0
}

// cureLocalIntersections clips the triangle at every place where an edge
// crosses the edge after next, removing the crossing.
func (t *triangulator) cureLocalIntersections(start *node) *node {
	p := start
	for p.next != p.prev {
		a, b := p.prev, p.next.next
		if !a.equals(b) && intersects(a, p, p.next, b) && locallyInside(a, b) && locallyInside(b, a) {
			t.emit(a, p, b)
			removeNode(p)
			removeNode(p.next)
			p, start = b, b
		}
		p = p.next
		if p == start {
			break
		}
	}
	return dropDegenerate(p)
}

// splitRing looks for a valid diagonal, splits the ring along it and clips
// both halves. It reports false when no diagonal exists.
func (t *triangulator) splitRing(start *node) (bool, error) {
	a := start
	for {
		for b := a.next.next; b != a.prev; b = b.next {
			if a.i == b.i || !isValidDiagonal(a, b) {
				continue
			}
			c := splitPolygon(a, b)
			a, c = dropDegenerate(a), dropDegenerate(c)
			if err := t.clip(a); err != nil {
				return true, err
			}
			return true, t.clip(c)
		}
		a = a.next
		if a == start {
			return false, nil
		}
	}
}
