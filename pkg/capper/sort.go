package capper

import (
	"errors"
	stdmath "math"
	"slices"

	"github.com/Faultbox/heightmesh/pkg/math"
)

// maxHeuristicPinches is the number of pinch vertices a component may have
// before the shared-neighbor resolution is tried ahead of plain turning.
const maxHeuristicPinches = 2

// Policy selects the outgoing edge at a pinch vertex, where two parts of
// the boundary touch and three unused edges meet.
type Policy int

const (
	// TurnRight takes the sharpest clockwise turn.
	TurnRight Policy = iota
	// TurnLeft takes the sharpest counter-clockwise turn.
	TurnLeft
	// SharedNeighborRight prefers the pair of candidates that close a small
	// loop of their own, then falls back to TurnRight.
	SharedNeighborRight
	// SharedNeighborLeft is SharedNeighborRight falling back to TurnLeft.
	SharedNeighborLeft
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case TurnRight:
		return "turn-right"
	case TurnLeft:
		return "turn-left"
	case SharedNeighborRight:
		return "shared-neighbor-right"
	case SharedNeighborLeft:
		return "shared-neighbor-left"
	default:
		return "unknown"
	}
}

func (p Policy) turn() Policy {
	switch p {
	case SharedNeighborRight:
		return TurnRight
	case SharedNeighborLeft:
		return TurnLeft
	default:
		return p
	}
}

// edgePool maps each vertex to its incident, not yet consumed edges.
type edgePool map[uint32][]Edge

func newEdgePool(edges []Edge) edgePool {
	pool := make(edgePool, len(edges))
	for _, e := range edges {
		pool[e.A] = append(pool[e.A], e)
		pool[e.B] = append(pool[e.B], e)
	}
	return pool
}

func (p edgePool) removeAt(v uint32, e Edge) {
	list := p[v]
	for k, c := range list {
		if c == e {
			list = append(list[:k:k], list[k+1:]...)
			break
		}
	}
	p[v] = list
}

func (p edgePool) remove(e Edge) {
	p.removeAt(e.A, e)
	p.removeAt(e.B, e)
}

// leaving returns the unused edges that start at v.
func (p edgePool) leaving(v uint32) []Edge {
	var out []Edge
	for _, e := range p[v] {
		if e.A == v {
			out = append(out, e)
		}
	}
	return out
}

// adjacent reports whether an unused edge joins u and v.
func (p edgePool) adjacent(u, v uint32) bool {
	for _, e := range p[u] {
		if e.Other(u) == v {
			return true
		}
	}
	return false
}

// shareNeighbor reports whether u and v have a common neighbor other
// than skip.
func (p edgePool) shareNeighbor(u, v, skip uint32) bool {
	for _, eu := range p[u] {
		n := eu.Other(u)
		if n == skip {
			continue
		}
		if p.adjacent(n, v) {
			return true
		}
	}
	return false
}

// pinches counts vertices where more than two edges meet.
func pinches(edges []Edge) int {
	degree := make(map[uint32]int)
	for _, e := range edges {
		degree[e.A]++
		degree[e.B]++
	}
	n := 0
	for _, d := range degree {
		if d > 2 {
			n++
		}
	}
	return n
}

// balanced reports whether every vertex has as many edges leaving it as
// entering it, which holds for the bottom of a consistently wound mesh.
func balanced(edges []Edge) bool {
	degree := make(map[uint32]int)
	for _, e := range edges {
		degree[e.A]++
		degree[e.B]--
	}
	for _, d := range degree {
		if d != 0 {
			return false
		}
	}
	return true
}

// direction returns the XY vector from a to b. A zero-length vector means
// two distinct vertex ids share a position, which the vertex index rules
// out.
func direction(points []math.Vec3, a, b uint32) math.Vec2 {
	d := points[b].XY().Sub(points[a].XY())
	if d.X == 0 && d.Y == 0 {
		panic("capper: zero-length boundary edge")
	}
	return d
}

// walker holds the state of one ordering attempt.
type walker struct {
	points []math.Vec3
	pool   edgePool
	policy Policy
}

// choose picks the next edge among the candidates at pinch vertex cur.
func (w *walker) choose(cur uint32, prev Edge, cands []Edge) Edge {
	arrival := direction(w.points, prev.Other(cur), cur)
	angles := make([]float64, len(cands))
	for k, c := range cands {
		angles[k] = arrival.TurnAngle(direction(w.points, cur, c.Other(cur)))
	}

	if w.policy == SharedNeighborRight || w.policy == SharedNeighborLeft {
		if k, ok := w.sharedPair(cur, cands, angles); ok {
			return cands[k]
		}
	}

	best := 0
	for k := 1; k < len(cands); k++ {
		switch w.policy.turn() {
		case TurnRight:
			if angles[k] < angles[best] {
				best = k
			}
		case TurnLeft:
			if angles[k] > angles[best] {
				best = k
			}
		}
	}
	return cands[best]
}

// sharedPair looks for the single pair of candidates whose far endpoints
// are equal, joined by an edge, or joined through one more vertex. Such a
// pair bounds a small loop hanging off cur; the sharper turn of the two
// enters it.
func (w *walker) sharedPair(cur uint32, cands []Edge, angles []float64) (int, bool) {
	found := 0
	var pi, pj int
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			fi, fj := cands[i].Other(cur), cands[j].Other(cur)
			if fi == fj || w.pool.adjacent(fi, fj) || w.pool.shareNeighbor(fi, fj, cur) {
				found++
				pi, pj = i, j
			}
		}
	}
	if found != 1 {
		return 0, false
	}
	if stdmath.Abs(angles[pj]) > stdmath.Abs(angles[pi]) {
		return pj, true
	}
	return pi, true
}

// trail consumes first and keeps following unused edges in their own
// direction until it reaches a vertex with no way out. It returns the
// vertices in walk order, starting at first.A.
func (w *walker) trail(first Edge) []uint32 {
	w.pool.remove(first)
	nodes := []uint32{first.A}
	prev, cur := first, first.B
	for {
		out := w.pool.leaving(cur)
		if len(out) == 0 {
			return nodes
		}
		next := out[0]
		if len(out) > 1 {
			next = w.choose(cur, prev, out)
		}
		w.pool.remove(next)
		nodes = append(nodes, cur)
		prev, cur = next, next.B
	}
}

// circuit orders a balanced component into one closed sequence. The walk
// can come back to its start while a pinch still has an unused way out;
// the side loop leaving from there is then walked and spliced in at that
// visit.
func (w *walker) circuit(edges []Edge) []uint32 {
	w.pool = newEdgePool(edges)
	nodes := w.trail(edges[0])
	for k := 0; k < len(nodes); k++ {
		v := nodes[k]
		out := w.pool.leaving(v)
		if len(out) == 0 {
			continue
		}
		first := out[0]
		if len(out) > 1 {
			arrival := Edge{A: nodes[(k+len(nodes)-1)%len(nodes)], B: v}
			first = w.choose(v, arrival, out)
		}
		nodes = slices.Insert(nodes, k, w.trail(first)...)
		k--
	}
	return nodes
}

// walk orders one component under a single policy, ignoring edge
// direction. It returns the visited vertices and, when a vertex with an
// unsupported number of unused edges is reached, a *TopologyError.
func (w *walker) walk(edges []Edge) ([]uint32, error) {
	w.pool = newEdgePool(edges)

	prev := edges[0]
	cur := prev.A
	w.pool.remove(prev)
	nodes := make([]uint32, 0, len(edges))
	nodes = append(nodes, cur)

	for {
		cands := w.pool[cur]
		var next Edge
		switch len(cands) {
		case 0:
			return nodes, nil
		case 1:
			next = cands[0]
		case 3:
			next = w.choose(cur, prev, cands)
		default:
			return nodes, &TopologyError{
				Kind:     KindBranch,
				Vertex:   cur,
				Expected: 3,
				Produced: len(cands),
			}
		}
		w.pool.remove(next)
		cur = next.Other(cur)
		prev = next
		nodes = append(nodes, cur)
	}
}

// SortEdges orders a connected set of boundary edges into a closed vertex
// sequence, one vertex per edge. Pinch vertices appear once per visit.
//
// When every vertex has as many edges leaving as entering, the edges are
// walked in their own direction and the first policy picks the way out at
// pinches. Otherwise direction is ignored and several policies are tried
// in turn; the first that consumes every edge wins. When none does, the
// longest sequence is returned together with a *TopologyError.
func SortEdges(edges []Edge, points []math.Vec3) ([]uint32, error) {
	if len(edges) == 0 {
		return nil, nil
	}

	attempts := []Policy{TurnRight, TurnLeft}
	if pinches(edges) > maxHeuristicPinches {
		attempts = []Policy{SharedNeighborRight, SharedNeighborLeft, TurnRight, TurnLeft}
	}

	if balanced(edges) {
		w := &walker{points: points, policy: attempts[0]}
		if nodes := w.circuit(edges); len(nodes) == len(edges) {
			return nodes, nil
		}
	}

	var best, complete []uint32
	var bestErr error
	for _, p := range attempts {
		w := &walker{points: points, policy: p}
		nodes, err := w.walk(edges)
		if err == nil && len(nodes) == len(edges) {
			if f, b := countDirections(nodes, edges); f == 0 || b == 0 {
				return nodes, nil
			}
			// Every edge is used but some parts run against the
			// triangle winding; keep looking for a consistent order.
			if complete == nil {
				complete = nodes
			}
			continue
		}
		if len(nodes) > len(best) {
			best, bestErr = nodes, err
		}
	}
	if complete != nil {
		return complete, nil
	}

	vertex := edges[0].A
	var te *TopologyError
	if errors.As(bestErr, &te) {
		vertex = te.Vertex
	}
	return best, &TopologyError{
		Kind:     KindIncomplete,
		Vertex:   vertex,
		Expected: len(edges),
		Produced: len(best),
	}
}

// countDirections counts the consecutive pairs of the closed sequence
// nodes that follow an edge in its own direction and against it.
func countDirections(nodes []uint32, edges []Edge) (forward, backward int) {
	directed := make(map[Edge]int, len(edges))
	for _, e := range edges {
		directed[e]++
	}
	for k, a := range nodes {
		e := Edge{A: a, B: nodes[(k+1)%len(nodes)]}
		switch {
		case directed[e] > 0:
			forward++
		case directed[e.Reverse()] > 0:
			backward++
		}
	}
	return forward, backward
}
