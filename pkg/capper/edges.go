// Package capper closes the open bottom of a meshed solid.
//
// It collects the boundary edges lying in the z=0 plane, walks them into
// closed loops, classifies each loop as an outer boundary or a hole and
// fills the outer boundaries, holes cut out, with downward facing triangles.
package capper

import (
	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// Edge is a pair of vertex ids. Edges taken from triangles keep the
// direction in which the triangle's winding traverses them.
type Edge struct {
	A, B uint32
}

// Other returns the endpoint of e that is not v.
func (e Edge) Other(v uint32) uint32 {
	if e.A == v {
		return e.B
	}
	return e.A
}

// Reverse returns e with its endpoints swapped.
func (e Edge) Reverse() Edge {
	return Edge{A: e.B, B: e.A}
}

// BottomEdges returns, for every triangle with exactly two vertices at
// Z == 0, the edge between those two vertices.
func BottomEdges(points []math.Vec3, triangles []mesh.Triangle) []Edge {
	var edges []Edge
	for _, t := range triangles {
		var zero [3]int
		n := 0
		for k, id := range t {
			if points[id].Z == 0 {
				if n < 2 {
					zero[n] = k
				}
				n++
			}
		}
		if n != 2 {
			continue
		}
		i, j := zero[0], zero[1]
		if j == (i+1)%3 {
			edges = append(edges, Edge{A: t[i], B: t[j]})
		} else {
			edges = append(edges, Edge{A: t[j], B: t[i]})
		}
	}
	return edges
}

// unionFind is a disjoint set over vertex ids.
type unionFind map[uint32]uint32

func (u unionFind) find(v uint32) uint32 {
	root := v
	for {
		p, ok := u[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	for v != root {
		next := u[v]
		u[v] = root
		v = next
	}
	return root
}

func (u unionFind) union(a, b uint32) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u[ra] = rb
	}
}

// Components splits edges into groups connected through shared vertices.
// Groups are ordered by their first edge and keep the input order inside.
func Components(edges []Edge) [][]Edge {
	u := make(unionFind)
	for _, e := range edges {
		if _, ok := u[e.A]; !ok {
			u[e.A] = e.A
		}
		if _, ok := u[e.B]; !ok {
			u[e.B] = e.B
		}
		u.union(e.A, e.B)
	}

	slot := make(map[uint32]int)
	var groups [][]Edge
	for _, e := range edges {
		root := u.find(e.A)
		k, ok := slot[root]
		if !ok {
			k = len(groups)
			slot[root] = k
			groups = append(groups, nil)
		}
		groups[k] = append(groups[k], e)
	}
	return groups
}
