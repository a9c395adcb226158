package mesh

import (
	"fmt"

	"github.com/notargets/simplicial/topology"
)

// children of one uniform refinement step, as indices into the list of
// parent vertices followed by edge midpoints. Every child has the
// orientation of its parent.
var (
	segmentChildren = [][]int{{0, 2}, {2, 1}}
	// 0 1 2 | 01 12 20
	triangleChildren = [][]int{
		{0, 3, 5},
		{3, 1, 4},
		{4, 2, 5},
		{5, 3, 4},
	}
	// 0 1 2 3 | 01 02 03 12 13 23
	tetrahedronChildren = [][]int{
		{0, 4, 5, 6},
		{1, 4, 8, 7},
		{7, 2, 5, 9},
		{6, 3, 8, 9},
		{5, 4, 8, 6},
		{5, 6, 8, 9},
		{4, 5, 8, 7},
		{5, 9, 8, 7},
	}
	midpointEdges = [][][2]int{
		1: {{0, 1}},
		2: {{0, 1}, {1, 2}, {2, 0}},
		3: {{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}},
	}
)

// MidpointFunc is told about each new vertex placed on the edge from a to b.
// mid stays valid while the refined mesh references it.
type MidpointFunc func(a, b, mid topology.Simplex)

// Refine returns the uniform refinement of m: every segment splits into 2,
// every triangle into 4 and every tetrahedron into 8. Edges shared by cells
// share their midpoint. onMidpoint may be nil.
func Refine(m *Mesh, onMidpoint MidpointFunc) (*Mesh, error) {
	if m.dim < 1 {
		return nil, fmt.Errorf("refine a vertex mesh: %w", ErrDimension)
	}
	children := [][][]int{1: segmentChildren, 2: triangleChildren, 3: tetrahedronChildren}[m.dim]

	out, err := New(m.topo, m.dim)
	if err != nil {
		return nil, err
	}
	mids := make(map[[2]uint64]topology.Simplex)
	defer func() {
		for _, v := range mids {
			m.topo.Erase(v)
		}
	}()
	midpoint := func(a, b topology.Simplex) (topology.Simplex, error) {
		sa, err := a.Serial()
		if err != nil {
			return topology.Bad(), err
		}
		sb, err := b.Serial()
		if err != nil {
			return topology.Bad(), err
		}
		k := [2]uint64{min(sa, sb), max(sa, sb)}
		if v, ok := mids[k]; ok {
			return v.Borrow(), nil
		}
		v := m.topo.Vertex()
		mids[k] = v
		if onMidpoint != nil {
			onMidpoint(a, b, v.Borrow())
		}
		return v.Borrow(), nil
	}

	for _, c := range m.cells {
		vs, err := c.Vertices()
		if err != nil {
			out.Release()
			return nil, err
		}
		for _, e := range midpointEdges[m.dim] {
			v, err := midpoint(vs[e[0]], vs[e[1]])
			if err != nil {
				out.Release()
				return nil, err
			}
			vs = append(vs, v)
		}
		for _, child := range children {
			cv := make([]topology.Simplex, len(child))
			for i, j := range child {
				cv[i] = vs[j]
			}
			if _, err := out.InsertVertices(cv...); err != nil {
				out.Release()
				return nil, err
			}
		}
	}
	return out, nil
}
