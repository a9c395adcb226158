package mesh

import (
	"fmt"

	"github.com/notargets/simplicial/topology"
)

// sharedEdge returns the footprints of the segments of a that are also
// segments of b.
func sharedEdge(a, b topology.Simplex) ([]topology.FootprintID, error) {
	ea, err := a.Composition()
	if err != nil {
		return nil, err
	}
	eb, err := b.Composition()
	if err != nil {
		return nil, err
	}
	inB := make(map[topology.FootprintID]struct{}, len(eb))
	for _, e := range eb {
		inB[e.FootprintID()] = struct{}{}
	}
	var shared []topology.FootprintID
	for _, e := range ea {
		if _, ok := inB[e.FootprintID()]; ok {
			shared = append(shared, e.FootprintID())
		}
	}
	return shared, nil
}

// opposite rotates the oriented vertices of tri so that the vertex off edge
// comes last, returning (p, q, o). Rotation keeps the orientation.
func opposite(tri topology.Simplex, edge []topology.Simplex) (p, q, o topology.Simplex, err error) {
	vs, err := tri.Vertices()
	if err != nil {
		return p, q, o, err
	}
	on := make(map[topology.FootprintID]struct{}, 2)
	for _, v := range edge {
		on[v.FootprintID()] = struct{}{}
	}
	for k, v := range vs {
		if _, ok := on[v.FootprintID()]; !ok {
			return vs[(k+1)%3], vs[(k+2)%3], v, nil
		}
	}
	return p, q, o, fmt.Errorf("%v has no vertex off the shared edge: %w", tri, ErrNotAdjacent)
}

// FlipDiagonal replaces the edge shared by triangles a and b with the edge
// joining their opposite vertices. It returns the two new triangles, owned by
// the caller, and leaves a and b untouched; inserting the new pair and erasing
// the old one is up to the caller. With a = (p, q, oa) and opposite vertex ob
// of b, the new triangles are (oa, p, ob) and (ob, q, oa), so a consistently
// oriented pair stays consistently oriented.
func FlipDiagonal(topo *topology.Topology, a, b topology.Simplex) (topology.Simplex, topology.Simplex, error) {
	bad := topology.Bad()
	if a.Dim() != 2 || b.Dim() != 2 {
		return bad, bad, fmt.Errorf("flip diagonal of %v and %v: %w", a, b, ErrDimension)
	}
	shared, err := sharedEdge(a, b)
	if err != nil {
		return bad, bad, err
	}
	if len(shared) != 1 {
		return bad, bad, fmt.Errorf("%v and %v share %d edges: %w", a, b, len(shared), ErrNotAdjacent)
	}

	var edge []topology.Simplex
	faces, _ := a.Composition()
	for _, f := range faces {
		if f.FootprintID() == shared[0] {
			edge, err = f.Vertices()
			if err != nil {
				return bad, bad, err
			}
		}
	}
	p, q, oa, err := opposite(a, edge)
	if err != nil {
		return bad, bad, err
	}
	_, _, ob, err := opposite(b, edge)
	if err != nil {
		return bad, bad, err
	}

	t0, err := topo.Triangle(oa, p, ob)
	if err != nil {
		return bad, bad, err
	}
	t1, err := topo.Triangle(ob, q, oa)
	if err != nil {
		topo.Erase(t0)
		return bad, bad, err
	}
	return t0, t1, nil
}
