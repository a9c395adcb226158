package mesh

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/notargets/simplicial/topology"
)

// Filter returns the mesh of distinct dim-dimensional sub-simplices of the
// cells of m, one per footprint, in the order they are first reached. Each
// sub-simplex keeps the orientation it has in the first cell that reaches
// it; vertices are always positive.
func Filter(m *Mesh, dim int) (*Mesh, error) {
	if dim < 0 || dim > m.dim {
		return nil, fmt.Errorf("filter %s cells from a %s mesh: %w", topology.Name(dim), topology.Name(m.dim), ErrDimension)
	}
	out, err := New(m.topo, dim)
	if err != nil {
		return nil, err
	}
	seen := roaring.New()
	var visit func(s topology.Simplex) error
	visit = func(s topology.Simplex) error {
		if s.Dim() == dim {
			if seen.CheckedAdd(s.ID().Slot.Index) {
				return out.Insert(s)
			}
			return nil
		}
		var subs []topology.Simplex
		var err error
		if dim == 0 {
			subs, err = s.Vertices()
		} else {
			subs, err = s.Composition()
		}
		if err != nil {
			return err
		}
		for _, sub := range subs {
			if err := visit(sub); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range m.cells {
		if err := visit(c); err != nil {
			out.Release()
			return nil, err
		}
	}
	return out, nil
}
