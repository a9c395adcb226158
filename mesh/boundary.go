package mesh

import (
	"fmt"

	"github.com/notargets/simplicial/topology"
)

// IsOnBoundary reports whether the footprint of face is a face of exactly
// one cell of m.
func (m *Mesh) IsOnBoundary(face topology.Simplex) bool {
	if face.Dim() != m.dim-1 {
		return false
	}
	counts := m.faces[face.FootprintID()]
	return counts[0]+counts[1] == 1
}

// BoundarySize returns the number of boundary faces of m.
func (m *Mesh) BoundarySize() int {
	n := 0
	for _, counts := range m.faces {
		if counts[0]+counts[1] == 1 {
			n++
		}
	}
	return n
}

// Boundary returns the mesh of faces referenced by exactly one cell of m.
// Each face carries the orientation induced by the cell it bounds. The
// boundary of a closed mesh is empty.
func (m *Mesh) Boundary() (*Mesh, error) {
	if m.dim == 0 {
		return nil, fmt.Errorf("boundary of a vertex mesh: %w", ErrDimension)
	}
	out, err := New(m.topo, m.dim-1)
	if err != nil {
		return nil, err
	}
	for _, c := range m.cells {
		faces, err := c.Composition()
		if err != nil {
			out.Release()
			return nil, err
		}
		for _, f := range faces {
			if !m.IsOnBoundary(f) {
				continue
			}
			if err := out.Insert(f); err != nil {
				out.Release()
				return nil, err
			}
		}
	}
	return out, nil
}
