// Package mesh holds collections of top-dimensional cells over a Topology and
// the structural algorithms that derive new meshes from them.
package mesh

import (
	"errors"
	"fmt"

	"github.com/notargets/simplicial/topology"
)

var (
	// ErrNotAdjacent means two cells do not share exactly one face.
	ErrNotAdjacent = errors.New("cells are not adjacent")
	// ErrDimension means a cell or face has the wrong dimension for the mesh.
	ErrDimension = errors.New("dimension mismatch")
)

// Mesh is an ordered, duplicate-tolerant collection of cells of one
// dimension. The mesh owns one reference per stored cell.
type Mesh struct {
	topo  *topology.Topology
	dim   int
	cells []topology.Simplex
	// owners of each face footprint, per orientation
	faces map[topology.FootprintID][2]int
}

// New creates an empty mesh of cells of dimension dim.
func New(topo *topology.Topology, dim int) (*Mesh, error) {
	if topo == nil {
		return nil, fmt.Errorf("mesh without topology: %w", topology.ErrInvalidReference)
	}
	if dim < 0 || dim > topology.MaxDim {
		return nil, fmt.Errorf("mesh of dimension %d: %w", dim, ErrDimension)
	}
	return &Mesh{
		topo:  topo,
		dim:   dim,
		faces: make(map[topology.FootprintID][2]int),
	}, nil
}

func (m *Mesh) Topology() *topology.Topology { return m.topo }
func (m *Mesh) Dim() int { return m.dim }
func (m *Mesh) NCells() int { return len(m.cells) }

// Cells returns the cells in insertion order. The returned simplices are
// borrowed from the mesh.
func (m *Mesh) Cells() []topology.Simplex {
	out := make([]topology.Simplex, len(m.cells))
	for i, c := range m.cells {
		out[i] = c.Borrow()
	}
	return out
}

func (m *Mesh) check(cell topology.Simplex) error {
	if cell.IsBad() || cell.Topology() != m.topo {
		return fmt.Errorf("insert %v: %w", cell, topology.ErrInvalidReference)
	}
	if cell.Dim() != m.dim {
		return fmt.Errorf("insert %v into a %s mesh: %w", cell, topology.Name(m.dim), ErrDimension)
	}
	return nil
}

// Insert adds a new reference to cell. The caller keeps its own reference.
func (m *Mesh) Insert(cell topology.Simplex) error {
	if err := m.check(cell); err != nil {
		return err
	}
	owned, err := m.topo.Clone(cell)
	if err != nil {
		return err
	}
	return m.adopt(owned)
}

// InsertVertices builds the cell spanned by vertices and adds it. The
// returned cell is borrowed from the mesh.
func (m *Mesh) InsertVertices(vertices ...topology.Simplex) (topology.Simplex, error) {
	if len(vertices) != m.dim+1 {
		return topology.Bad(), fmt.Errorf("%d vertices for a %s: %w", len(vertices), topology.Name(m.dim), ErrDimension)
	}
	cell, err := m.topo.Simplex(vertices...)
	if err != nil {
		return topology.Bad(), err
	}
	if err := m.adopt(cell); err != nil {
		return topology.Bad(), err
	}
	return cell.Borrow(), nil
}

// adopt stores an owned cell without taking another reference.
func (m *Mesh) adopt(cell topology.Simplex) error {
	if err := m.check(cell); err != nil {
		m.topo.Erase(cell)
		return err
	}
	if err := m.register(cell, 1); err != nil {
		m.topo.Erase(cell)
		return err
	}
	m.cells = append(m.cells, cell)
	return nil
}

func (m *Mesh) register(cell topology.Simplex, delta int) error {
	if m.dim == 0 {
		return nil
	}
	faces, err := cell.Composition()
	if err != nil {
		return err
	}
	for _, f := range faces {
		id := f.FootprintID()
		counts := m.faces[id]
		if f.Orientation() == topology.Positive {
			counts[0] += delta
		} else {
			counts[1] += delta
		}
		if counts == [2]int{} {
			delete(m.faces, id)
		} else {
			m.faces[id] = counts
		}
	}
	return nil
}

// Erase removes the first cell with the same oriented identity as cell and
// drops the mesh's reference to it. It returns false if no such cell is
// stored.
func (m *Mesh) Erase(cell topology.Simplex) bool {
	for i, c := range m.cells {
		if c.ID() == cell.ID() {
			m.eraseAt(i)
			return true
		}
	}
	return false
}

func (m *Mesh) eraseAt(i int) {
	c := m.cells[i]
	_ = m.register(c, -1)
	m.cells = append(m.cells[:i], m.cells[i+1:]...)
	m.topo.Erase(c)
}

// Release drops every cell.
func (m *Mesh) Release() {
	for _, c := range m.cells {
		m.topo.Erase(c)
	}
	m.cells = nil
	clear(m.faces)
}

// EraseGeometricalDuplicates keeps the first of each group of cells with the
// same oriented identity and returns the number of cells removed.
func (m *Mesh) EraseGeometricalDuplicates() int {
	return m.dedup(func(c topology.Simplex) any { return c.ID() })
}

// EraseTopologicalDuplicates keeps the first of each group of cells with the
// same footprint, regardless of orientation, and returns the number of cells
// removed.
func (m *Mesh) EraseTopologicalDuplicates() int {
	return m.dedup(func(c topology.Simplex) any { return c.FootprintID() })
}

func (m *Mesh) dedup(keyOf func(topology.Simplex) any) int {
	seen := make(map[any]struct{}, len(m.cells))
	removed := 0
	for i := 0; i < len(m.cells); {
		k := keyOf(m.cells[i])
		if _, ok := seen[k]; ok {
			m.eraseAt(i)
			removed++
			continue
		}
		seen[k] = struct{}{}
		i++
	}
	return removed
}
