package partitions

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/notargets/simplicial/mesh"
	"github.com/notargets/simplicial/topology"
)

// DualGraph is the cell adjacency of a mesh: one node per cell, one edge per
// face shared by two cells.
type DualGraph struct {
	Graph  *simple.UndirectedGraph
	NCells int
	Nfaces int // Faces per cell

	// Face connectivity. A boundary face points back at its own cell and
	// face.
	EToE [][]int // Cell-to-cell connectivity
	EToF [][]int // Cell-to-face connectivity

	// Faces shared by more than two cells
	NonManifold int
}

type faceOwner struct {
	cell, face int
}

// NewDualGraph builds the dual graph of m. Cells are numbered in the order
// m.Cells returns them; face f of a cell is the f-th face of its composition.
func NewDualGraph(m *mesh.Mesh) (*DualGraph, error) {
	if m.Dim() < 1 {
		return nil, fmt.Errorf("dual graph of a %s mesh: %w", topology.Name(m.Dim()), mesh.ErrDimension)
	}
	cells := m.Cells()
	dg := &DualGraph{
		Graph:  simple.NewUndirectedGraph(),
		NCells: len(cells),
		Nfaces: m.Dim() + 1,
		EToE:   make([][]int, len(cells)),
		EToF:   make([][]int, len(cells)),
	}

	owners := make(map[topology.FootprintID]faceOwner)
	for k, c := range cells {
		dg.Graph.AddNode(simple.Node(k))
		dg.EToE[k] = make([]int, dg.Nfaces)
		dg.EToF[k] = make([]int, dg.Nfaces)

		faces, err := c.Composition()
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", k, err)
		}
		for f, face := range faces {
			dg.EToE[k][f] = k
			dg.EToF[k][f] = f

			id := face.FootprintID()
			other, found := owners[id]
			if !found {
				owners[id] = faceOwner{cell: k, face: f}
				continue
			}
			if dg.EToE[other.cell][other.face] != other.cell {
				dg.NonManifold++
				continue
			}
			dg.EToE[k][f] = other.cell
			dg.EToF[k][f] = other.face
			dg.EToE[other.cell][other.face] = k
			dg.EToF[other.cell][other.face] = f
			if other.cell != k && !dg.Graph.HasEdgeBetween(int64(k), int64(other.cell)) {
				dg.Graph.SetEdge(simple.Edge{F: simple.Node(other.cell), T: simple.Node(k)})
			}
		}
	}
	return dg, nil
}

// IsBoundary reports whether face f of cell k has no neighbor.
func (dg *DualGraph) IsBoundary(k, f int) bool { return dg.EToE[k][f] == k && dg.EToF[k][f] == f }

// NumBoundaryFaces counts faces without a neighbor.
func (dg *DualGraph) NumBoundaryFaces() int {
	n := 0
	for k := range dg.EToE {
		for f := range dg.EToE[k] {
			if dg.IsBoundary(k, f) {
				n++
			}
		}
	}
	return n
}

// Components returns the cells of each connected component, each sorted by
// cell number.
func (dg *DualGraph) Components() [][]int {
	var out [][]int
	for _, comp := range topo.ConnectedComponents(dg.Graph) {
		cells := make([]int, len(comp))
		for i, n := range comp {
			cells[i] = int(n.ID())
		}
		slices.Sort(cells)
		out = append(out, cells)
	}
	slices.SortFunc(out, func(a, b []int) int { return a[0] - b[0] })
	return out
}
