// Package readers loads simplicial meshes from files through the gocfd mesh
// readers.
package readers

import (
	"fmt"

	gmesh "github.com/notargets/gocfd/DG3D/mesh"
	"github.com/notargets/gocfd/DG3D/mesh/readers"

	"github.com/notargets/simplicial/mesh"
	"github.com/notargets/simplicial/topology"
)

// Loaded is a mesh read into a Topology together with what the topology
// itself does not keep.
type Loaded struct {
	Mesh *mesh.Mesh
	// Vertices[i] is file vertex i, borrowed from Mesh. Vertices that no
	// kept cell uses are Bad.
	Vertices []topology.Simplex
	// Coordinates of each vertex footprint, when the source had them
	Coordinates map[topology.FootprintID][]float64
	// Partition of each kept cell, when the source had one
	EToP []int
	// Elements dropped because they are not simplices of the mesh dimension
	Skipped int
}

// ReadMeshFile reads any format the gocfd readers understand and builds its
// simplicial cells in topo.
func ReadMeshFile(topo *topology.Topology, path string) (*Loaded, error) {
	msh, err := readers.ReadMeshFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return FromMesh(topo, msh)
}

// FromMesh builds the simplicial cells of a gocfd mesh in topo. Cells are
// oriented so their signed volume is positive.
func FromMesh(topo *topology.Topology, msh *gmesh.Mesh) (*Loaded, error) {
	coords := msh.Vertices
	l, kept, err := build(topo, len(coords), msh.EtoV, func(cell []int) []int {
		return orient(coords, cell)
	})
	if err != nil {
		return nil, err
	}

	l.Coordinates = make(map[topology.FootprintID][]float64, len(coords))
	for i, v := range l.Vertices {
		if !v.IsBad() {
			l.Coordinates[v.FootprintID()] = coords[i]
		}
	}
	if len(msh.EToP) == len(msh.EtoV) {
		l.EToP = make([]int, len(kept))
		for i, k := range kept {
			l.EToP[i] = msh.EToP[k]
		}
	}
	return l, nil
}

// FromConnectivity builds cells from raw EtoV rows over nverts vertices,
// keeping the vertex order of each row.
func FromConnectivity(topo *topology.Topology, nverts int, etov [][]int) (*Loaded, error) {
	l, _, err := build(topo, nverts, etov, nil)
	return l, err
}

// cellDim is the dimension of the highest simplex in etov.
func cellDim(etov [][]int) int {
	dim := -1
	for _, row := range etov {
		if len(row) <= topology.MaxDim+1 {
			dim = max(dim, len(row)-1)
		}
	}
	return dim
}

func build(topo *topology.Topology, nverts int, etov [][]int, reorder func([]int) []int) (*Loaded, []int, error) {
	dim := cellDim(etov)
	if dim < 0 {
		return nil, nil, fmt.Errorf("no simplicial cells among %d elements: %w", len(etov), mesh.ErrDimension)
	}
	m, err := mesh.New(topo, dim)
	if err != nil {
		return nil, nil, err
	}

	owned := make([]topology.Simplex, nverts)
	for i := range owned {
		owned[i] = topo.Vertex()
	}
	defer func() {
		for _, v := range owned {
			topo.Erase(v)
		}
	}()

	l := &Loaded{Mesh: m}
	var kept []int
	for k, row := range etov {
		if len(row) != dim+1 {
			l.Skipped++
			continue
		}
		if reorder != nil {
			row = reorder(row)
		}
		vs := make([]topology.Simplex, len(row))
		for i, vi := range row {
			if vi < 0 || vi >= nverts {
				m.Release()
				return nil, nil, fmt.Errorf("element %d: vertex %d out of range [0,%d)", k, vi, nverts)
			}
			vs[i] = owned[vi]
		}
		if _, err := m.InsertVertices(vs...); err != nil {
			m.Release()
			return nil, nil, fmt.Errorf("element %d: %w", k, err)
		}
		kept = append(kept, k)
	}

	l.Vertices = make([]topology.Simplex, nverts)
	for i, v := range owned {
		// only the mesh keeps a vertex alive once owned goes
		if v.FootprintReferences() > 1 {
			l.Vertices[i] = v.Borrow()
		}
	}
	return l, kept, nil
}

// orient swaps the first two vertices of cell when its signed volume in
// coords is negative. Segments, triangles off the z=0 plane and cells with
// missing coordinates keep their order.
func orient(coords [][]float64, cell []int) []int {
	n := len(cell) - 1
	if n < 2 {
		return cell
	}
	var e [3][3]float64
	for i := 1; i <= n; i++ {
		a, b := coordsOf(coords, cell[0]), coordsOf(coords, cell[i])
		if a == nil || b == nil {
			return cell
		}
		for j := 0; j < 3 && j < len(a) && j < len(b); j++ {
			e[i-1][j] = b[j] - a[j]
		}
	}
	var vol float64
	switch n {
	case 2:
		if e[0][2] != 0 || e[1][2] != 0 {
			// a surface in space has no inside to orient by
			return cell
		}
		vol = e[0][0]*e[1][1] - e[0][1]*e[1][0]
	case 3:
		vol = e[0][0]*(e[1][1]*e[2][2]-e[1][2]*e[2][1]) -
			e[0][1]*(e[1][0]*e[2][2]-e[1][2]*e[2][0]) +
			e[0][2]*(e[1][0]*e[2][1]-e[1][1]*e[2][0])
	}
	if vol >= 0 {
		return cell
	}
	out := append([]int(nil), cell...)
	out[0], out[1] = out[1], out[0]
	return out
}

func coordsOf(coords [][]float64, i int) []float64 {
	if i < 0 || i >= len(coords) {
		return nil
	}
	return coords[i]
}
