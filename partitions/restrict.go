package partitions

import (
	"fmt"

	"github.com/notargets/simplicial/mesh"
	"github.com/notargets/simplicial/topology"
)

// VertexMap sends each vertex of the source mesh to its copy in the target
// topology. The copies are borrowed from the restricted mesh.
type VertexMap map[topology.FootprintID]topology.Simplex

// Restrict rebuilds the cells of m assigned to part as a mesh over target.
// Cells keep their orientation; vertices shared by the partition's cells are
// shared in the copy.
func Restrict(m *mesh.Mesh, eToP []int, part int, target *topology.Topology) (*mesh.Mesh, VertexMap, error) {
	cells := m.Cells()
	if len(eToP) != len(cells) {
		return nil, nil, fmt.Errorf("EToP length %d does not match %d cells", len(eToP), len(cells))
	}
	out, err := mesh.New(target, m.Dim())
	if err != nil {
		return nil, nil, err
	}

	owned := make(map[topology.FootprintID]topology.Simplex)
	defer func() {
		for _, v := range owned {
			target.Erase(v)
		}
	}()

	for k, c := range cells {
		if eToP[k] != part {
			continue
		}
		vs, err := c.Vertices()
		if err != nil {
			out.Release()
			return nil, nil, fmt.Errorf("cell %d: %w", k, err)
		}
		copies := make([]topology.Simplex, len(vs))
		for i, v := range vs {
			cp, ok := owned[v.FootprintID()]
			if !ok {
				cp = target.Vertex()
				owned[v.FootprintID()] = cp
			}
			copies[i] = cp.Borrow()
		}
		if _, err := out.InsertVertices(copies...); err != nil {
			out.Release()
			return nil, nil, fmt.Errorf("cell %d: %w", k, err)
		}
	}

	vmap := make(VertexMap, len(owned))
	for id, v := range owned {
		vmap[id] = v.Borrow()
	}
	return out, vmap, nil
}

// Split restricts m to every partition of layout, each into a topology of
// its own made by newTopology.
func Split(m *mesh.Mesh, layout *PartitionLayout, newTopology func(part int) (*topology.Topology, error)) ([]*mesh.Mesh, []VertexMap, error) {
	meshes := make([]*mesh.Mesh, layout.NumPartitions)
	maps := make([]VertexMap, layout.NumPartitions)
	release := func() {
		for _, pm := range meshes {
			if pm != nil {
				pm.Release()
			}
		}
	}
	for p := range meshes {
		target, err := newTopology(p)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("partition %d: %w", p, err)
		}
		meshes[p], maps[p], err = Restrict(m, layout.EToP, p, target)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("partition %d: %w", p, err)
		}
	}
	return meshes, maps, nil
}
