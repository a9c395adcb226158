package partitions

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/simplicial/topology"
)

// parity reports whether b is an even permutation of a.
func parity(t *testing.T, a, b []topology.FootprintID) bool {
	t.Helper()
	require.Len(t, b, len(a))
	pos := make(map[topology.FootprintID]int, len(a))
	for i, id := range a {
		pos[id] = i
	}
	perm := make([]int, len(b))
	for i, id := range b {
		j, ok := pos[id]
		require.True(t, ok, "vertex %v is not in %v", id, a)
		perm[i] = j
	}
	even := true
	for i := range perm {
		for perm[i] != i {
			j := perm[i]
			perm[i], perm[j] = perm[j], perm[i]
			even = !even
		}
	}
	return even
}

func vertexIDs(t *testing.T, s topology.Simplex) []topology.FootprintID {
	t.Helper()
	vs, err := s.Vertices()
	require.NoError(t, err)
	ids := make([]topology.FootprintID, len(vs))
	for i, v := range vs {
		ids[i] = v.FootprintID()
	}
	return ids
}

func TestRestrictKeepsOrientation(t *testing.T) {
	src := newTopology(t)
	m := refinedSquare(t, src)
	dg, err := NewDualGraph(m)
	require.NoError(t, err)
	pb := &PartitionBuilder{Graph: dg, NumPartitions: 3, Strategy: RoundRobin}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)

	before := src.Stats()
	cells := m.Cells()
	for p := 0; p < layout.NumPartitions; p++ {
		target := newTopology(t)
		rm, vmap, err := Restrict(m, layout.EToP, p, target)
		require.NoError(t, err)
		assert.Equal(t, layout.Partitions[p].NumCells, rm.NCells())
		assert.Equal(t, len(vmap), target.NSimplices(0))

		back := make(map[topology.FootprintID]topology.FootprintID, len(vmap))
		for from, to := range vmap {
			assert.Equal(t, target, to.Topology())
			back[to.FootprintID()] = from
		}
		for i, rc := range rm.Cells() {
			source := cells[layout.Partitions[p].Cells[i]]
			mapped := vertexIDs(t, rc)
			for j := range mapped {
				mapped[j] = back[mapped[j]]
			}
			assert.True(t, parity(t, vertexIDs(t, source), mapped), "cell %d flipped", i)
		}

		// the vertex copies live as long as the restricted mesh
		rm.Release()
		assert.Equal(t, 0, target.NSimplices(0))
	}
	assert.Equal(t, before, src.Stats())
}

func TestRestrictWholeMesh(t *testing.T) {
	src := newTopology(t)
	m := refinedSquare(t, src)

	rm, vmap, err := Restrict(m, make([]int, m.NCells()), 0, newTopology(t))
	require.NoError(t, err)
	assert.Equal(t, 16, rm.NCells())
	assert.Len(t, vmap, 13)
	assert.Equal(t, m.BoundarySize(), rm.BoundarySize())
	assert.Equal(t, src.NSimplices(1), rm.Topology().NSimplices(1))

	empty, vmap, err := Restrict(m, make([]int, m.NCells()), 1, newTopology(t))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NCells())
	assert.Empty(t, vmap)

	_, _, err = Restrict(m, []int{0}, 0, newTopology(t))
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	m := refinedSquare(t, newTopology(t))
	dg, err := NewDualGraph(m)
	require.NoError(t, err)
	pb := &PartitionBuilder{Graph: dg, NumPartitions: 4, Strategy: GraphPartition}
	layout, err := pb.BuildPartitions()
	require.NoError(t, err)

	meshes, maps, err := Split(m, layout, func(int) (*topology.Topology, error) {
		return topology.New()
	})
	require.NoError(t, err)
	require.Len(t, meshes, 4)
	require.Len(t, maps, 4)

	cells, boundary := 0, 0
	for p, pm := range meshes {
		cells += pm.NCells()
		boundary += pm.BoundarySize()
		assert.Equal(t, layout.Partitions[p].NumCells, pm.NCells())
	}
	assert.Equal(t, 16, cells)
	// partition interfaces show up once on each side
	interfaces := 0
	for _, faces := range layout.AnalyzeCommunication(dg) {
		interfaces += len(faces)
	}
	assert.Equal(t, dg.NumBoundaryFaces()+interfaces, boundary)

	boom := errors.New("boom")
	_, _, err = Split(m, layout, func(p int) (*topology.Topology, error) {
		if p == 2 {
			return nil, boom
		}
		return topology.New()
	})
	assert.ErrorIs(t, err, boom)
}
