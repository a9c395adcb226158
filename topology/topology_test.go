package topology

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/combin"
)

func newTopology(t *testing.T, opts ...Option) *Topology {
	t.Helper()
	topo, err := New(opts...)
	require.NoError(t, err)
	return topo
}

func vertices(topo *Topology, n int) []Simplex {
	vs := make([]Simplex, n)
	for i := range vs {
		vs[i] = topo.Vertex()
	}
	return vs
}

// parity returns +1 for even permutations and -1 for odd ones.
func parity(p []int) Orientation {
	inversions := 0
	for i := range p {
		for j := i + 1; j < len(p); j++ {
			if p[i] > p[j] {
				inversions++
			}
		}
	}
	if inversions%2 == 1 {
		return Negative
	}
	return Positive
}

func TestPermutationsGiveTwoIdentities(t *testing.T) {
	for n := 2; n <= MaxDim+1; n++ {
		topo := newTopology(t)
		vs := vertices(topo, n)

		base, err := topo.Simplex(vs...)
		require.NoError(t, err)
		assert.Equal(t, Positive, base.Orientation())
		assert.Equal(t, n-1, base.Dim())

		ids := make(map[ID]struct{})
		for _, p := range combin.Permutations(n, n) {
			ordered := make([]Simplex, n)
			for i, j := range p {
				ordered[i] = vs[j]
			}
			s, err := topo.Simplex(ordered...)
			require.NoError(t, err)
			ids[s.ID()] = struct{}{}

			assert.Equal(t, parity(p), s.Orientation(), "permutation %v", p)
			assert.Equal(t, base.FootprintID(), s.FootprintID())
			if parity(p) == Positive {
				assert.Equal(t, base.ID(), s.ID())
			} else {
				assert.Equal(t, base.ID().Flip(), s.ID())
			}
		}
		assert.Len(t, ids, 2)
		assert.Equal(t, 1, topo.NSimplices(n-1))
	}
}

func TestFlipTwiceIsIdentity(t *testing.T) {
	topo := newTopology(t)
	vs := vertices(topo, 4)
	cells := []func() (Simplex, error){
		func() (Simplex, error) { return topo.Segment(vs[0], vs[1]) },
		func() (Simplex, error) { return topo.Triangle(vs[2], vs[0], vs[1]) },
		func() (Simplex, error) { return topo.Tetrahedron(vs[3], vs[1], vs[0], vs[2]) },
	}
	for _, build := range cells {
		s, err := build()
		require.NoError(t, err)
		f, err := topo.Flip(s)
		require.NoError(t, err)
		ff, err := topo.Flip(f)
		require.NoError(t, err)
		assert.Equal(t, s.ID(), ff.ID())
		assert.NotEqual(t, s.ID(), f.ID())
		assert.Equal(t, s.FootprintID(), f.FootprintID())
	}
	v, err := topo.Flip(vs[0])
	require.NoError(t, err)
	assert.Equal(t, Negative, v.Orientation())
}

func TestOrientedSegment(t *testing.T) {
	topo := newTopology(t)
	v0, v1 := topo.Vertex(), topo.Vertex()

	s0, err := topo.Segment(v0, v1)
	require.NoError(t, err)
	assert.False(t, topo.ExistsFlipped(s0))

	s1, err := topo.Segment(v0, v1)
	require.NoError(t, err)
	assert.Equal(t, s0.ID(), s1.ID())
	assert.False(t, topo.ExistsFlipped(s0))
	assert.Equal(t, 2, s0.References())

	f, err := topo.Flip(s1)
	require.NoError(t, err)
	ff, err := topo.Flip(f)
	require.NoError(t, err)
	assert.Equal(t, s1.ID(), ff.ID())
	topo.Erase(f)
	topo.Erase(ff)

	s2, err := topo.Segment(v1, v0)
	require.NoError(t, err)
	assert.True(t, topo.ExistsFlipped(s0))
	assert.True(t, topo.ExistsFlipped(s2))

	back, err := topo.Flip(s2)
	require.NoError(t, err)
	assert.Equal(t, s1.ID(), back.ID())
}

func TestHeadAndTail(t *testing.T) {
	topo := newTopology(t)
	a, b := topo.Vertex(), topo.Vertex()

	for _, tc := range []struct {
		tail, head Simplex
	}{
		{a, b},
		{b, a},
	} {
		s, err := topo.Segment(tc.tail, tc.head)
		require.NoError(t, err)
		head, err := s.Head()
		require.NoError(t, err)
		tail, err := s.Tail()
		require.NoError(t, err)
		assert.Equal(t, tc.head.FootprintID(), head.FootprintID())
		assert.Equal(t, tc.tail.FootprintID(), tail.FootprintID())
		assert.True(t, head.Borrowed())

		// the head is the positively oriented face
		faces, err := s.Composition()
		require.NoError(t, err)
		for _, f := range faces {
			if f.FootprintID() == head.FootprintID() {
				assert.Equal(t, Positive, f.Orientation())
			} else {
				assert.Equal(t, Negative, f.Orientation())
			}
		}
	}

	v := topo.Vertex()
	tri, err := topo.Triangle(a, b, v)
	require.NoError(t, err)
	_, err = tri.Head()
	assert.ErrorIs(t, err, ErrDimension)
}

func TestBuildFromFaces(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)
	seg := func(a, b Simplex) Simplex {
		s, err := topo.Segment(a, b)
		require.NoError(t, err)
		return s
	}

	s01, s13, s30 := seg(v[0], v[1]), seg(v[1], v[3]), seg(v[3], v[0])
	cell, err := topo.Build(s01, s13, s30)
	require.NoError(t, err)
	direct, err := topo.Triangle(v[0], v[1], v[3])
	require.NoError(t, err)
	assert.Equal(t, direct.ID(), cell.ID())

	// any rotation of the faces describes the same cell
	rotated, err := topo.Build(s30, s01, s13)
	require.NoError(t, err)
	assert.Equal(t, cell.ID(), rotated.ID())

	// reversing every face reverses the cell
	r01, r13, r30 := seg(v[1], v[0]), seg(v[3], v[1]), seg(v[0], v[3])
	reversed, err := topo.Build(r30, r13, r01)
	require.NoError(t, err)
	assert.Equal(t, cell.ID().Flip(), reversed.ID())

	_, err = topo.Build(s01, s13, r30)
	assert.ErrorIs(t, err, ErrInvalidComposition)

	_, err = topo.Build(s01, s13, s01)
	assert.ErrorIs(t, err, ErrInvalidComposition)

	s12, s23 := seg(v[1], v[2]), seg(v[2], v[3])
	_, err = topo.Build(s01, s12, s23)
	assert.ErrorIs(t, err, ErrDegenerateSimplex)

	_, err = topo.Build(s01)
	assert.ErrorIs(t, err, ErrDimension)
	_, err = topo.Build(s01, v[2], s13)
	assert.ErrorIs(t, err, ErrDimension)
}

func TestBuildTetrahedronFromTriangles(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)

	tet, err := topo.Tetrahedron(v[0], v[1], v[2], v[3])
	require.NoError(t, err)
	faces, err := tet.Composition()
	require.NoError(t, err)
	require.Len(t, faces, 4)

	owned := make([]Simplex, len(faces))
	for i, f := range faces {
		owned[i], err = topo.Clone(f)
		require.NoError(t, err)
	}
	// reverse the order of faces; the omitted vertex pins each face
	again, err := topo.Build(owned[3], owned[2], owned[1], owned[0])
	require.NoError(t, err)
	assert.Equal(t, tet.ID(), again.ID())
	assert.Equal(t, 2, tet.References())
}

func TestDegenerateSimplex(t *testing.T) {
	topo := newTopology(t)
	a, b := topo.Vertex(), topo.Vertex()

	_, err := topo.Triangle(a, b, a)
	assert.ErrorIs(t, err, ErrDegenerateSimplex)
	_, err = topo.Segment(a, a)
	assert.ErrorIs(t, err, ErrDegenerateSimplex)

	_, err = topo.Simplex()
	assert.ErrorIs(t, err, ErrDimension)
	_, err = topo.Simplex(a, b, topo.Vertex(), topo.Vertex(), topo.Vertex())
	assert.ErrorIs(t, err, ErrDimension)

	s, err := topo.Segment(a, b)
	require.NoError(t, err)
	_, err = topo.Segment(s, a)
	assert.ErrorIs(t, err, ErrDimension)

	bad, err := topo.Segment(a, Bad())
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.True(t, bad.IsBad())

	// failed constructions leave nothing behind
	assert.Equal(t, 1, topo.NSimplices(1))
	assert.Equal(t, 0, topo.NSimplices(2))
}

func TestEraseElement(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 5)
	seg := func(a, b Simplex) Simplex {
		s, err := topo.Segment(a, b)
		require.NoError(t, err)
		return s
	}

	s0, s1, s2 := seg(v[0], v[1]), seg(v[1], v[3]), seg(v[3], v[0])
	cell0, err := topo.Build(s0, s1, s2)
	require.NoError(t, err)

	s3, s4, s5 := seg(v[1], v[2]), seg(v[2], v[3]), seg(v[3], v[1])
	cell1, err := topo.Build(s3, s4, s5)
	require.NoError(t, err)

	assert.Equal(t, 2, topo.NSimplices(2))
	assert.True(t, topo.Exists(s0, s1, s2))
	assert.True(t, topo.Exists(s3, s4, s5))
	assert.True(t, topo.ExistsFlipped(s1))

	assert.True(t, topo.Erase(cell0))
	assert.Equal(t, 1, topo.NSimplices(2))
	assert.False(t, topo.Exists(s0, s1, s2))

	assert.True(t, topo.Erase(cell1))
	assert.Equal(t, 0, topo.NSimplices(2))
	assert.False(t, topo.Exists(s3, s4, s5))

	// erasing twice is silent
	assert.False(t, topo.Erase(cell1))
	assert.Equal(t, 1, topo.Stats().RedundantErasures)

	// the segments are still held by the caller
	assert.Equal(t, 5, topo.NSimplices(1))
	assert.True(t, topo.ExistsFlipped(s1))
}

func TestEraseCascadesToFaces(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)

	tet, err := topo.Tetrahedron(v[0], v[1], v[2], v[3])
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6, 4, 1}, []int{
		topo.NSimplices(0), topo.NSimplices(1), topo.NSimplices(2), topo.NSimplices(3),
	})

	tri, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)

	topo.Erase(tet)
	assert.Equal(t, 0, topo.NSimplices(3))
	assert.Equal(t, 1, topo.NSimplices(2))
	assert.Equal(t, 3, topo.NSimplices(1))
	assert.True(t, topo.Exists(v[0], v[1]))
	assert.False(t, topo.Exists(v[0], v[3]))

	topo.Erase(tri)
	assert.Equal(t, 0, topo.NSimplices(1))
	assert.Equal(t, 4, topo.NSimplices(0))

	for _, x := range v {
		topo.Erase(x)
	}
	assert.Equal(t, 0, topo.NSimplices(0))
	assert.False(t, v[0].Alive())
}

func TestReferenceCounts(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)

	// two triangles sharing the diagonal v1-v2 with opposite orientations
	t0, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)
	t1, err := topo.Triangle(v[1], v[3], v[2])
	require.NoError(t, err)

	diag, err := topo.Segment(v[1], v[2])
	require.NoError(t, err)
	assert.True(t, topo.ExistsFlipped(diag))
	assert.Equal(t, 2, diag.References())
	assert.Equal(t, 3, diag.FootprintReferences())

	for _, s := range []Simplex{t0, t1, diag} {
		flipped, err := topo.Flip(s)
		require.NoError(t, err)
		assert.Equal(t, s.FootprintReferences(), s.References()+flipped.References())
		topo.Erase(flipped)
	}

	topo.Erase(diag)
	topo.Erase(t0)
	assert.False(t, topo.ExistsOriented(v[1], v[2]))
	assert.True(t, topo.ExistsOriented(v[2], v[1]))
	assert.True(t, topo.Exists(v[1], v[2]))
	topo.Erase(t1)
	assert.False(t, topo.Exists(v[1], v[2]))
	assert.Equal(t, 0, diag.FootprintReferences())
}

func TestReleasedSlotIsReused(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)

	tri, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)
	old := tri.ID().Slot
	topo.Erase(tri)

	next, err := topo.Triangle(v[0], v[1], v[3])
	require.NoError(t, err)
	assert.Equal(t, old.Index, next.ID().Slot.Index)
	assert.NotEqual(t, old.Generation, next.ID().Slot.Generation)
	assert.False(t, tri.Alive())
	assert.Equal(t, 0, tri.References())
}

func TestSegmentGrowth(t *testing.T) {
	topo := newTopology(t, WithSegmentSize(2))
	vertices(topo, 9)
	st := topo.Stats()
	assert.Equal(t, 9, st.Simplices[0])
	assert.Equal(t, 5, st.Segments[0])
	assert.Equal(t, 10, st.Capacity[0])

	_, err := New(WithSegmentSize(0))
	assert.Error(t, err)
}

func TestCellEdges(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)
	segments := func(pairs ...[2]int) map[ID]struct{} {
		set := make(map[ID]struct{})
		for _, p := range pairs {
			s, err := topo.Segment(v[p[0]], v[p[1]])
			require.NoError(t, err)
			set[s.ID()] = struct{}{}
		}
		return set
	}
	edgeSet := func(s Simplex) map[ID]struct{} {
		edges, err := s.Edges()
		require.NoError(t, err)
		set := make(map[ID]struct{})
		for _, e := range edges {
			set[e.ID()] = struct{}{}
		}
		assert.Len(t, set, len(edges))
		return set
	}

	tri, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)
	assert.Equal(t, segments([2]int{0, 1}, [2]int{1, 2}, [2]int{2, 0}), edgeSet(tri))

	tet, err := topo.Tetrahedron(v[0], v[1], v[2], v[3])
	require.NoError(t, err)
	assert.Equal(t, segments(
		[2]int{0, 1}, [2]int{1, 3}, [2]int{3, 0}, [2]int{1, 2},
		[2]int{2, 0}, [2]int{2, 3}, [2]int{3, 1}, [2]int{0, 3},
		[2]int{3, 2}, [2]int{0, 2}, [2]int{2, 1}, [2]int{1, 0},
	), edgeSet(tet))
}

func TestVerticesFollowOrientation(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 3)

	tri, err := topo.Triangle(v[1], v[0], v[2])
	require.NoError(t, err)
	vs, err := tri.Vertices()
	require.NoError(t, err)
	again, err := topo.Simplex(vs...)
	require.NoError(t, err)
	assert.Equal(t, tri.ID(), again.ID())

	serials := make([]uint64, 0, 3)
	for _, x := range v {
		s, err := x.Serial()
		require.NoError(t, err)
		serials = append(serials, s)
	}
	assert.Less(t, serials[0], serials[1])
	assert.Less(t, serials[1], serials[2])
	_, err = tri.Serial()
	assert.ErrorIs(t, err, ErrDimension)
}

func TestExistsOriented(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 4)

	s, err := topo.Segment(v[1], v[3])
	require.NoError(t, err)
	assert.True(t, topo.Exists(v[1], v[3]))
	assert.True(t, topo.Exists(v[3], v[1]))
	assert.True(t, topo.ExistsOriented(v[1], v[3]))
	assert.False(t, topo.ExistsOriented(v[3], v[1]))
	assert.False(t, topo.Exists(v[0], v[3]))

	tri, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)
	faces, err := tri.Composition()
	require.NoError(t, err)
	assert.True(t, topo.ExistsOriented(faces...))
	assert.True(t, topo.ExistsOriented(v[1], v[2], v[0]))
	assert.False(t, topo.ExistsOriented(v[1], v[0], v[2]))
	assert.True(t, topo.Exists(v[1], v[0], v[2]))

	topo.Erase(s)
	assert.False(t, topo.Exists(v[1], v[3]))
	assert.False(t, topo.Exists())
	assert.False(t, topo.Exists(Bad()))
}

func TestBadSimplex(t *testing.T) {
	topo := newTopology(t)
	b := Bad()

	assert.True(t, b.IsBad())
	assert.True(t, b.Borrowed())
	assert.False(t, b.Owned())
	assert.False(t, b.Alive())
	assert.Equal(t, ID{}, b.ID())
	assert.Equal(t, 0, b.References())
	assert.Equal(t, 0, b.FootprintReferences())

	_, err := b.Composition()
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = b.Vertices()
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = topo.Flip(b)
	assert.ErrorIs(t, err, ErrInvalidReference)
	_, err = topo.Clone(b)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.False(t, topo.ExistsFlipped(b))
	assert.False(t, topo.Erase(b))

	// simplices do not cross topologies
	other := newTopology(t)
	v := other.Vertex()
	_, err = topo.Clone(v)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.False(t, topo.Erase(v))
	assert.Equal(t, 2, topo.Stats().RedundantErasures)
}

func TestBorrowedSimplices(t *testing.T) {
	topo := newTopology(t)
	v := vertices(topo, 3)

	tri, err := topo.Triangle(v[0], v[1], v[2])
	require.NoError(t, err)
	faces, err := tri.Composition()
	require.NoError(t, err)

	// erasing a borrowed face does not touch counts
	assert.False(t, topo.Erase(faces[0]))
	assert.Equal(t, 1, faces[0].References())

	owned, err := topo.Clone(faces[0])
	require.NoError(t, err)
	assert.Equal(t, 2, faces[0].References())
	topo.Erase(tri)
	assert.Equal(t, 1, owned.References())
	assert.Equal(t, 1, topo.NSimplices(1))

	// composition of the other orientation is derived from the owned one
	flipped, err := topo.Flip(owned)
	require.NoError(t, err)
	fwd, err := owned.Composition()
	require.NoError(t, err)
	rev, err := flipped.Composition()
	require.NoError(t, err)
	for i := range fwd {
		assert.Equal(t, fwd[i].ID().Flip(), rev[i].ID())
	}
}

func TestRedundantEraseIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	topo := newTopology(t, WithLogger(logger))

	v := topo.Vertex()
	assert.True(t, topo.Erase(v))
	assert.False(t, topo.Erase(v))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "redundant erase", hook.LastEntry().Message)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	assert.Equal(t, 1, topo.Stats().RedundantErasures)
}

func TestDefaultIsShared(t *testing.T) {
	a := Default()
	b := Default()
	require.NotNil(t, a)
	assert.Same(t, a, b)
}

func TestName(t *testing.T) {
	assert.Equal(t, "vertex", Name(0))
	assert.Equal(t, "tetrahedron", Name(3))
	assert.Equal(t, "4-simplex", Name(4))
}
