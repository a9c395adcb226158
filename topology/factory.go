package topology

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/notargets/simplicial/arena"
	"github.com/notargets/simplicial/shared"
)

type handle = shared.Handle[footprint, *footprint]

// vertexRef is a non-owning link from a footprint to one of its vertices.
type vertexRef struct {
	slot   arena.Slot
	serial uint64
}

// footprint is the unoriented simplex stored in the arena. vertices are kept
// in canonical (ascending serial) order. uses counts the owners of each
// oriented view; their sum equals the repository count of the slot. faces
// holds the face tokens owned by each view while that view has owners.
type footprint struct {
	arena.Flag
	dim      int
	vertices []vertexRef
	uses     [2]int
	faces    [2][]Simplex
}

// key identifies a vertex set. Serials start at 1, so unused entries are 0.
type key [MaxDim + 1]uint64

func keyOf(vertices []vertexRef) key {
	var k key
	for i, v := range vertices {
		k[i] = v.serial
	}
	return k
}

func compareRefs(a, b vertexRef) int { return cmp.Compare(a.serial, b.serial) }

// sortRefs sorts vs into canonical order and returns the orientation of the
// permutation that was undone.
func sortRefs(vs []vertexRef) Orientation {
	swaps := 0
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j].serial < vs[j-1].serial; j-- {
			vs[j], vs[j-1] = vs[j-1], vs[j]
			swaps++
		}
	}
	if swaps%2 == 1 {
		return Negative
	}
	return Positive
}

// lookup returns the live footprint behind s.
func (t *Topology) lookup(s Simplex) (*footprint, error) {
	if s.IsBad() {
		return nil, fmt.Errorf("bad simplex: %w", ErrInvalidReference)
	}
	if s.topo != t {
		return nil, fmt.Errorf("%v belongs to another topology: %w", s, ErrInvalidReference)
	}
	fp := t.repos[s.dim].Get(s.slot)
	if fp == nil {
		return nil, fmt.Errorf("%v: %w", s, ErrInvalidReference)
	}
	return fp, nil
}

// vertexSet resolves a list of vertices to canonical order and the
// orientation of the given order.
func (t *Topology) vertexSet(vertices []Simplex) ([]vertexRef, Orientation, error) {
	refs := make([]vertexRef, 0, len(vertices))
	for _, v := range vertices {
		if v.dim != 0 {
			return nil, 0, fmt.Errorf("%v is not a vertex: %w", v, ErrDimension)
		}
		fp, err := t.lookup(v)
		if err != nil {
			return nil, 0, err
		}
		refs = append(refs, fp.vertices[0])
	}
	o := sortRefs(refs)
	for i := 1; i < len(refs); i++ {
		if refs[i].serial == refs[i-1].serial {
			return nil, 0, fmt.Errorf("repeated vertex %d: %w", refs[i].serial, ErrDegenerateSimplex)
		}
	}
	return refs, o, nil
}

// span returns the canonical union of the vertices of items.
func (t *Topology) span(items []Simplex) ([]vertexRef, error) {
	seen := make(map[uint64]struct{}, len(items)+1)
	var verts []vertexRef
	for _, s := range items {
		fp, err := t.lookup(s)
		if err != nil {
			return nil, err
		}
		for _, v := range fp.vertices {
			if _, ok := seen[v.serial]; ok {
				continue
			}
			seen[v.serial] = struct{}{}
			verts = append(verts, v)
		}
	}
	slices.SortFunc(verts, compareRefs)
	return verts, nil
}

// composition checks that faces close into one oriented simplex and returns
// its canonical vertices and orientation.
func (t *Topology) composition(faces []Simplex) ([]vertexRef, Orientation, error) {
	d := len(faces) - 1
	for _, f := range faces {
		if f.dim != d-1 {
			return nil, 0, fmt.Errorf("%v in a %s composition: %w", f, Name(d), ErrDimension)
		}
	}
	verts, err := t.span(faces)
	if err != nil {
		return nil, 0, err
	}
	if len(verts) != d+1 {
		return nil, 0, fmt.Errorf("%s spanning %d vertices: %w", Name(d), len(verts), ErrDegenerateSimplex)
	}

	var sigma Orientation
	omitted := make([]bool, d+1)
	for j, f := range faces {
		fp := t.repos[f.dim].Get(f.slot)
		i := omittedIndex(verts, fp.vertices)
		if omitted[i] {
			return nil, 0, fmt.Errorf("face %d repeats %v: %w", j, f, ErrInvalidComposition)
		}
		omitted[i] = true
		s := f.orientation
		if i%2 == 1 {
			s = -s
		}
		if j == 0 {
			sigma = s
		} else if s != sigma {
			return nil, 0, fmt.Errorf("face %d orientation disagrees: %w", j, ErrInvalidComposition)
		}
	}
	return verts, sigma, nil
}

// omittedIndex returns the position in all of the single vertex missing from
// face. Both are in canonical order.
func omittedIndex(all, face []vertexRef) int {
	for i := range face {
		if face[i].serial != all[i].serial {
			return i
		}
	}
	return len(face)
}

// intern returns a reference to view o of the footprint on verts, creating
// the footprint if needed. verts must be canonical.
func (t *Topology) intern(dim int, verts []vertexRef, o Orientation) (Simplex, error) {
	k := keyOf(verts)
	if slot, ok := t.index[dim][k]; ok {
		return t.acquire(dim, slot, o)
	}
	if dim == 0 {
		return Bad(), fmt.Errorf("vertex %d: %w", verts[0].serial, ErrInvalidReference)
	}
	h := t.repos[dim].Emplace(footprint{dim: dim, vertices: verts})
	t.index[dim][k] = h.ID()
	return t.own(h, o)
}

func (t *Topology) acquire(dim int, slot arena.Slot, o Orientation) (Simplex, error) {
	h, err := t.repos[dim].Acquire(slot)
	if err != nil {
		return Bad(), err
	}
	return t.own(h, o)
}

// own records h as an owner of view o, building the faces of the view on its
// first owner.
func (t *Topology) own(h *handle, o Orientation) (Simplex, error) {
	fp, err := h.Get()
	if err != nil {
		return Bad(), err
	}
	s := Simplex{owner: h, topo: t, dim: fp.dim, slot: h.ID(), orientation: o}
	i := o.index()
	fp.uses[i]++
	if fp.uses[i] > 1 || fp.dim == 0 {
		return s, nil
	}
	faces, err := t.makeFaces(fp, o)
	if err != nil {
		fp.uses[i]--
		_ = h.Release()
		return Bad(), err
	}
	fp.faces[i] = faces
	return s, nil
}

// makeFaces acquires the faces of view o of fp. Face i omits canonical vertex
// i and has orientation o·(-1)^i.
func (t *Topology) makeFaces(fp *footprint, o Orientation) ([]Simplex, error) {
	d := fp.dim
	faces := make([]Simplex, 0, d+1)
	for i := 0; i <= d; i++ {
		sub := make([]vertexRef, 0, d)
		sub = append(sub, fp.vertices[:i]...)
		sub = append(sub, fp.vertices[i+1:]...)
		fo := o
		if i%2 == 1 {
			fo = -o
		}
		f, err := t.intern(d-1, sub, fo)
		if err != nil {
			for _, done := range faces {
				t.release(done)
			}
			return nil, err
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// release drops the live reference held by s.
func (t *Topology) release(s Simplex) {
	fp := t.repos[s.dim].Get(s.slot)
	i := s.orientation.index()
	fp.uses[i]--
	if fp.uses[i] < 0 {
		panic(fmt.Sprintf("topology: %v released more often than acquired", s))
	}
	if fp.uses[i] == 0 {
		faces := fp.faces[i]
		fp.faces[i] = nil
		for _, f := range faces {
			t.release(f)
		}
	}
	_ = s.owner.Release()
}
