package topology

import (
	"fmt"

	"github.com/notargets/simplicial/arena"
)

// Orientation is the sign of an oriented simplex.
type Orientation int8

const (
	Positive Orientation = 1
	Negative Orientation = -1
)

func (o Orientation) index() int {
	if o < 0 {
		return 1
	}
	return 0
}

func (o Orientation) String() string {
	if o < 0 {
		return "-"
	}
	return "+"
}

// FootprintID identifies the unoriented simplex shared by both views.
type FootprintID struct {
	Dim  int
	Slot arena.Slot
}

// ID identifies an oriented simplex. IDs are comparable and stay valid as
// map keys after the simplex is erased, but a released slot may be reused by
// an unrelated footprint with a new generation.
type ID struct {
	Dim         int
	Slot        arena.Slot
	Orientation Orientation
}

// Flip returns the ID of the opposite orientation.
func (id ID) Flip() ID {
	id.Orientation = -id.Orientation
	return id
}

// Footprint drops the orientation.
func (id ID) Footprint() FootprintID { return FootprintID{Dim: id.Dim, Slot: id.Slot} }

// Simplex is an oriented simplex. A Simplex returned by a Topology
// constructor owns one reference and must be erased when no longer needed.
// Simplices returned by queries such as Composition are borrowed: they name
// the same simplex but own nothing, and are valid only while some owner keeps
// the simplex alive.
type Simplex struct {
	owner       *handle
	topo        *Topology
	dim         int
	slot        arena.Slot
	orientation Orientation
}

// Bad returns the simplex produced by failed constructions.
func Bad() Simplex { return Simplex{} }

// IsBad reports whether s is the Bad simplex.
func (s Simplex) IsBad() bool { return s.topo == nil }

// Borrowed reports whether s owns no reference.
func (s Simplex) Borrowed() bool { return s.owner == nil }

// Owned reports whether s still holds its reference.
func (s Simplex) Owned() bool { return s.owner.Live() }

// Alive reports whether the footprint named by s is still interned.
func (s Simplex) Alive() bool {
	_, err := s.topo.lookup(s)
	return err == nil
}

func (s Simplex) Dim() int { return s.dim }
func (s Simplex) Orientation() Orientation { return s.orientation }
func (s Simplex) Topology() *Topology { return s.topo }

func (s Simplex) ID() ID {
	return ID{Dim: s.dim, Slot: s.slot, Orientation: s.orientation}
}

func (s Simplex) FootprintID() FootprintID {
	return FootprintID{Dim: s.dim, Slot: s.slot}
}

// References returns the number of owners of this orientation.
func (s Simplex) References() int {
	fp, err := s.topo.lookup(s)
	if err != nil {
		return 0
	}
	return fp.uses[s.orientation.index()]
}

// FootprintReferences returns the number of owners of both orientations.
func (s Simplex) FootprintReferences() int {
	if s.IsBad() {
		return 0
	}
	return s.topo.repos[s.dim].References(s.slot)
}

// Serial returns the creation number of a vertex. Serials give the canonical
// vertex order.
func (s Simplex) Serial() (uint64, error) {
	if s.dim != 0 {
		return 0, fmt.Errorf("serial of %v: %w", s, ErrDimension)
	}
	fp, err := s.topo.lookup(s)
	if err != nil {
		return 0, err
	}
	return fp.vertices[0].serial, nil
}

// Borrow returns a copy of s that owns nothing.
func (s Simplex) Borrow() Simplex { return s.borrow(s.orientation) }

func (s Simplex) borrow(o Orientation) Simplex {
	return Simplex{topo: s.topo, dim: s.dim, slot: s.slot, orientation: o}
}

// Composition returns the oriented faces of s, borrowed. Vertices have no
// faces.
func (s Simplex) Composition() ([]Simplex, error) {
	fp, err := s.topo.lookup(s)
	if err != nil {
		return nil, err
	}
	if fp.dim == 0 {
		return nil, nil
	}
	i := s.orientation.index()
	faces, sign := fp.faces[i], Positive
	if faces == nil {
		faces, sign = fp.faces[1-i], Negative
	}
	out := make([]Simplex, len(faces))
	for j, f := range faces {
		out[j] = f.borrow(f.orientation * sign)
	}
	return out, nil
}

// Vertices returns the vertices of s, borrowed, in an order whose parity
// matches the orientation of s.
func (s Simplex) Vertices() ([]Simplex, error) {
	fp, err := s.topo.lookup(s)
	if err != nil {
		return nil, err
	}
	out := make([]Simplex, len(fp.vertices))
	for i, v := range fp.vertices {
		out[i] = Simplex{topo: s.topo, dim: 0, slot: v.slot, orientation: Positive}
	}
	if s.orientation == Negative && len(out) > 1 {
		out[0], out[1] = out[1], out[0]
	}
	return out, nil
}

// Edges returns the distinct oriented segments reachable through the
// composition of s, borrowed. A tetrahedron yields every edge in both
// orientations.
func (s Simplex) Edges() ([]Simplex, error) {
	switch s.dim {
	case 0:
		return nil, nil
	case 1:
		if _, err := s.topo.lookup(s); err != nil {
			return nil, err
		}
		return []Simplex{s.borrow(s.orientation)}, nil
	}
	faces, err := s.Composition()
	if err != nil {
		return nil, err
	}
	if s.dim == 2 {
		return faces, nil
	}
	seen := make(map[ID]struct{})
	var out []Simplex
	for _, f := range faces {
		edges, err := f.Edges()
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if _, ok := seen[e.ID()]; ok {
				continue
			}
			seen[e.ID()] = struct{}{}
			out = append(out, e)
		}
	}
	return out, nil
}

// Tail returns the first vertex of a segment.
func (s Simplex) Tail() (Simplex, error) { return s.end(0) }

// Head returns the last vertex of a segment.
func (s Simplex) Head() (Simplex, error) { return s.end(1) }

func (s Simplex) end(i int) (Simplex, error) {
	if s.dim != 1 {
		return Bad(), fmt.Errorf("end of %v: %w", s, ErrDimension)
	}
	vs, err := s.Vertices()
	if err != nil {
		return Bad(), err
	}
	return vs[i], nil
}

func (s Simplex) String() string {
	if s.IsBad() {
		return "bad simplex"
	}
	return fmt.Sprintf("%s(%v)%v", Name(s.dim), s.slot, s.orientation)
}
