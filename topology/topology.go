// Package topology keeps the oriented simplices of a mesh.
//
// A Topology interns one footprint per vertex set and dimension. Every
// footprint has two oriented views, and each view owns its oriented boundary
// faces for as long as the view itself has an owner. Simplex values handed
// out by a Topology are ownership tokens: each one must eventually be passed
// to Erase, or the footprint it names is never released.
//
// A Topology is not safe for concurrent use.
package topology

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/notargets/simplicial/arena"
	"github.com/notargets/simplicial/shared"
)

const (
	// MaxDim is the highest simplex dimension supported.
	MaxDim = 3
	// DefaultSegmentSize is the arena segment size used when none is given.
	DefaultSegmentSize = 1024
)

// Stats is a snapshot of a Topology's storage.
type Stats struct {
	Simplices         [MaxDim + 1]int
	Capacity          [MaxDim + 1]int
	Segments          [MaxDim + 1]int
	RedundantErasures int
}

type options struct {
	segmentSize int
	logger      logrus.FieldLogger
}

// Option configures a Topology.
type Option func(*options)

// WithSegmentSize sets the number of footprints per arena segment.
func WithSegmentSize(n int) Option {
	return func(o *options) { o.segmentSize = n }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.WarnLevel)
	return l
}

type repository = shared.Repository[footprint, *footprint]

// Topology is the catalog of vertices, segments, triangles and tetrahedra.
type Topology struct {
	repos  [MaxDim + 1]*repository
	index  [MaxDim + 1]map[key]arena.Slot
	serial uint64
	log    logrus.FieldLogger
	stats  Stats
}

// New creates an empty Topology.
func New(opts ...Option) (*Topology, error) {
	cfg := options{segmentSize: DefaultSegmentSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = defaultLogger()
	}

	t := &Topology{log: cfg.logger}
	for d := 0; d <= MaxDim; d++ {
		idx := make(map[key]arena.Slot)
		repo, err := shared.NewRepository[footprint](cfg.segmentSize, func(slot arena.Slot, fp *footprint) {
			delete(idx, keyOf(fp.vertices))
			t.log.WithFields(logrus.Fields{
				"dim":  d,
				"slot": slot,
			}).Debug("footprint released")
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s factory: %w", Name(d), err)
		}
		t.index[d] = idx
		t.repos[d] = repo
	}
	return t, nil
}

var (
	defaultOnce     sync.Once
	defaultTopology *Topology
)

// Default returns the process-wide Topology, creating it on first use.
func Default() *Topology {
	defaultOnce.Do(func() {
		t, err := New()
		if err != nil {
			panic(err)
		}
		defaultTopology = t
	})
	return defaultTopology
}

// Name returns the simplex name for a dimension.
func Name(dim int) string {
	switch dim {
	case 0:
		return "vertex"
	case 1:
		return "segment"
	case 2:
		return "triangle"
	case 3:
		return "tetrahedron"
	}
	return fmt.Sprintf("%d-simplex", dim)
}

// Vertex creates a new vertex.
func (t *Topology) Vertex() Simplex {
	t.serial++
	h := t.repos[0].Emplace(footprint{dim: 0})
	fp, _ := h.Get()
	fp.vertices = []vertexRef{{slot: h.ID(), serial: t.serial}}
	t.index[0][keyOf(fp.vertices)] = h.ID()
	s, _ := t.own(h, Positive)
	return s
}

// Segment returns the segment with tail a and head b.
func (t *Topology) Segment(a, b Simplex) (Simplex, error) { return t.Simplex(a, b) }

// Triangle returns the triangle with vertices a, b, c in that order.
func (t *Topology) Triangle(a, b, c Simplex) (Simplex, error) { return t.Simplex(a, b, c) }

// Tetrahedron returns the tetrahedron with vertices a, b, c, d in that order.
func (t *Topology) Tetrahedron(a, b, c, d Simplex) (Simplex, error) {
	return t.Simplex(a, b, c, d)
}

// Simplex returns the oriented simplex spanned by vertices in the given
// order. Orderings related by an even permutation give the same simplex.
func (t *Topology) Simplex(vertices ...Simplex) (Simplex, error) {
	n := len(vertices)
	if n == 0 || n > MaxDim+1 {
		return Bad(), fmt.Errorf("simplex of %d vertices: %w", n, ErrDimension)
	}
	refs, o, err := t.vertexSet(vertices)
	if err != nil {
		return Bad(), err
	}
	if n == 1 {
		return t.acquire(0, refs[0].slot, Positive)
	}
	return t.intern(n-1, refs, o)
}

// Build returns the oriented simplex whose boundary is faces. Face i of the
// result must omit canonical vertex i and carry orientation σ·(-1)^i for a
// common σ, which becomes the orientation of the result.
func (t *Topology) Build(faces ...Simplex) (Simplex, error) {
	d := len(faces) - 1
	if d < 1 || d > MaxDim {
		return Bad(), fmt.Errorf("composition of %d faces: %w", len(faces), ErrDimension)
	}
	verts, o, err := t.composition(faces)
	if err != nil {
		return Bad(), err
	}
	return t.intern(d, verts, o)
}

// Clone takes another reference on s. Borrowed simplices may be cloned while
// their footprint is live.
func (t *Topology) Clone(s Simplex) (Simplex, error) {
	if _, err := t.lookup(s); err != nil {
		return Bad(), err
	}
	return t.acquire(s.dim, s.slot, s.orientation)
}

// Flip returns a new reference to the opposite orientation of s.
func (t *Topology) Flip(s Simplex) (Simplex, error) {
	if _, err := t.lookup(s); err != nil {
		return Bad(), err
	}
	return t.acquire(s.dim, s.slot, -s.orientation)
}

// Erase drops the reference held by s. When s was the last owner of its
// view, the faces of that view are erased in turn; when it was the last
// owner of its footprint, the footprint is released. Erasing a Bad, borrowed
// or already erased simplex does nothing and returns false.
func (t *Topology) Erase(s Simplex) bool {
	if s.IsBad() || s.topo != t || !s.owner.Live() {
		t.stats.RedundantErasures++
		t.log.WithFields(logrus.Fields{
			"dim":         s.dim,
			"slot":        s.slot,
			"orientation": s.orientation,
			"borrowed":    s.owner == nil,
		}).Debug("redundant erase")
		return false
	}
	t.release(s)
	return true
}

// Exists reports whether a footprint spanning the composition is interned.
// The composition is a list of vertices or of the faces of the simplex.
func (t *Topology) Exists(composition ...Simplex) bool {
	k := len(composition)
	if k == 0 || k > MaxDim+1 {
		return false
	}
	verts, err := t.span(composition)
	if err != nil || len(verts) != k {
		return false
	}
	_, ok := t.index[k-1][keyOf(verts)]
	return ok
}

// ExistsOriented reports whether the oriented simplex described by the
// composition currently has an owner. A list of vertices is read as
// Simplex reads it, a list of faces as Build reads it.
func (t *Topology) ExistsOriented(composition ...Simplex) bool {
	k := len(composition)
	if k == 0 || k > MaxDim+1 {
		return false
	}
	var (
		verts []vertexRef
		o     Orientation
		err   error
	)
	if composition[0].dim == 0 {
		verts, o, err = t.vertexSet(composition)
	} else {
		verts, o, err = t.composition(composition)
	}
	if err != nil {
		return false
	}
	slot, ok := t.index[k-1][keyOf(verts)]
	if !ok {
		return false
	}
	return t.repos[k-1].Get(slot).uses[o.index()] > 0
}

// ExistsFlipped reports whether the opposite orientation of s has an owner.
func (t *Topology) ExistsFlipped(s Simplex) bool {
	fp, err := t.lookup(s)
	if err != nil {
		return false
	}
	return fp.uses[(-s.orientation).index()] > 0
}

// NSimplices returns the number of live footprints of dimension dim.
func (t *Topology) NSimplices(dim int) int {
	if dim < 0 || dim > MaxDim {
		return 0
	}
	return t.repos[dim].Size()
}

// Stats returns a snapshot of storage usage.
func (t *Topology) Stats() Stats {
	st := t.stats
	for d := 0; d <= MaxDim; d++ {
		st.Simplices[d] = t.repos[d].Size()
		st.Capacity[d] = t.repos[d].Capacity()
		st.Segments[d] = t.repos[d].Arena().Segments()
	}
	return st
}
