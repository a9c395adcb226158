package topology

import (
	"errors"

	"github.com/notargets/simplicial/shared"
)

var (
	// ErrDegenerateSimplex means the requested composition does not span
	// D+1 distinct vertices.
	ErrDegenerateSimplex = errors.New("degenerate simplex")
	// ErrInvalidComposition means the faces span the right vertices but their
	// orientations do not close into a single oriented simplex.
	ErrInvalidComposition = errors.New("invalid composition")
	// ErrInvalidReference means the simplex is Bad, released, or belongs to
	// another topology.
	ErrInvalidReference = shared.ErrInvalidReference
	// ErrDimension means a simplex of the wrong dimension was supplied.
	ErrDimension = errors.New("dimension mismatch")
)
