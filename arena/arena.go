// Package arena provides a segmented allocator that hands out stable,
// reusable storage slots.
//
// Storage is a list of fixed-capacity segments. A segment is allocated once
// at full length and is never resized, so the address of a live resource does
// not change until the resource is released. Released slots are kept on a LIFO
// free list and are handed out again before the arena grows.
package arena

import (
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// Invalidatable is the capability required of anything stored in an Arena.
type Invalidatable interface {
	IsValid() bool
	Invalidate()
}

// Resource constrains P to be a pointer to T that implements Invalidatable.
type Resource[T any] interface {
	*T
	Invalidatable
}

// Flag implements Invalidatable by embedding. The zero value is valid.
type Flag struct {
	invalid bool
}

// IsValid reports whether the resource has not been invalidated.
func (f *Flag) IsValid() bool { return !f.invalid }

// Invalidate marks the resource as released.
func (f *Flag) Invalidate() { f.invalid = true }

// Slot is a generational index into an Arena. The zero Slot is nil.
type Slot struct {
	Index      uint32
	Generation uint32
}

// IsNil reports whether s refers to no slot at all.
func (s Slot) IsNil() bool { return s.Generation == 0 }

func (s Slot) String() string {
	if s.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("%d@%d", s.Index, s.Generation)
}

type cell[T any] struct {
	generation uint32
	value      T
}

// Arena is a segmented pool of T values addressed by Slot.
//
// An Arena is not safe for concurrent use.
type Arena[T any, P Resource[T]] struct {
	segmentSize int
	segments    [][]cell[T]
	used        int      // cells handed out in the last segment
	free        []uint32 // LIFO
	live        *roaring.Bitmap
}

// New creates an empty arena whose segments hold segmentSize resources each.
func New[T any, P Resource[T]](segmentSize int) (*Arena[T, P], error) {
	if segmentSize <= 0 {
		return nil, fmt.Errorf("invalid segment size %d", segmentSize)
	}
	return &Arena[T, P]{
		segmentSize: segmentSize,
		live:        roaring.New(),
	}, nil
}

// SegmentSize returns the number of slots in each segment.
func (a *Arena[T, P]) SegmentSize() int { return a.segmentSize }

// Segments returns the number of segments allocated so far.
func (a *Arena[T, P]) Segments() int { return len(a.segments) }

// Capacity returns the number of slots across all segments.
func (a *Arena[T, P]) Capacity() int { return len(a.segments) * a.segmentSize }

// Size returns the number of live resources.
func (a *Arena[T, P]) Size() int { return int(a.live.GetCardinality()) }

func (a *Arena[T, P]) cellAt(index uint32) *cell[T] {
	seg := int(index) / a.segmentSize
	if seg >= len(a.segments) {
		return nil
	}
	off := int(index) % a.segmentSize
	if seg == len(a.segments)-1 && off >= a.used {
		return nil
	}
	return &a.segments[seg][off]
}

// Allocate places value in a slot and returns the slot and the stable address
// of the placed resource. Previously released slots are reused first, most
// recently released first.
func (a *Arena[T, P]) Allocate(value T) (Slot, P) {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if len(a.segments) == 0 || a.used == a.segmentSize {
			a.segments = append(a.segments, make([]cell[T], a.segmentSize))
			a.used = 0
		}
		index = uint32((len(a.segments)-1)*a.segmentSize + a.used)
		a.used++
	}
	c := a.cellAt(index)
	if c.generation == 0 {
		c.generation = 1
	}
	c.value = value
	a.live.Add(index)
	return Slot{Index: index, Generation: c.generation}, P(&c.value)
}

// Get returns the resource stored at s, or nil if s is stale or released.
func (a *Arena[T, P]) Get(s Slot) P {
	if s.IsNil() {
		return nil
	}
	c := a.cellAt(s.Index)
	if c == nil || c.generation != s.Generation {
		return nil
	}
	p := P(&c.value)
	if !p.IsValid() {
		return nil
	}
	return p
}

// Release invalidates the resource at s and makes the slot available again.
// Releasing a stale or already released slot is a no-op and returns false.
func (a *Arena[T, P]) Release(s Slot) bool {
	if a.Get(s) == nil {
		return false
	}
	c := a.cellAt(s.Index)
	var zero T
	c.value = zero
	P(&c.value).Invalidate()
	c.generation++
	if c.generation == 0 {
		c.generation = 1
	}
	a.live.Remove(s.Index)
	a.free = append(a.free, s.Index)
	return true
}

// All yields every live resource in slot order.
func (a *Arena[T, P]) All() iter.Seq2[Slot, P] {
	return func(yield func(Slot, P) bool) {
		it := a.live.Iterator()
		for it.HasNext() {
			index := it.Next()
			c := a.cellAt(index)
			if !yield(Slot{Index: index, Generation: c.generation}, P(&c.value)) {
				return
			}
		}
	}
}
