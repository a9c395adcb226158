// Package shared layers reference counting over an arena.
//
// A Repository keeps one counter per arena slot. Every live Handle or View is
// exactly one reference; the slot is finalized and released back to the arena
// when its last reference is released.
package shared

import (
	"errors"
	"fmt"

	"github.com/notargets/simplicial/arena"
)

// ErrInvalidReference is returned by operations on a Bad handle, a released
// handle, or a slot that no longer holds a live resource.
var ErrInvalidReference = errors.New("invalid reference")

// Finalizer runs when the count of a slot drops to zero, before the slot is
// returned to the arena.
type Finalizer[T any, P arena.Resource[T]] func(slot arena.Slot, value P)

// Repository is an arena with a parallel reference count table.
type Repository[T any, P arena.Resource[T]] struct {
	arena    *arena.Arena[T, P]
	counts   []int32
	finalize Finalizer[T, P]
}

// NewRepository creates a repository backed by an arena with the given
// segment size. finalize may be nil.
func NewRepository[T any, P arena.Resource[T]](segmentSize int, finalize Finalizer[T, P]) (*Repository[T, P], error) {
	a, err := arena.New[T, P](segmentSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return &Repository[T, P]{arena: a, finalize: finalize}, nil
}

// Emplace stores value and returns the first handle to it.
func (r *Repository[T, P]) Emplace(value T) *Handle[T, P] {
	slot, _ := r.arena.Allocate(value)
	for int(slot.Index) >= len(r.counts) {
		r.counts = append(r.counts, 0)
	}
	r.counts[slot.Index] = 1
	return &Handle[T, P]{repo: r, slot: slot, live: true}
}

// Acquire returns a new handle to a live slot.
func (r *Repository[T, P]) Acquire(slot arena.Slot) (*Handle[T, P], error) {
	if r.arena.Get(slot) == nil {
		return nil, fmt.Errorf("acquire %v: %w", slot, ErrInvalidReference)
	}
	r.counts[slot.Index]++
	return &Handle[T, P]{repo: r, slot: slot, live: true}, nil
}

// References returns the number of live handles on slot, 0 if it is not live.
func (r *Repository[T, P]) References(slot arena.Slot) int {
	if r.arena.Get(slot) == nil {
		return 0
	}
	return int(r.counts[slot.Index])
}

// Get returns the resource at slot without taking a reference.
func (r *Repository[T, P]) Get(slot arena.Slot) P { return r.arena.Get(slot) }

// Size returns the number of live resources.
func (r *Repository[T, P]) Size() int { return r.arena.Size() }

// Capacity returns the slot capacity of the backing arena.
func (r *Repository[T, P]) Capacity() int { return r.arena.Capacity() }

// Arena exposes the backing arena for iteration and statistics.
func (r *Repository[T, P]) Arena() *arena.Arena[T, P] { return r.arena }

func (r *Repository[T, P]) release(slot arena.Slot) {
	p := r.arena.Get(slot)
	if p == nil {
		panic(fmt.Sprintf("shared: release of dead slot %v", slot))
	}
	r.counts[slot.Index]--
	switch n := r.counts[slot.Index]; {
	case n < 0:
		panic(fmt.Sprintf("shared: reference count underflow on slot %v", slot))
	case n == 0:
		if r.finalize != nil {
			r.finalize(slot, p)
		}
		r.arena.Release(slot)
	}
}

// Handle is one counted reference to a repository slot.
type Handle[T any, P arena.Resource[T]] struct {
	repo *Repository[T, P]
	slot arena.Slot
	live bool
}

// Bad returns the sentinel handle for a failed lookup.
func Bad[T any, P arena.Resource[T]]() *Handle[T, P] { return &Handle[T, P]{} }

// IsBad reports whether h is the sentinel.
func (h *Handle[T, P]) IsBad() bool { return h == nil || h.repo == nil }

// Live reports whether h still holds its reference.
func (h *Handle[T, P]) Live() bool { return !h.IsBad() && h.live }

// ID returns the slot h refers to. It is well-defined for released and Bad
// handles.
func (h *Handle[T, P]) ID() arena.Slot {
	if h == nil {
		return arena.Slot{}
	}
	return h.slot
}

// References returns the number of live handles sharing h's slot.
func (h *Handle[T, P]) References() int {
	if h.IsBad() {
		return 0
	}
	return h.repo.References(h.slot)
}

// Get returns the referenced resource.
func (h *Handle[T, P]) Get() (P, error) {
	if !h.Live() {
		return nil, ErrInvalidReference
	}
	return h.repo.Get(h.slot), nil
}

// Clone takes another reference on the same slot.
func (h *Handle[T, P]) Clone() (*Handle[T, P], error) {
	if !h.Live() {
		return nil, ErrInvalidReference
	}
	return h.repo.Acquire(h.slot)
}

// View takes another reference on the same slot as a read-only view.
func (h *Handle[T, P]) View() (*View[T, P], error) {
	c, err := h.Clone()
	if err != nil {
		return nil, err
	}
	return &View[T, P]{h: c}, nil
}

// Release drops the reference. Releasing twice is a no-op.
func (h *Handle[T, P]) Release() error {
	if h.IsBad() {
		return ErrInvalidReference
	}
	if !h.live {
		return nil
	}
	h.live = false
	h.repo.release(h.slot)
	return nil
}

// View is a read-only counted reference. It shares the counter of the handle
// it was taken from.
type View[T any, P arena.Resource[T]] struct {
	h *Handle[T, P]
}

// Value returns a copy of the referenced resource.
func (v *View[T, P]) Value() (T, error) {
	var zero T
	p, err := v.h.Get()
	if err != nil {
		return zero, err
	}
	return *p, nil
}

func (v *View[T, P]) ID() arena.Slot { return v.h.ID() }
func (v *View[T, P]) IsBad() bool { return v.h.IsBad() }
func (v *View[T, P]) Live() bool { return v.h.Live() }
func (v *View[T, P]) References() int { return v.h.References() }
func (v *View[T, P]) Release() error { return v.h.Release() }

// Clone takes another read-only reference.
func (v *View[T, P]) Clone() (*View[T, P], error) { return v.h.View() }
