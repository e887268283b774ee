// Package ref provides non-owning references. A holder of a Ref can look the
// target up but never keeps it alive or controls its lifetime; every lookup
// may report that the target is gone.
package ref

import (
	"sync/atomic"
	"weak"
)

// Ref resolves to its target, or reports false once the target is gone.
// A successful Resolve says nothing about later calls.
type Ref[T any] interface {
	Resolve() (T, bool)
}

// Slot is an owner-held cell. The owner publishes a value with Set and
// withdraws it with Release; observers get a Ref through Ref.
type Slot[T any] struct {
	v atomic.Pointer[T]
}

// NewSlot returns a slot already holding v.
func NewSlot[T any](v T) *Slot[T] {
	s := &Slot[T]{}
	s.Set(v)
	return s
}

func (s *Slot[T]) Set(v T) {
	s.v.Store(&v)
}

// Release drops the value. Outstanding refs resolve to false afterwards.
func (s *Slot[T]) Release() {
	s.v.Store(nil)
}

func (s *Slot[T]) Resolve() (T, bool) {
	p := s.v.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Ref returns a non-owning view of the slot.
func (s *Slot[T]) Ref() Ref[T] {
	return s
}

// Weak wraps a garbage-collector weak pointer. The target stays reachable
// only as long as someone else holds p.
func Weak[T any](p *T) Ref[*T] {
	return weakRef[T]{p: weak.Make(p)}
}

type weakRef[T any] struct {
	p weak.Pointer[T]
}

func (w weakRef[T]) Resolve() (*T, bool) {
	v := w.p.Value()
	return v, v != nil
}

// Map derives a Ref[U] by converting the target of r. Resolution stays a
// single lookup on r.
func Map[T, U any](r Ref[T], fn func(T) U) Ref[U] {
	return mapped[T, U]{r: r, fn: fn}
}

type mapped[T, U any] struct {
	r  Ref[T]
	fn func(T) U
}

func (m mapped[T, U]) Resolve() (U, bool) {
	v, ok := m.r.Resolve()
	if !ok {
		var zero U
		return zero, false
	}
	return m.fn(v), true
}

// None is a Ref that never resolves.
func None[T any]() Ref[T] {
	return none[T]{}
}

type none[T any] struct{}

func (none[T]) Resolve() (T, bool) {
	var zero T
	return zero, false
}
