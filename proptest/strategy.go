package proptest

import (
	"fmt"
	"strings"
)

// Strategy describes how to produce values of type T from a sequence of
// bounded choices. Strategies are immutable and may be shared across
// attempts and goroutines; all per-attempt state lives in Data.
type Strategy[T any] interface {
	Draw(d *Data) (T, error)
	String() string
}

// finiteDomain is implemented by strategies whose values can be enumerated
// by index. Filter uses it to detect when every value has been rejected.
type finiteDomain[T any] interface {
	domainSize() uint64
	element(i uint64) T
}

// =============================================================================
// Basic Strategies
// =============================================================================

type customStrategy[T any] struct {
	name string
	fn   func(*Data) (T, error)
}

// Custom builds a strategy from a draw function.
func Custom[T any](name string, fn func(*Data) (T, error)) Strategy[T] {
	return &customStrategy[T]{name: name, fn: fn}
}

func (s *customStrategy[T]) Draw(d *Data) (T, error) { return s.fn(d) }
func (s *customStrategy[T]) String() string          { return s.name }

type justStrategy[T any] struct {
	value T
}

// Just always produces value without consuming any choices.
func Just[T any](value T) Strategy[T] {
	return &justStrategy[T]{value: value}
}

func (s *justStrategy[T]) Draw(*Data) (T, error) { return s.value, nil }
func (s *justStrategy[T]) String() string        { return fmt.Sprintf("Just(%v)", s.value) }

type invalidStrategy[T any] struct {
	name string
	err  error
}

// nothing is a strategy that cannot produce a value; drawing from it
// returns err.
func nothing[T any](name string, err error) Strategy[T] {
	return &invalidStrategy[T]{name: name, err: err}
}

func (s *invalidStrategy[T]) Draw(*Data) (T, error) {
	var zero T
	return zero, s.err
}

func (s *invalidStrategy[T]) String() string { return s.name }

// =============================================================================
// Transformation Strategies
// =============================================================================

type mapStrategy[T, U any] struct {
	base Strategy[T]
	fn   func(T) U
}

// Map applies fn to every value produced by base.
func Map[T, U any](base Strategy[T], fn func(T) U) Strategy[U] {
	return &mapStrategy[T, U]{base: base, fn: fn}
}

func (s *mapStrategy[T, U]) Draw(d *Data) (U, error) {
	v, err := s.base.Draw(d)
	if err != nil {
		var zero U
		return zero, err
	}
	return s.fn(v), nil
}

// domainSize forwards the base domain so filters over mapped finite
// strategies can still enumerate.
func (s *mapStrategy[T, U]) domainSize() uint64 {
	if dom, ok := s.base.(finiteDomain[T]); ok {
		return dom.domainSize()
	}
	return 0
}

func (s *mapStrategy[T, U]) element(i uint64) U {
	return s.fn(s.base.(finiteDomain[T]).element(i))
}

func (s *mapStrategy[T, U]) String() string {
	return fmt.Sprintf("Map(%s)", s.base)
}

// AsAny erases the value type, for collaborators that hold strategies of
// mixed types.
func AsAny[T any](s Strategy[T]) Strategy[any] {
	if a, ok := any(s).(Strategy[any]); ok {
		return a
	}
	return Map(s, func(v T) any { return v })
}

type oneOfStrategy[T any] struct {
	branches []Strategy[T]
}

// OneOf draws from one of the given strategies. Earlier branches are
// preferred while shrinking. With no branches, drawing fails with
// ErrInvalidArgument.
func OneOf[T any](branches ...Strategy[T]) Strategy[T] {
	if len(branches) == 0 {
		return nothing[T]("OneOf()", invalidArgument("OneOf requires at least one strategy"))
	}
	if len(branches) == 1 {
		return branches[0]
	}
	return &oneOfStrategy[T]{branches: append([]Strategy[T](nil), branches...)}
}

func (s *oneOfStrategy[T]) Draw(d *Data) (T, error) {
	d.StartSpan("one_of")
	defer d.EndSpan()
	i, err := d.Draw(uint64(len(s.branches) - 1))
	if err != nil {
		var zero T
		return zero, err
	}
	return s.branches[i].Draw(d)
}

func (s *oneOfStrategy[T]) String() string {
	names := make([]string, len(s.branches))
	for i, b := range s.branches {
		names[i] = b.String()
	}
	return "OneOf(" + strings.Join(names, ", ") + ")"
}
