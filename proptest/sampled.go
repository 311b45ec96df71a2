package proptest

import (
	"fmt"
	"reflect"
)

// errEmptySequence is returned when drawing from an empty SampledFrom. The
// runner logs the deprecation through its own logger when it sees it.
var errEmptySequence = fmt.Errorf("%w: cannot sample from an empty sequence", ErrInvalidArgument)

// SampledFromStrategy picks an element of a fixed ordered sequence by index.
// Shrinking moves the index toward 0, so earlier elements are simpler.
type SampledFromStrategy[T any] struct {
	elements []T
}

// SampledFrom samples from values, which is copied. An empty sequence is
// accepted for compatibility but deprecated: the strategy reports IsEmpty,
// fails with ErrInvalidArgument when drawn, and a run over it logs a
// deprecation warning.
func SampledFrom[T any](values []T) *SampledFromStrategy[T] {
	return &SampledFromStrategy[T]{elements: append([]T(nil), values...)}
}

// Enum is implemented by types that list their members in declaration
// order.
type Enum[E any] interface {
	Members() []E
}

// SampledFromEnum samples the members of an enumeration in order.
func SampledFromEnum[E any](e Enum[E]) *SampledFromStrategy[E] {
	return SampledFrom(e.Members())
}

// SampledFromKeys samples the keys of an ordered mapping. Go maps have no
// stable order, so the order comes from keys, which must list every key of
// m exactly once.
func SampledFromKeys[K comparable, V any](keys []K, m map[K]V) (*SampledFromStrategy[K], error) {
	if len(keys) != len(m) {
		return nil, invalidArgument("SampledFromKeys: %d keys given for a mapping of %d entries", len(keys), len(m))
	}
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return nil, invalidArgument("SampledFromKeys: key %v is not in the mapping", k)
		}
		if _, dup := seen[k]; dup {
			return nil, invalidArgument("SampledFromKeys: duplicate key %v", k)
		}
		seen[k] = struct{}{}
	}
	return SampledFrom(keys), nil
}

// SampledFromAny samples from a slice or array held in an interface, for
// callers that only have reflective access to their values. Maps are
// rejected: their iteration order is not stable, and index-based shrinking
// needs one.
func SampledFromAny(values any) (*SampledFromStrategy[any], error) {
	rv := reflect.ValueOf(values)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return SampledFrom(out), nil
	case reflect.Map:
		return nil, invalidArgument("cannot sample from %T: sets and maps are unordered; pass an ordered slice of elements", values)
	case reflect.Invalid:
		return nil, invalidArgument("cannot sample from nil")
	default:
		return nil, invalidArgument("cannot sample from %T: not a sequence", values)
	}
}

// IsEmpty reports whether the strategy has no elements to sample.
func (s *SampledFromStrategy[T]) IsEmpty() bool {
	return len(s.elements) == 0
}

// Len returns the number of elements.
func (s *SampledFromStrategy[T]) Len() int {
	return len(s.elements)
}

func (s *SampledFromStrategy[T]) Draw(d *Data) (T, error) {
	var zero T
	if s.IsEmpty() {
		return zero, errEmptySequence
	}
	d.StartSpan("sampled_from")
	defer d.EndSpan()
	i, err := d.Draw(uint64(len(s.elements) - 1))
	if err != nil {
		return zero, err
	}
	return s.elements[i], nil
}

// Filter restricts the strategy to elements accepted by pred.
func (s *SampledFromStrategy[T]) Filter(pred func(T) bool) *FilteredStrategy[T] {
	return Filter[T](s, pred)
}

func (s *SampledFromStrategy[T]) String() string {
	const shown = 5
	if len(s.elements) > shown {
		return fmt.Sprintf("SampledFrom(%v...%d more)", s.elements[:shown], len(s.elements)-shown)
	}
	return fmt.Sprintf("SampledFrom(%v)", s.elements)
}

func (s *SampledFromStrategy[T]) domainSize() uint64 {
	return uint64(len(s.elements))
}

func (s *SampledFromStrategy[T]) element(i uint64) T {
	return s.elements[i]
}
