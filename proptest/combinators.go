package proptest

import "fmt"

// =============================================================================
// Selection Combinators
// =============================================================================

type weightedStrategy[T any] struct {
	weights []uint64
	values  []T
	total   uint64
}

// Weighted picks an element of values with probability proportional to its
// weight. Weights don't need to sum to anything in particular; shrinking
// moves toward the first element.
func Weighted[T any](weights []uint64, values []T) Strategy[T] {
	if len(weights) != len(values) {
		return nothing[T]("Weighted", invalidArgument("Weighted weights and values must have same length"))
	}
	if len(values) == 0 {
		return nothing[T]("Weighted", invalidArgument("Weighted called with no values"))
	}
	var total uint64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return nothing[T]("Weighted", invalidArgument("Weighted needs a positive total weight"))
	}
	return &weightedStrategy[T]{weights: weights, values: values, total: total}
}

func (s *weightedStrategy[T]) Draw(d *Data) (T, error) {
	point, err := d.Draw(s.total - 1)
	if err != nil {
		var zero T
		return zero, err
	}

	// Find which bucket it falls into
	var cumulative uint64
	for i, w := range s.weights {
		cumulative += w
		if point < cumulative {
			return s.values[i], nil
		}
	}
	return s.values[len(s.values)-1], nil
}

func (s *weightedStrategy[T]) String() string {
	return fmt.Sprintf("Weighted(%v, %v)", s.weights, s.values)
}

// =============================================================================
// Collection Combinators
// =============================================================================

type sliceStrategy[T any] struct {
	elem           Strategy[T]
	minLen, maxLen int
}

// SliceOf produces slices of elem with length in [minLen, maxLen]. Each
// element past minLen is preceded by a continue flag, so deleting an
// element's span or zeroing its flag shortens the slice.
func SliceOf[T any](elem Strategy[T], minLen, maxLen int) Strategy[[]T] {
	if minLen < 0 || minLen > maxLen {
		return nothing[[]T]("SliceOf", invalidArgument("SliceOf length bounds [%d, %d] are invalid", minLen, maxLen))
	}
	return &sliceStrategy[T]{elem: elem, minLen: minLen, maxLen: maxLen}
}

func (s *sliceStrategy[T]) Draw(d *Data) ([]T, error) {
	out := make([]T, 0, s.minLen)
	for len(out) < s.maxLen {
		d.StartSpan("slice_element")
		if len(out) >= s.minLen {
			more, err := d.Draw(3)
			if err != nil {
				d.EndSpan()
				return nil, err
			}
			if more == 0 {
				d.EndSpan()
				break
			}
		}
		v, err := s.elem.Draw(d)
		d.EndSpan()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *sliceStrategy[T]) String() string {
	return fmt.Sprintf("SliceOf(%s, %d, %d)", s.elem, s.minLen, s.maxLen)
}

// =============================================================================
// Optional/Nullable Combinators
// =============================================================================

// Optional produces nil or a pointer to a value from s. nil is simpler.
func Optional[T any](s Strategy[T]) Strategy[*T] {
	return Custom(fmt.Sprintf("Optional(%s)", s), func(d *Data) (*T, error) {
		d.StartSpan("optional")
		defer d.EndSpan()
		present, err := d.DrawBool()
		if err != nil || !present {
			return nil, err
		}
		v, err := s.Draw(d)
		if err != nil {
			return nil, err
		}
		return &v, nil
	})
}

// =============================================================================
// Struct/Tuple Combinators
// =============================================================================

// Pair holds two generated values.
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairOf produces pairs drawn from a then b.
func PairOf[A, B any](a Strategy[A], b Strategy[B]) Strategy[Pair[A, B]] {
	return Custom(fmt.Sprintf("PairOf(%s, %s)", a, b), func(d *Data) (Pair[A, B], error) {
		var p Pair[A, B]
		var err error
		if p.First, err = a.Draw(d); err != nil {
			return p, err
		}
		p.Second, err = b.Draw(d)
		return p, err
	})
}
