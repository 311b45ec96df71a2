package proptest

import "fmt"

const (
	// maxFilterTries bounds consecutive rejections within one attempt.
	maxFilterTries = 3

	// enumerationCutoff bounds how many elements of a finite domain are
	// checked against the predicate in a single attempt.
	enumerationCutoff = 10000
)

// filterState is the result of testing one candidate.
type filterState int

const (
	filterAccept filterState = iota
	filterReject
	filterExhausted
)

// FilteredStrategy draws from a base strategy and keeps only values
// accepted by its predicates.
type FilteredStrategy[T any] struct {
	base  Strategy[T]
	preds []func(T) bool
}

// Filter restricts base to values for which pred returns true. Filtering a
// filtered strategy stacks the predicates on the same base.
func Filter[T any](base Strategy[T], pred func(T) bool) *FilteredStrategy[T] {
	if f, ok := base.(*FilteredStrategy[T]); ok {
		preds := append(append([]func(T) bool(nil), f.preds...), pred)
		return &FilteredStrategy[T]{base: f.base, preds: preds}
	}
	return &FilteredStrategy[T]{base: base, preds: []func(T) bool{pred}}
}

// Filter adds another predicate.
func (f *FilteredStrategy[T]) Filter(pred func(T) bool) *FilteredStrategy[T] {
	return Filter[T](f, pred)
}

func (f *FilteredStrategy[T]) accepts(v T) bool {
	for _, p := range f.preds {
		if !p(v) {
			return false
		}
	}
	return true
}

func (f *FilteredStrategy[T]) String() string {
	return fmt.Sprintf("%s.Filter(...)", f.base)
}

func (f *FilteredStrategy[T]) Draw(d *Data) (T, error) {
	if dom, ok := f.base.(finiteDomain[T]); ok && dom.domainSize() > 0 {
		return f.drawIndexed(d, dom)
	}
	var zero T
	for i := 0; i < maxFilterTries; i++ {
		d.StartSpan("filter_attempt")
		v, err := f.base.Draw(d)
		d.EndSpan()
		if err != nil {
			return zero, err
		}
		if f.accepts(v) {
			return v, nil
		}
	}
	return zero, ErrFilteredOut
}

// indexFilter tracks the indices rejected during one attempt.
type indexFilter[T any] struct {
	f    *FilteredStrategy[T]
	dom  finiteDomain[T]
	size uint64
	bad  map[uint64]struct{}
}

func (s *indexFilter[T]) test(i uint64) filterState {
	if _, seen := s.bad[i]; !seen {
		if s.f.accepts(s.dom.element(i)) {
			return filterAccept
		}
		s.bad[i] = struct{}{}
	}
	if uint64(len(s.bad)) == s.size {
		return filterExhausted
	}
	return filterReject
}

// drawIndexed filters a finite domain. It starts with plain rejection
// sampling; if every index gets rejected along the way the attempt ends at
// once. Otherwise it enumerates the allowed indices and draws one of them.
func (f *FilteredStrategy[T]) drawIndexed(d *Data, dom finiteDomain[T]) (T, error) {
	var zero T
	s := &indexFilter[T]{f: f, dom: dom, size: dom.domainSize(), bad: make(map[uint64]struct{})}

	for i := 0; i < maxFilterTries; i++ {
		d.StartSpan("filter_attempt")
		idx, err := d.Draw(s.size - 1)
		d.EndSpan()
		if err != nil {
			return zero, err
		}
		switch s.test(idx) {
		case filterAccept:
			return dom.element(idx), nil
		case filterExhausted:
			return zero, ErrFilteredOut
		}
	}

	limit := min(s.size, enumerationCutoff)
	var allowed []uint64
	for i := uint64(0); i < limit; i++ {
		if _, seen := s.bad[i]; seen {
			continue
		}
		if f.accepts(dom.element(i)) {
			allowed = append(allowed, i)
		}
	}
	if len(allowed) == 0 {
		return zero, ErrFilteredOut
	}

	d.StartSpan("filter_allowed")
	defer d.EndSpan()
	j, err := d.Draw(uint64(len(allowed) - 1))
	if err != nil {
		return zero, err
	}
	return dom.element(allowed[j]), nil
}
