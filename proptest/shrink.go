package proptest

import (
	"context"
	"maps"
	"math/bits"
	"slices"
	"time"
)

const (
	passRemoveSpan      = "remove_span"
	passRemoveChunk     = "remove_chunk"
	passZeroChunk       = "zero_chunk"
	passMinimize        = "minimize"
	passRemoveSpanLower = "remove_span_lower"
	passLowerDuplicates = "lower_duplicates"
	shrinkSmall         = 5
)

var chunkSizes = []int{8, 4, 2, 1}

// shrinker searches for a shortlex-smaller choice sequence that still fails
// with the same origin as the original failure.
type shrinker[T any] struct {
	r        *Runner[T]
	ctx      context.Context
	best     attempt[T]
	deadline time.Time
	cache    map[string]struct{}
	tries    map[string]int
	shrinks  int
	attempts int
	hits     int
}

func newShrinker[T any](r *Runner[T], failing attempt[T]) *shrinker[T] {
	return &shrinker[T]{
		r:     r,
		best:  failing,
		cache: map[string]struct{}{},
		tries: map[string]int{},
	}
}

// shrink runs rounds of passes until a round makes no progress or a budget
// runs out, and returns the smallest failing attempt found.
func (s *shrinker[T]) shrink(ctx context.Context) attempt[T] {
	s.ctx = ctx
	s.deadline = time.Now().Add(s.r.settings.ShrinkTimeout)
	s.cache[cacheKey(s.best.choices.Values())] = struct{}{}

	round := 0
	for progress := -1; s.shrinks > progress && s.budget(); round++ {
		progress = s.shrinks

		s.removeSpans()
		s.removeChunks()
		s.zeroChunks()
		s.minimizeValues()

		if s.shrinks == progress {
			s.removeSpansAndLower()
			s.lowerDuplicates()
		}
	}

	s.r.logger.Info("shrinking finished",
		"rounds", round,
		"shrinks", s.shrinks,
		"attempts", s.attempts,
		"cache_hits", s.hits,
		"choices", s.best.choices.String(),
	)
	s.r.logger.Debug("shrink passes", "tries", s.tries)
	return s.best
}

func (s *shrinker[T]) budget() bool {
	switch {
	case s.shrinks >= s.r.settings.MaxShrinks:
		return false
	case s.attempts >= s.r.settings.MaxShrinkAttempts:
		return false
	case s.ctx.Err() != nil:
		return false
	}
	return time.Now().Before(s.deadline)
}

func (s *shrinker[T]) values() []uint64 {
	return s.best.choices.Values()
}

// accept replays values and adopts them when the replay fails the same way
// and its actual choices are smaller than the current best.
func (s *shrinker[T]) accept(values []uint64, pass string) bool {
	if !s.budget() {
		return false
	}
	cur := s.values()
	if Compare(values, cur) >= 0 {
		return false
	}
	key := cacheKey(values)
	if _, ok := s.cache[key]; ok {
		s.hits++
		return false
	}
	s.cache[key] = struct{}{}
	s.attempts++
	s.tries[pass]++

	a := s.r.execute(newReplaySource(values))
	if a.outcome != outcomeInteresting || a.origin != s.best.origin {
		return false
	}
	if Compare(a.choices.Values(), cur) >= 0 {
		return false
	}
	s.best = a
	s.shrinks++
	s.r.logger.Debug("shrink step", "pass", pass, "choices", a.choices.String())
	return true
}

// =============================================================================
// Passes
// =============================================================================

func (s *shrinker[T]) removeSpans() {
	for i := 0; i < len(s.best.spans) && s.budget(); i++ {
		sp := s.best.spans[i]
		if !sp.closed() {
			continue
		}
		if s.accept(without(s.values(), sp), passRemoveSpan) {
			i--
		}
	}
}

func (s *shrinker[T]) removeChunks() {
	for _, k := range chunkSizes {
		for i := len(s.best.choices) - k; i >= 0 && s.budget(); i-- {
			if i+k > len(s.best.choices) {
				continue
			}
			s.accept(without(s.values(), span{begin: i, end: i + k}), passRemoveChunk)
		}
	}
}

func (s *shrinker[T]) zeroChunks() {
	for _, k := range chunkSizes[:len(chunkSizes)-1] {
		for i := 0; i+k <= len(s.best.choices) && s.budget(); i++ {
			values := s.values()
			chunk := values[i : i+k]
			if !slices.ContainsFunc(chunk, func(v uint64) bool { return v != 0 }) {
				continue
			}
			clear(chunk)
			s.accept(values, passZeroChunk)
		}
	}
}

func (s *shrinker[T]) minimizeValues() {
	for i := 0; i < len(s.best.choices) && s.budget(); i++ {
		minimizeValue(s.best.choices[i].Value, func(u uint64) bool {
			if i >= len(s.best.choices) {
				return false
			}
			values := s.values()
			values[i] = u
			return s.accept(values, passMinimize)
		})
	}
}

// removeSpansAndLower lowers one value and removes a span elsewhere in the
// same candidate, for values such as list lengths that must shrink together
// with the elements they count.
func (s *shrinker[T]) removeSpansAndLower() {
	for i := 0; i < len(s.best.choices) && s.budget(); i++ {
		if s.best.choices[i].Value == 0 {
			continue
		}
		values := s.values()
		values[i]--
		for _, sp := range s.best.spans {
			if !sp.closed() || (i >= sp.begin && i < sp.end) {
				continue
			}
			if s.accept(without(values, sp), passRemoveSpanLower) {
				i--
				break
			}
		}
	}
}

// lowerDuplicates minimizes every copy of a repeated value at once.
func (s *shrinker[T]) lowerDuplicates() {
	positions := map[uint64][]int{}
	for i, c := range s.best.choices {
		if c.Value != 0 {
			positions[c.Value] = append(positions[c.Value], i)
		}
	}
	for _, v := range slices.Sorted(maps.Keys(positions)) {
		idx := positions[v]
		if len(idx) < 2 || !s.budget() {
			continue
		}
		minimizeValue(v, func(u uint64) bool {
			values := s.values()
			for _, i := range idx {
				if i >= len(values) || values[i] != v {
					return false
				}
				values[i] = u
			}
			if s.accept(values, passLowerDuplicates) {
				v = u
				return true
			}
			return false
		})
	}
}

// =============================================================================
// Value Minimization
// =============================================================================

// minimizeValue searches for the smallest u < v for which try succeeds. try
// is called with strictly decreasing accepted values.
func minimizeValue(v uint64, try func(uint64) bool) uint64 {
	if v == 0 {
		return 0
	}
	for i := uint64(0); i < v && i < shrinkSmall; i++ {
		if try(i) {
			return i
		}
	}
	if v <= shrinkSmall {
		return v
	}

	m := &minimizer{best: v, try: try}
	m.shift()
	m.unsetBits()
	m.binarySearch()
	return m.best
}

type minimizer struct {
	best uint64
	try  func(uint64) bool
}

func (m *minimizer) accept(u uint64) bool {
	if u >= m.best || u < shrinkSmall || !m.try(u) {
		return false
	}
	m.best = u
	return true
}

func (m *minimizer) shift() {
	for m.accept(m.best >> 1) {
	}
}

func (m *minimizer) unsetBits() {
	for i := bits.Len64(m.best) - 1; i >= 0; i-- {
		m.accept(m.best &^ (1 << uint(i)))
	}
}

func (m *minimizer) binarySearch() {
	if !m.accept(m.best - 1) {
		return
	}
	lo, hi := uint64(0), m.best
	for lo < hi {
		mid := lo + (hi-lo)/2
		if m.accept(mid) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
}
