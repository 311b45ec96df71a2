package proptest

import (
	"math"

	"pgregory.net/rand"
)

// Randomness supplies uniform integers to fresh draw sources. It is passed
// in explicitly so runs never share hidden random state.
type Randomness interface {
	// Uint64n returns a uniform value in [0, n). n is never 0.
	Uint64n(n uint64) uint64
}

// NewRandomness returns the default seeded generator.
func NewRandomness(seed uint64) Randomness {
	return rand.New(seed)
}

// Source supplies the next bounded integer for a generation attempt.
type Source interface {
	Draw(max uint64) (uint64, error)
}

const smallValue = 15

// biasedDraw returns a value in [0, max]. Zero, max and small values come up
// far more often than a uniform draw would produce them.
func biasedDraw(r Randomness, max uint64) uint64 {
	if max == 0 {
		return 0
	}
	switch r.Uint64n(16) {
	case 0:
		return 0
	case 1:
		return max
	case 2, 3:
		return r.Uint64n(min(max, smallValue) + 1)
	}
	return uniformDraw(r, max)
}

func uniformDraw(r Randomness, max uint64) uint64 {
	if max == math.MaxUint64 {
		return r.Uint64n(max)
	}
	return r.Uint64n(max + 1)
}

// freshSource draws pseudo-random values. When it has a choice tree cursor
// it steers away from prefixes that are already fully explored.
type freshSource struct {
	rnd  Randomness
	node *treeNode
}

func newFreshSource(rnd Randomness, tree *choiceTree) *freshSource {
	s := &freshSource{rnd: rnd}
	if tree != nil {
		s.node = tree.root
	}
	return s
}

func (s *freshSource) Draw(max uint64) (uint64, error) {
	v := biasedDraw(s.rnd, max)
	if s.node == nil {
		return v, nil
	}
	v = s.node.steer(s.rnd, v, max)
	s.node = s.node.children[v]
	return v, nil
}

// replaySource returns stored values verbatim and overruns when they run
// out. A stored value above the requested bound is clamped to it.
type replaySource struct {
	values []uint64
	pos    int
}

func newReplaySource(values []uint64) *replaySource {
	return &replaySource{values: values}
}

func (s *replaySource) Draw(max uint64) (uint64, error) {
	if s.pos >= len(s.values) {
		return 0, ErrOverrun
	}
	v := s.values[s.pos]
	s.pos++
	return min(v, max), nil
}

// Data is the per-attempt state strategies draw from. It records every
// choice and the structural spans around them.
type Data struct {
	src        Source
	maxChoices int
	choices    ChoiceSequence
	spans      []span
	open       []int
}

func newData(src Source, maxChoices int) *Data {
	return &Data{src: src, maxChoices: maxChoices}
}

// Draw consumes the next choice, a value in [0, max].
func (d *Data) Draw(max uint64) (uint64, error) {
	if d.maxChoices > 0 && len(d.choices) >= d.maxChoices {
		return 0, ErrOverrun
	}
	v, err := d.src.Draw(max)
	if err != nil {
		return 0, err
	}
	d.choices = append(d.choices, Choice{Index: len(d.choices), Value: v, Max: max})
	return v, nil
}

// DrawBool consumes one choice in [0, 1].
func (d *Data) DrawBool() (bool, error) {
	v, err := d.Draw(1)
	return v == 1, err
}

// StartSpan opens a structural unit. Every StartSpan is paired with EndSpan,
// including on error paths.
func (d *Data) StartSpan(label string) {
	d.open = append(d.open, len(d.spans))
	d.spans = append(d.spans, span{label: label, begin: len(d.choices), end: -1})
}

// EndSpan closes the innermost open span.
func (d *Data) EndSpan() {
	if len(d.open) == 0 {
		return
	}
	i := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]
	d.spans[i].end = len(d.choices)
}

// Choices returns a copy of the choices drawn so far.
func (d *Data) Choices() ChoiceSequence {
	return d.choices.Clone()
}
