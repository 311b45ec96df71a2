package proptest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// Choice Sequence Tests
// =============================================================================

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b []uint64
		want int
	}{
		{"both empty", nil, nil, 0},
		{"shorter is smaller", []uint64{9}, []uint64{0, 0}, -1},
		{"longer is larger", []uint64{0, 0}, []uint64{9}, 1},
		{"equal", []uint64{1, 2, 3}, []uint64{1, 2, 3}, 0},
		{"first difference decides", []uint64{1, 2, 9}, []uint64{1, 3, 0}, -1},
		{"larger element", []uint64{5}, []uint64{4}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestChoiceSequence_String(t *testing.T) {
	seq := ChoiceSequence{{Index: 0, Value: 3, Max: 9}, {Index: 1, Value: 0, Max: 1}}
	if got, want := seq.String(), "[3/9 0/1]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]uint64{3, 0}, seq.Values()); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestChoiceSequence_CloneIsIndependent(t *testing.T) {
	seq := ChoiceSequence{{Value: 1, Max: 5}}
	c := seq.Clone()
	c[0].Value = 4
	if seq[0].Value != 1 {
		t.Errorf("Clone shares storage: original now %d", seq[0].Value)
	}
}

func TestParseValues(t *testing.T) {
	tests := []struct {
		in      string
		want    []uint64
		wantErr bool
	}{
		{"", nil, false},
		{"1,2,3", []uint64{1, 2, 3}, false},
		{"[3/9 0/1]", []uint64{3, 0}, false},
		{" 7 , 8 ", []uint64{7, 8}, false},
		{"1,x", nil, true},
		{"-1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValues(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("ParseValues(%q) error = %v, want ErrInvalidArgument", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValues(%q): %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseValues(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}

	if got := FormatValues([]uint64{4, 0, 12}); got != "4,0,12" {
		t.Errorf("FormatValues = %q", got)
	}
}

func TestWithout(t *testing.T) {
	values := []uint64{0, 1, 2, 3, 4, 5}
	got := without(values, span{begin: 1, end: 2}, span{begin: 3, end: 5})
	if diff := cmp.Diff([]uint64{0, 2, 5}, got); diff != "" {
		t.Errorf("without mismatch (-want +got):\n%s", diff)
	}
	if values[1] != 1 {
		t.Error("without modified its input")
	}
}

// =============================================================================
// Source Tests
// =============================================================================

func TestReplaySource(t *testing.T) {
	d := newData(newReplaySource([]uint64{3, 50}), 0)

	v, err := d.Draw(9)
	if err != nil || v != 3 {
		t.Fatalf("Draw(9) = %d, %v; want 3", v, err)
	}
	v, err = d.Draw(10)
	if err != nil || v != 10 {
		t.Fatalf("Draw(10) = %d, %v; want clamped 10", v, err)
	}
	if _, err := d.Draw(1); !errors.Is(err, ErrOverrun) {
		t.Fatalf("Draw past end: got %v, want ErrOverrun", err)
	}
	if diff := cmp.Diff([]uint64{3, 10}, d.Choices().Values()); diff != "" {
		t.Errorf("recorded choices mismatch (-want +got):\n%s", diff)
	}
}

func TestData_MaxChoices(t *testing.T) {
	d := newData(newFreshSource(NewRandomness(1), nil), 2)
	for i := 0; i < 2; i++ {
		if _, err := d.Draw(100); err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
	}
	if _, err := d.Draw(100); !errors.Is(err, ErrOverrun) {
		t.Errorf("third draw: got %v, want ErrOverrun", err)
	}
}

func TestFreshSource_DeterministicAndBounded(t *testing.T) {
	a := newFreshSource(NewRandomness(42), nil)
	b := newFreshSource(NewRandomness(42), nil)
	for i := 0; i < 1000; i++ {
		max := uint64(i % 37)
		va, _ := a.Draw(max)
		vb, _ := b.Draw(max)
		if va != vb {
			t.Fatalf("draw %d differs for the same seed: %d vs %d", i, va, vb)
		}
		if va > max {
			t.Fatalf("draw %d = %d exceeds max %d", i, va, max)
		}
	}
}

func TestBiasedDraw_FavoursEdges(t *testing.T) {
	r := NewRandomness(7)
	const max = 1 << 40
	zeros, maxes, small := 0, 0, 0
	for i := 0; i < 4000; i++ {
		switch v := biasedDraw(r, max); {
		case v == 0:
			zeros++
		case v == max:
			maxes++
		case v <= smallValue:
			small++
		}
	}
	// Uniform draws over 2^40 would essentially never hit these.
	if zeros < 100 || maxes < 100 || small < 200 {
		t.Errorf("edge values too rare: zeros=%d maxes=%d small=%d", zeros, maxes, small)
	}
}

func TestSpans(t *testing.T) {
	d := newData(newReplaySource([]uint64{1, 2, 3}), 0)
	d.StartSpan("outer")
	d.Draw(9)
	d.StartSpan("inner")
	d.Draw(9)
	d.EndSpan()
	d.Draw(9)
	d.EndSpan()

	want := []span{{label: "outer", begin: 0, end: 3}, {label: "inner", begin: 1, end: 2}}
	if diff := cmp.Diff(want, d.spans, cmp.AllowUnexported(span{})); diff != "" {
		t.Errorf("spans mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Choice Tree Tests
// =============================================================================

func seqOf(maxes []uint64, values ...uint64) ChoiceSequence {
	seq := make(ChoiceSequence, len(values))
	for i, v := range values {
		seq[i] = Choice{Index: i, Value: v, Max: maxes[i]}
	}
	return seq
}

func TestChoiceTree_Exhaustion(t *testing.T) {
	tree := newChoiceTree()
	maxes := []uint64{1, 2}

	leaves := [][]uint64{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}}
	for _, l := range leaves {
		tree.record(seqOf(maxes, l...))
		if tree.exhausted() {
			t.Fatalf("tree exhausted early after %v", l)
		}
	}
	tree.record(seqOf(maxes, 1, 2))
	if !tree.exhausted() {
		t.Error("tree should be exhausted once every leaf is recorded")
	}
}

func TestChoiceTree_EmptySequenceExhausts(t *testing.T) {
	tree := newChoiceTree()
	tree.record(nil)
	if !tree.exhausted() {
		t.Error("a strategy that draws nothing has exactly one example")
	}
}

func TestFreshSource_SteersAwayFromExhausted(t *testing.T) {
	tree := newChoiceTree()
	tree.record(seqOf([]uint64{3}, 0))
	tree.record(seqOf([]uint64{3}, 1))
	tree.record(seqOf([]uint64{3}, 3))

	r := NewRandomness(1)
	for i := 0; i < 50; i++ {
		v, _ := newFreshSource(r, tree).Draw(3)
		if v != 2 {
			t.Fatalf("draw %d = %d, want the only unexplored child 2", i, v)
		}
	}
}

func TestFreshSource_SteersWideNodes(t *testing.T) {
	tree := newChoiceTree()
	const max = 1000
	for v := uint64(0); v < max; v++ {
		tree.record(seqOf([]uint64{max}, v))
	}
	v, _ := newFreshSource(NewRandomness(3), tree).Draw(max)
	if v != max {
		t.Errorf("got %d, want the only unexplored child %d", v, max)
	}
}
