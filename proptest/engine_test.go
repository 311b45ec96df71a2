package proptest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func quiet(seed uint64) Settings {
	return Settings{Seed: seed, Verbosity: VerbosityQuiet}
}

func digits() *SampledFromStrategy[int] {
	return SampledFrom([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
}

// upTo returns 0, 1, ..., n-1.
func upTo(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// =============================================================================
// Run Outcome Tests
// =============================================================================

func TestRun_PassingProperty(t *testing.T) {
	r := NewRunner("in range", IntRange(0, 100), func(n int) error {
		if n < 0 || n > 100 {
			return fmt.Errorf("%d out of range", n)
		}
		return nil
	}, quiet(1))
	report := r.Run(t.Context())

	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if report.Status != StatusPassed {
		t.Errorf("Status = %v, want passed", report.Status)
	}
	if report.Valid != 100 {
		t.Errorf("Valid = %d, want 100", report.Valid)
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestRun_FiniteStrategyStopsWhenExhausted(t *testing.T) {
	calls := 0
	report := NewRunner("bool", Bool(), func(bool) error {
		calls++
		return nil
	}, quiet(1)).Run(t.Context())

	if report.Status != StatusPassed || !report.Exhausted {
		t.Fatalf("Status = %v, Exhausted = %v; want passed and exhausted", report.Status, report.Exhausted)
	}
	if calls != 2 {
		t.Errorf("property called %d times, want 2 (one per distinct value)", calls)
	}
}

func TestRun_UnsatisfiableTinyDomain(t *testing.T) {
	s := SampledFrom([]int{0, 1}).Filter(func(n int) bool { return n < 0 })
	report := NewRunner("tiny", s, func(int) error { return nil }, quiet(1)).Run(t.Context())

	if !errors.Is(report.Err, ErrUnsatisfiable) {
		t.Fatalf("got %v, want ErrUnsatisfiable", report.Err)
	}
	if report.Status != StatusUnsatisfiable {
		t.Errorf("Status = %v", report.Status)
	}
	if !report.Exhausted {
		t.Error("expected the choice tree to be exhausted")
	}
	if report.Valid != 0 {
		t.Errorf("Valid = %d, want 0", report.Valid)
	}
}

func TestRun_FilterTooMuchOnLargerDomain(t *testing.T) {
	s := digits().Filter(func(n int) bool { return n < 0 })
	err := Run[int]("digits", s, func(int) error { return nil }, quiet(1))

	if !errors.Is(err, ErrFailedHealthCheck) {
		t.Fatalf("got %v, want ErrFailedHealthCheck", err)
	}
	var hc *HealthCheckError
	if !errors.As(err, &hc) {
		t.Fatalf("expected *HealthCheckError, got %T", err)
	}
	if hc.Check != HealthCheckFilterTooMuch {
		t.Errorf("Check = %v, want filter_too_much", hc.Check)
	}
	if hc.Discarded != 50 || hc.Valid != 0 {
		t.Errorf("counters = %d discarded, %d valid; want 50, 0", hc.Discarded, hc.Valid)
	}
}

func TestRun_SuppressedHealthCheckEndsUnsatisfiable(t *testing.T) {
	s := digits().Filter(func(n int) bool { return n < 0 })
	settings := quiet(1)
	settings.SuppressHealthCheck = []HealthCheck{HealthCheckFilterTooMuch}

	report := NewRunner("digits", s, func(int) error { return nil }, settings).Run(t.Context())
	if !errors.Is(report.Err, ErrUnsatisfiable) {
		t.Fatalf("got %v, want ErrUnsatisfiable", report.Err)
	}
	if report.Attempts > 10*settings.withDefaults().MaxExamples {
		t.Errorf("Attempts = %d exceeds the attempt cap", report.Attempts)
	}
}

func TestRun_AssumeDiscards(t *testing.T) {
	report := NewRunner("assume", IntRange(0, 1000), func(n int) error {
		if err := Assume(n%2 == 0); err != nil {
			return err
		}
		if n%2 != 0 {
			return errors.New("odd value got through")
		}
		return nil
	}, quiet(3)).Run(t.Context())

	if report.Err != nil {
		t.Fatalf("unexpected error: %v", report.Err)
	}
	if report.Discarded == 0 {
		t.Error("expected some discarded examples")
	}
}

func TestRun_DataTooLarge(t *testing.T) {
	settings := quiet(1)
	settings.MaxChoices = 2
	err := Run("big", SliceOf(IntRange(0, 1000), 5, 5), func([]int) error { return nil }, settings)

	var hc *HealthCheckError
	if !errors.As(err, &hc) || hc.Check != HealthCheckDataTooLarge {
		t.Fatalf("got %v, want data_too_large health check", err)
	}
}

func TestRun_TooSlow(t *testing.T) {
	slow := Custom("slow", func(d *Data) (uint64, error) {
		time.Sleep(20 * time.Millisecond)
		return d.Draw(1 << 40)
	})
	settings := quiet(1)
	settings.Health.SlowThreshold = 50 * time.Millisecond

	err := Run("slow", slow, func(uint64) error { return nil }, settings)
	var hc *HealthCheckError
	if !errors.As(err, &hc) || hc.Check != HealthCheckTooSlow {
		t.Fatalf("got %v, want too_slow health check", err)
	}
}

func TestRun_InvalidSettings(t *testing.T) {
	settings := quiet(1)
	settings.MaxExamples = -1
	err := Run("bad", Bool(), func(bool) error { return nil }, settings)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("got %v, want ErrInvalidArgument", err)
	}
}

func TestRun_GenerateOnlyPhaseSkipsShrinking(t *testing.T) {
	settings := quiet(1)
	settings.Phases = PhaseGenerate
	report := NewRunner("no shrink", IntRange(0, 1<<30), func(n int) error {
		if n > 10 {
			return errors.New("too big")
		}
		return nil
	}, settings).Run(t.Context())

	if report.Status != StatusFalsified {
		t.Fatalf("Status = %v, want falsified", report.Status)
	}
	if report.Shrinks != 0 || report.ShrinkAttempts != 0 {
		t.Errorf("shrinking ran: %d shrinks, %d attempts", report.Shrinks, report.ShrinkAttempts)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	report := NewRunner("cancelled", IntRange(0, 100), func(int) error { return nil }, quiet(1)).Run(ctx)
	if report.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0 for a cancelled run", report.Attempts)
	}
}

// =============================================================================
// Shrinking Tests
// =============================================================================

func TestShrink_IntegerToBoundary(t *testing.T) {
	err := Run("over ten", IntRange(0, 1000), func(n int) error {
		if n > 10 {
			return fmt.Errorf("%d > 10", n)
		}
		return nil
	}, quiet(7))

	var f *Falsified[int]
	if !errors.As(err, &f) {
		t.Fatalf("got %v, want *Falsified", err)
	}
	if f.Example.Value != 11 {
		t.Errorf("shrunk to %d, want 11", f.Example.Value)
	}
	if diff := cmp.Diff([]uint64{11}, f.Example.Choices.Values()); diff != "" {
		t.Errorf("choices mismatch (-want +got):\n%s", diff)
	}
}

func TestShrink_SliceToMinimalLength(t *testing.T) {
	err := Run("short lists", SliceOf(IntRange(0, 100), 0, 10), func(xs []int) error {
		if len(xs) >= 3 {
			return errors.New("too long")
		}
		return nil
	}, quiet(11))

	var f *Falsified[[]int]
	if !errors.As(err, &f) {
		t.Fatalf("got %v, want *Falsified", err)
	}
	if diff := cmp.Diff([]int{0, 0, 0}, f.Example.Value); diff != "" {
		t.Errorf("shrunk value mismatch (-want +got):\n%s", diff)
	}
}

func TestShrink_SampledFromTowardFirst(t *testing.T) {
	letters := SampledFrom([]string{"a", "b", "c", "d", "e"})
	err := Run("not a", letters, func(s string) error {
		if s != "a" {
			return errors.New("not a")
		}
		return nil
	}, quiet(2))

	var f *Falsified[string]
	if !errors.As(err, &f) {
		t.Fatalf("got %v, want *Falsified", err)
	}
	if f.Example.Value != "b" {
		t.Errorf("shrunk to %q, want b", f.Example.Value)
	}
}

type bigError struct{ n int }

func (e *bigError) Error() string { return fmt.Sprintf("%d is big", e.n) }

func TestShrink_KeepsFailureOrigin(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		err := Run("two bugs", IntRange(0, 1000), func(n int) error {
			if n > 500 {
				return &bigError{n: n}
			}
			if n > 10 {
				return errors.New("medium")
			}
			return nil
		}, quiet(seed))

		var f *Falsified[int]
		if !errors.As(err, &f) {
			t.Fatalf("seed %d: got %v, want *Falsified", seed, err)
		}
		var big *bigError
		want := 11
		if errors.As(f.Cause, &big) {
			want = 501
		}
		if f.Example.Value != want {
			t.Errorf("seed %d: cause %v shrunk to %d, want %d", seed, f.Cause, f.Example.Value, want)
		}
	}
}

func TestRun_FilteredSamplingFindsRareValue(t *testing.T) {
	s := SampledFrom(upTo(100)).Filter(func(n int) bool { return n == 99 })
	for seed := uint64(1); seed <= 5; seed++ {
		err := Run[int]("rare value", s, func(n int) error {
			return fmt.Errorf("found %d", n)
		}, quiet(seed))

		var f *Falsified[int]
		if !errors.As(err, &f) {
			t.Fatalf("seed %d: got %v, want *Falsified", seed, err)
		}
		if f.Example.Value != 99 {
			t.Errorf("seed %d: shrunk to %d, want 99", seed, f.Example.Value)
		}
	}
}

func TestShrink_Panic(t *testing.T) {
	err := Run("panics", IntRange(0, 1000), func(n int) error {
		if n >= 100 {
			panic("boom")
		}
		return nil
	}, quiet(5))

	var f *Falsified[int]
	if !errors.As(err, &f) {
		t.Fatalf("got %v, want *Falsified", err)
	}
	var p *PanicError
	if !errors.As(f.Cause, &p) {
		t.Fatalf("cause %v is not a *PanicError", f.Cause)
	}
	if p.Value != "boom" || p.Site == "" {
		t.Errorf("PanicError = %+v", p)
	}
	if f.Example.Value != 100 {
		t.Errorf("shrunk to %d, want 100", f.Example.Value)
	}
}

func TestShrink_SameSeedShrinksTheSameWay(t *testing.T) {
	s := PairOf(IntRange(0, 1000), IntRange(0, 1000))
	prop := func(p Pair[int, int]) error {
		if p.First >= 10 && p.Second >= 10 {
			return errors.New("both large")
		}
		return nil
	}

	var first *Report[Pair[int, int]]
	for i := 0; i < 10; i++ {
		r := NewRunner("duplicates", s, prop, quiet(3)).Run(t.Context())
		if r.Status != StatusFalsified {
			t.Fatalf("run %d: status %s, want falsified", i, r.Status)
		}
		if got, want := r.Counterexample.Value, (Pair[int, int]{First: 10, Second: 10}); got != want {
			t.Errorf("run %d: shrunk to %+v, want %+v", i, got, want)
		}
		if first == nil {
			first = r
			continue
		}
		if r.Shrinks != first.Shrinks || r.ShrinkAttempts != first.ShrinkAttempts {
			t.Errorf("run %d: %d shrinks in %d attempts, first run took %d in %d",
				i, r.Shrinks, r.ShrinkAttempts, first.Shrinks, first.ShrinkAttempts)
		}
		if diff := cmp.Diff(first.Counterexample.Choices.Values(), r.Counterexample.Choices.Values()); diff != "" {
			t.Errorf("run %d: choices differ (-first +got):\n%s", i, diff)
		}
	}
}

func TestShrink_ResultIsNeverLarger(t *testing.T) {
	settings := quiet(9)
	settings.Phases = PhaseGenerate
	s := SliceOf(IntRange(0, 1000), 0, 8)
	prop := func(xs []int) error {
		sum := 0
		for _, x := range xs {
			sum += x
		}
		if sum > 1500 {
			return errors.New("sum too large")
		}
		return nil
	}

	unshrunk := NewRunner("sum", s, prop, settings).Run(t.Context())
	if unshrunk.Counterexample == nil {
		t.Fatalf("no failure found: %v", unshrunk.Err)
	}
	settings.Phases = AllPhases
	shrunk := NewRunner("sum", s, prop, settings).Run(t.Context())
	if shrunk.Counterexample == nil {
		t.Fatalf("no failure found: %v", shrunk.Err)
	}

	before, after := unshrunk.Counterexample.Choices.Values(), shrunk.Counterexample.Choices.Values()
	if Compare(after, before) > 0 {
		t.Errorf("shrunk %v is larger than original %v", after, before)
	}
	if err := Reproduce(s, after, prop); err == nil {
		t.Error("shrunk sequence no longer fails")
	}
}

func TestShrink_RespectsMaxShrinks(t *testing.T) {
	settings := quiet(7)
	settings.MaxShrinks = 1
	report := NewRunner("limited", IntRange(0, 1<<30), func(n int) error {
		if n > 10 {
			return errors.New("too big")
		}
		return nil
	}, settings).Run(t.Context())

	if report.Shrinks > 1 {
		t.Errorf("Shrinks = %d, want at most 1", report.Shrinks)
	}
}

func TestMinimizeValue(t *testing.T) {
	tests := []struct {
		start, threshold, want uint64
	}{
		{1000, 37, 37},
		{1000, 0, 0},
		{3, 2, 2},
		{1 << 40, 12345, 12345},
	}
	for _, tt := range tests {
		got := minimizeValue(tt.start, func(u uint64) bool { return u >= tt.threshold })
		if got != tt.want {
			t.Errorf("minimizeValue(%d, >= %d) = %d, want %d", tt.start, tt.threshold, got, tt.want)
		}
	}
}

// =============================================================================
// Replay Tests
// =============================================================================

func TestRun_SameSeedSameResult(t *testing.T) {
	prop := func(xs []int) error {
		if len(xs) > 2 && xs[1] > 50 {
			return errors.New("bad")
		}
		return nil
	}
	s := SliceOf(IntRange(0, 100), 0, 6)

	a := NewRunner("det", s, prop, quiet(99)).Run(t.Context())
	b := NewRunner("det", s, prop, quiet(99)).Run(t.Context())
	if a.Attempts != b.Attempts || a.Status != b.Status {
		t.Fatalf("runs differ: %d/%v vs %d/%v", a.Attempts, a.Status, b.Attempts, b.Status)
	}
	if a.Counterexample != nil {
		if diff := cmp.Diff(a.Counterexample.Choices, b.Counterexample.Choices); diff != "" {
			t.Errorf("counterexamples differ (-a +b):\n%s", diff)
		}
	}
}

func TestReplay_ReproducesGeneratedValue(t *testing.T) {
	settings := quiet(21)
	settings.Phases = PhaseGenerate
	s := PairOf(Text(CharsetAlpha, 0, 5), SliceOf(IntRange(-50, 50), 0, 4))
	report := NewRunner("replay", s, func(p Pair[string, []int]) error {
		if len(p.First) > 2 {
			return errors.New("long")
		}
		return nil
	}, settings).Run(t.Context())
	if report.Counterexample == nil {
		t.Fatalf("no failure found: %v", report.Err)
	}

	v, seq, err := Replay(s, report.Counterexample.Choices.Values())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if diff := cmp.Diff(report.Counterexample.Value, v); diff != "" {
		t.Errorf("replayed value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(report.Counterexample.Choices, seq); diff != "" {
		t.Errorf("replayed choices mismatch (-want +got):\n%s", diff)
	}
}

func TestReplay_Overrun(t *testing.T) {
	_, _, err := Replay(PairOf(IntRange(0, 9), IntRange(0, 9)), []uint64{1})
	if !errors.Is(err, ErrOverrun) {
		t.Errorf("got %v, want ErrOverrun", err)
	}
	if err := Reproduce(IntRange(0, 9), nil, func(int) error { return nil }); !errors.Is(err, ErrOverrun) {
		t.Errorf("Reproduce: got %v, want ErrOverrun", err)
	}
}

func TestReproduce(t *testing.T) {
	prop := func(n int) error {
		if n == 42 {
			return errors.New("the answer")
		}
		return nil
	}
	err := Reproduce(IntRange(0, 100), []uint64{42}, prop)
	var f *Falsified[int]
	if !errors.As(err, &f) || f.Example.Value != 42 {
		t.Errorf("got %v, want falsified at 42", err)
	}
	if err := Reproduce(IntRange(0, 100), []uint64{41}, prop); err != nil {
		t.Errorf("unexpected failure: %v", err)
	}
}

// =============================================================================
// Generate Tests
// =============================================================================

func TestGenerateN(t *testing.T) {
	values, err := GenerateN(t.Context(), IntRange(10, 20), 25, quiet(4))
	if err != nil {
		t.Fatalf("GenerateN: %v", err)
	}
	if len(values) != 25 {
		t.Fatalf("got %d values, want 25", len(values))
	}
	for _, v := range values {
		if v < 10 || v > 20 {
			t.Errorf("value %d out of range", v)
		}
	}
}

func TestGenerateN_StopsAtExhaustion(t *testing.T) {
	values, err := GenerateN(t.Context(), Just("only"), 10, quiet(4))
	if err != nil {
		t.Fatalf("GenerateN: %v", err)
	}
	if diff := cmp.Diff([]string{"only"}, values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate_Unsatisfiable(t *testing.T) {
	s := SampledFrom([]int{1, 2}).Filter(func(n int) bool { return n > 5 })
	if _, err := Generate[int](s, quiet(1)); !errors.Is(err, ErrUnsatisfiable) {
		t.Errorf("got %v, want ErrUnsatisfiable", err)
	}
	if _, err := GenerateN(t.Context(), Bool(), 0, quiet(1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("n = 0: got %v, want ErrInvalidArgument", err)
	}
}
