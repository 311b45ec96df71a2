package proptest

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/shipq/conjecture/logging"
)

// Check runs prop against values drawn from s and reports a failure through
// t.Errorf. Zero fields of settings are taken from the current profile, and
// PROPTEST_* environment variables override both.
//
// Example:
//
//	proptest.Check(t, "sorted stays sorted", proptest.Settings{MaxExamples: 500},
//	    proptest.SliceOf(proptest.IntRange(0, 100), 0, 20),
//	    func(xs []int) error {
//	        slices.Sort(xs)
//	        if !slices.IsSorted(xs) {
//	            return errors.New("not sorted")
//	        }
//	        return nil
//	    })
func Check[T any](t testing.TB, name string, settings Settings, s Strategy[T], prop Property[T]) *Report[T] {
	t.Helper()
	return check(t, name, settings, s, prop, t.Errorf)
}

// MustCheck is like Check but stops the test with t.Fatalf on failure.
func MustCheck[T any](t testing.TB, name string, settings Settings, s Strategy[T], prop Property[T]) *Report[T] {
	t.Helper()
	return check(t, name, settings, s, prop, t.Fatalf)
}

// QuickCheck runs prop with the current profile's settings.
func QuickCheck[T any](t testing.TB, name string, s Strategy[T], prop Property[T]) *Report[T] {
	t.Helper()
	return check(t, name, Settings{}, s, prop, t.Errorf)
}

// ForAll runs a boolean property.
//
// Example:
//
//	proptest.ForAll(t, "abs is non-negative", proptest.IntRange(-100, 100), func(n int) bool {
//	    return max(n, -n) >= 0
//	})
func ForAll[T any](t testing.TB, name string, s Strategy[T], prop func(T) bool) *Report[T] {
	t.Helper()
	return check(t, name, Settings{}, s, func(v T) error {
		if !prop(v) {
			return errors.New("property returned false")
		}
		return nil
	}, t.Errorf)
}

// RunSeeds runs prop once per seed in its own subtest. Useful for pinning
// seeds that found bugs before.
func RunSeeds[T any](t *testing.T, name string, seeds []uint64, s Strategy[T], prop Property[T]) {
	t.Helper()
	for _, seed := range seeds {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			check(t, name, Settings{Seed: seed}, s, prop, t.Errorf)
		})
	}
}

func check[T any](t testing.TB, name string, settings Settings, s Strategy[T], prop Property[T], fail func(string, ...any)) *Report[T] {
	t.Helper()

	settings = overlay(CurrentSettings(), settings)
	settings, err := ApplyEnv(settings)
	if err != nil {
		t.Fatalf("proptest %q: %v", name, err)
		return nil
	}
	if settings.Logger == nil && settings.Verbosity != VerbosityQuiet {
		settings.Logger = testLogger(t, settings.Verbosity)
	}

	report := NewRunner(name, s, prop, settings).Run(t.Context())
	if report.Err == nil {
		return report
	}
	fail("%s", failureMessage(report))
	return report
}

func failureMessage[T any](r *Report[T]) string {
	var b strings.Builder
	if r.Status != StatusFalsified {
		fmt.Fprintf(&b, "proptest %q %s after %d attempts: %v", r.Name, r.Status, r.Attempts, r.Err)
		return b.String()
	}
	ex := r.Counterexample
	fmt.Fprintf(&b, "proptest %q falsified after %d valid examples and %d shrinks\n", r.Name, r.Valid, r.Shrinks)
	fmt.Fprintf(&b, "  value:   %+v\n", ex.Value)
	fmt.Fprintf(&b, "  choices: %s\n", FormatValues(ex.Choices.Values()))
	var f *Falsified[T]
	if errors.As(r.Err, &f) {
		fmt.Fprintf(&b, "  cause:   %v\n", f.Cause)
	}
	fmt.Fprintf(&b, "  use PROPTEST_SEED=%d to reproduce", r.Seed)
	return b.String()
}

// tbWriter sends log lines to the test log, so they only show for failing
// or verbose tests.
type tbWriter struct {
	t testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func testLogger(t testing.TB, v Verbosity) *slog.Logger {
	level := slog.LevelWarn
	switch v {
	case VerbosityVerbose:
		level = slog.LevelInfo
	case VerbosityDebug:
		level = slog.LevelDebug
	}
	return logging.New(tbWriter{t: t}, level, false)
}
