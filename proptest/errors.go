package proptest

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

var (
	// ErrInvalidArgument reports a malformed strategy or setting. It is
	// returned at construction or first use and never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsatisfiable reports that no valid example can be produced.
	ErrUnsatisfiable = errors.New("unsatisfiable")

	// ErrFailedHealthCheck reports that generation was too unproductive to
	// continue. Use errors.As with *HealthCheckError for details.
	ErrFailedHealthCheck = errors.New("failed health check")

	// ErrOverrun signals that a replayed sequence ran out of choices, or that
	// an attempt exceeded Settings.MaxChoices. The runner absorbs it.
	ErrOverrun = errors.New("choice sequence overrun")

	// ErrFilteredOut signals that a filter rejected every candidate it was
	// allowed to try in one attempt. The runner absorbs it.
	ErrFilteredOut = errors.New("filter rejected all candidates")

	// ErrDiscard marks an example the property chose not to test. See Assume.
	ErrDiscard = errors.New("example discarded")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Assume discards the current example when cond is false. Properties return
// its result:
//
//	if err := proptest.Assume(x != 0); err != nil {
//	    return err
//	}
func Assume(cond bool) error {
	if cond {
		return nil
	}
	return ErrDiscard
}

// Falsified is returned by Run when the property failed. Example holds the
// shrunk counterexample; replaying Example.Choices with Replay or Reproduce
// reproduces it.
type Falsified[T any] struct {
	Example Example[T]
	Seed    uint64
	Shrinks int
	Cause   error
}

func (f *Falsified[T]) Error() string {
	return fmt.Sprintf("falsified after %d shrinks with value %+v (choices %s, seed %d): %v",
		f.Shrinks, f.Example.Value, FormatValues(f.Example.Choices.Values()), f.Seed, f.Cause)
}

func (f *Falsified[T]) Unwrap() error {
	return f.Cause
}

// PanicError wraps a value recovered from a panic raised while drawing or
// evaluating an example.
type PanicError struct {
	Value any
	Site  string
}

func (p *PanicError) Error() string {
	if p.Site == "" {
		return fmt.Sprintf("panic: %v", p.Value)
	}
	return fmt.Sprintf("panic: %v (at %s)", p.Value, p.Site)
}

func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// errorOrigin identifies a failure so the shrinker only accepts candidates
// that fail the same way. Errors carry no location, so the type of the
// innermost wrapped error stands in for it.
func errorOrigin(err error) string {
	var p *PanicError
	if errors.As(err, &p) {
		return fmt.Sprintf("panic %T at %s", p.Value, p.Site)
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return fmt.Sprintf("%T", root)
}

// panicSite returns file:line of the first frame below runtime.gopanic. It
// must be called from the deferred function that recovered.
func panicSite() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		f, more := frames.Next()
		if afterPanic && !strings.HasPrefix(f.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if f.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			return ""
		}
	}
}
