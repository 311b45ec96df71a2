package proptest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Property is the function under test. Returning an error or panicking is
// a failure; returning ErrDiscard (see Assume) discards the example.
type Property[T any] func(T) error

// Example is a generated value together with the choices that produce it.
type Example[T any] struct {
	Value   T
	Choices ChoiceSequence
}

// Status is the final state of a run.
type Status int

const (
	StatusPassed Status = iota
	StatusFalsified
	StatusUnsatisfiable
	StatusFailedHealthCheck
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFalsified:
		return "falsified"
	case StatusUnsatisfiable:
		return "unsatisfiable"
	case StatusFailedHealthCheck:
		return "failed_health_check"
	case StatusInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// outcome classifies a single attempt.
type outcome int

const (
	outcomeValid outcome = iota
	outcomeInvalid
	outcomeOverrun
	outcomeInteresting
)

var outcomeNames = [...]string{"valid", "invalid", "overrun", "interesting"}

func (o outcome) String() string { return outcomeNames[o] }

// runState is the runner's position in its state machine.
type runState int

const (
	stateGenerating runState = iota
	stateEvaluating
	stateShrinking
	stateDone
	stateFailedHealthCheck
)

var runStateNames = [...]string{"generating", "evaluating", "shrinking", "done", "failed_health_check"}

func (s runState) String() string { return runStateNames[s] }

type attempt[T any] struct {
	value    T
	choices  ChoiceSequence
	spans    []span
	outcome  outcome
	err      error
	origin   string
	fatal    error
	drawTime time.Duration
}

// Report summarises a finished run.
type Report[T any] struct {
	RunID          string
	Name           string
	Seed           uint64
	Status         Status
	Attempts       int
	Valid          int
	Discarded      int
	Overruns       int
	Exhausted      bool
	Shrinks        int
	ShrinkAttempts int
	Elapsed        time.Duration

	// Counterexample is the shrunk failing example when Status is
	// StatusFalsified.
	Counterexample *Example[T]

	// Err is nil for a passed run, *Falsified[T] for a failed property,
	// and otherwise wraps ErrUnsatisfiable, ErrFailedHealthCheck or
	// ErrInvalidArgument.
	Err error
}

// Runner drives generation, evaluation and shrinking for one property.
// A Runner is single-use and not safe for concurrent use.
type Runner[T any] struct {
	name     string
	strategy Strategy[T]
	prop     Property[T]
	settings Settings
	logger   *slog.Logger
	rnd      Randomness
	tree     *choiceTree
	health   *healthMonitor
	state    runState
	report   Report[T]
}

// NewRunner prepares a run of prop over values from s. The name identifies
// the property in logs and seeds derandomized runs.
func NewRunner[T any](name string, s Strategy[T], prop Property[T], settings Settings) *Runner[T] {
	settings = settings.withDefaults()
	seed := resolveSeed(name, settings)
	runID := uuid.NewString()
	return &Runner[T]{
		name:     name,
		strategy: s,
		prop:     prop,
		settings: settings,
		logger:   settings.logger().With("run_id", runID, "property", name),
		rnd:      NewRandomness(seed),
		tree:     newChoiceTree(),
		health:   newHealthMonitor(settings),
		report:   Report[T]{RunID: runID, Name: name, Seed: seed},
	}
}

// Seed returns the seed this run draws from.
func (r *Runner[T]) Seed() uint64 {
	return r.report.Seed
}

func (r *Runner[T]) transition(to runState) {
	if r.state == to {
		return
	}
	r.logger.Debug("state transition", "from", r.state, "to", to)
	r.state = to
}

// execute runs one attempt against src: draw a value, then evaluate the
// property on it.
func (r *Runner[T]) execute(src Source) (a attempt[T]) {
	d := newData(src, r.settings.MaxChoices)
	defer func() {
		if p := recover(); p != nil {
			a.choices, a.spans = d.choices, d.spans
			a.outcome = outcomeInteresting
			a.err = &PanicError{Value: p, Site: panicSite()}
			a.origin = errorOrigin(a.err)
		}
	}()

	start := time.Now()
	v, err := r.strategy.Draw(d)
	a.drawTime = time.Since(start)
	a.choices, a.spans = d.choices, d.spans
	if err != nil {
		switch {
		case errors.Is(err, ErrOverrun):
			a.outcome = outcomeOverrun
		case errors.Is(err, ErrFilteredOut), errors.Is(err, ErrDiscard):
			a.outcome = outcomeInvalid
		default:
			a.fatal = err
		}
		return a
	}
	a.value = v

	if err := r.prop(v); err != nil {
		if errors.Is(err, ErrDiscard) {
			a.outcome = outcomeInvalid
			return a
		}
		a.outcome = outcomeInteresting
		a.err = err
		a.origin = errorOrigin(err)
		return a
	}
	a.outcome = outcomeValid
	return a
}

// step runs one fresh attempt and updates the counters, the choice tree and
// the health monitor. A non-nil error ends the run.
func (r *Runner[T]) step() (attempt[T], error) {
	r.transition(stateGenerating)
	a := r.execute(newFreshSource(r.rnd, r.tree))
	r.report.Attempts++
	if a.fatal != nil {
		if errors.Is(a.fatal, errEmptySequence) {
			r.logger.Warn("sampling from an empty sequence is deprecated and cannot produce values",
				"strategy", r.strategy.String())
		}
		return a, a.fatal
	}
	r.tree.record(a.choices)

	switch a.outcome {
	case outcomeValid:
		r.report.Valid++
	case outcomeInvalid:
		r.report.Discarded++
	case outcomeOverrun:
		r.report.Overruns++
	}
	r.health.observe(a.outcome, a.drawTime)
	r.logger.Debug("attempt", "outcome", a.outcome, "choices", len(a.choices))

	if a.outcome == outcomeInteresting {
		return a, nil
	}
	if err := r.health.check(); err != nil {
		return a, err
	}
	return a, nil
}

// budgetExceeded reports whether generation must stop. Pending failures are
// handled before this is consulted.
func (r *Runner[T]) budgetExceeded(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		r.logger.Info("run cancelled", "err", ctx.Err())
		return true
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		r.logger.Info("generation time budget exhausted", "timeout", r.settings.Timeout)
		return true
	}
	return false
}

// Run executes the property until enough valid examples pass, a failure is
// found and shrunk, or the run has to be abandoned.
func (r *Runner[T]) Run(ctx context.Context) *Report[T] {
	start := time.Now()
	defer func() { r.report.Elapsed = time.Since(start) }()

	if err := r.settings.Validate(); err != nil {
		return r.finish(StatusInvalid, err)
	}
	r.logger.Info("run starting",
		"seed", r.report.Seed,
		"strategy", r.strategy.String(),
		"max_examples", r.settings.MaxExamples,
	)

	var deadline time.Time
	if r.settings.Timeout > 0 {
		deadline = start.Add(r.settings.Timeout)
	}
	maxAttempts := r.settings.MaxExamples * 10

	var failing *attempt[T]
	for r.settings.Phases&PhaseGenerate != 0 && r.report.Valid < r.settings.MaxExamples {
		if r.tree.exhausted() {
			r.report.Exhausted = true
			r.logger.Info("every choice sequence explored", "attempts", r.report.Attempts)
			break
		}
		if r.report.Attempts >= maxAttempts || r.budgetExceeded(ctx, deadline) {
			break
		}

		a, err := r.step()
		if err != nil {
			var hc *HealthCheckError
			if errors.As(err, &hc) {
				r.transition(stateFailedHealthCheck)
				return r.finish(StatusFailedHealthCheck, err)
			}
			return r.finish(StatusInvalid, err)
		}
		r.transition(stateEvaluating)
		if a.outcome == outcomeInteresting {
			failing = &a
			break
		}
	}

	if failing != nil {
		return r.falsified(ctx, *failing)
	}
	if r.report.Valid == 0 && r.report.Attempts > 0 {
		return r.finish(StatusUnsatisfiable, fmt.Errorf(
			"%w: no valid example after %d attempts (%d discarded, %d overruns, all sequences explored: %t)",
			ErrUnsatisfiable, r.report.Attempts, r.report.Discarded, r.report.Overruns, r.report.Exhausted))
	}
	return r.finish(StatusPassed, nil)
}

func (r *Runner[T]) falsified(ctx context.Context, first attempt[T]) *Report[T] {
	r.logger.Info("property falsified",
		"choices", first.choices.String(),
		"err", first.err,
		"attempts", r.report.Attempts,
	)

	best := first
	if r.settings.Phases&PhaseShrink != 0 {
		r.transition(stateShrinking)
		s := newShrinker(r, first)
		best = s.shrink(ctx)
		r.report.Shrinks = s.shrinks
		r.report.ShrinkAttempts = s.attempts
	}

	ex := &Example[T]{Value: best.value, Choices: best.choices.Clone()}
	r.report.Counterexample = ex
	return r.finish(StatusFalsified, &Falsified[T]{
		Example: *ex,
		Seed:    r.report.Seed,
		Shrinks: r.report.Shrinks,
		Cause:   best.err,
	})
}

func (r *Runner[T]) finish(status Status, err error) *Report[T] {
	if status != StatusFailedHealthCheck {
		r.transition(stateDone)
	}
	r.report.Status = status
	r.report.Err = err

	attrs := []any{
		"status", status,
		"attempts", r.report.Attempts,
		"valid", r.report.Valid,
		"discarded", r.report.Discarded,
		"overruns", r.report.Overruns,
	}
	if status == StatusPassed {
		r.logger.Info("run finished", attrs...)
	} else {
		r.logger.Warn("run finished", append(attrs, "err", err)...)
	}
	return &r.report
}

// generate collects up to n valid values without evaluating any property.
func (r *Runner[T]) generate(ctx context.Context, n int) ([]T, error) {
	if err := r.settings.Validate(); err != nil {
		return nil, err
	}
	maxAttempts := max(1000, 10*n)
	out := make([]T, 0, n)
	for len(out) < n && r.report.Attempts < maxAttempts {
		if r.tree.exhausted() {
			break
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		a, err := r.step()
		if err != nil {
			return out, err
		}
		if a.outcome == outcomeValid {
			out = append(out, a.value)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no valid example after %d attempts (%d discarded, %d overruns)",
			ErrUnsatisfiable, r.report.Attempts, r.report.Discarded, r.report.Overruns)
	}
	return out, nil
}

// =============================================================================
// Entry Points
// =============================================================================

// Run checks prop against values from s and returns nil, *Falsified[T], or
// an error wrapping ErrUnsatisfiable, ErrFailedHealthCheck or
// ErrInvalidArgument.
func Run[T any](name string, s Strategy[T], prop Property[T], settings Settings) error {
	return NewRunner(name, s, prop, settings).Run(context.Background()).Err
}

// Generate produces a single value from s using a fresh seeded source.
func Generate[T any](s Strategy[T], settings Settings) (T, error) {
	values, err := GenerateN(context.Background(), s, 1, settings)
	if err != nil {
		var zero T
		return zero, err
	}
	return values[0], nil
}

// GenerateN produces up to n distinct-path values from s. It returns fewer
// when every choice sequence has been explored.
func GenerateN[T any](ctx context.Context, s Strategy[T], n int, settings Settings) ([]T, error) {
	if n <= 0 {
		return nil, invalidArgument("GenerateN needs n > 0, got %d", n)
	}
	r := NewRunner("generate", s, func(T) error { return nil }, settings)
	return r.generate(ctx, n)
}

// Replay draws a value from s using exactly the given choice values. It
// returns an error wrapping ErrOverrun when values run out.
func Replay[T any](s Strategy[T], values []uint64) (T, ChoiceSequence, error) {
	d := newData(newReplaySource(values), 0)
	v, err := s.Draw(d)
	return v, d.Choices(), err
}

// Reproduce replays values through s and evaluates prop once. It returns a
// *Falsified[T] when the property fails on the replayed value.
func Reproduce[T any](s Strategy[T], values []uint64, prop Property[T]) error {
	r := NewRunner("reproduce", s, prop, Settings{Verbosity: VerbosityQuiet, MaxChoices: len(values) + 1})
	a := r.execute(newReplaySource(values))
	switch {
	case a.fatal != nil:
		return a.fatal
	case a.outcome == outcomeOverrun:
		return fmt.Errorf("%w after %d choices", ErrOverrun, len(a.choices))
	case a.outcome == outcomeInvalid:
		return ErrDiscard
	case a.outcome == outcomeInteresting:
		return &Falsified[T]{Example: Example[T]{Value: a.value, Choices: a.choices.Clone()}, Cause: a.err}
	}
	return nil
}
