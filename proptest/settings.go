package proptest

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shipq/conjecture/logging"
)

// Verbosity controls how much a run logs. The zero value is normal.
type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityQuiet
	VerbosityVerbose
	VerbosityDebug
)

var verbosityNames = map[Verbosity]string{
	VerbosityQuiet:   "quiet",
	VerbosityNormal:  "normal",
	VerbosityVerbose: "verbose",
	VerbosityDebug:   "debug",
}

func (v Verbosity) String() string {
	if name, ok := verbosityNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Verbosity(%d)", int(v))
}

// ParseVerbosity reads a verbosity name.
func ParseVerbosity(s string) (Verbosity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range verbosityNames {
		if name == s {
			return v, nil
		}
	}
	return 0, invalidArgument("unknown verbosity %q", s)
}

// Phase selects which parts of a run execute.
type Phase uint8

const (
	PhaseGenerate Phase = 1 << iota
	PhaseShrink

	AllPhases = PhaseGenerate | PhaseShrink
)

func (p Phase) String() string {
	var names []string
	if p&PhaseGenerate != 0 {
		names = append(names, "generate")
	}
	if p&PhaseShrink != 0 {
		names = append(names, "shrink")
	}
	if rest := p &^ AllPhases; rest != 0 {
		names = append(names, fmt.Sprintf("Phase(%d)", uint8(rest)))
	}
	return strings.Join(names, ", ")
}

// HealthSettings configures the health-check monitor.
type HealthSettings struct {
	// MinValid is the number of valid examples after which the opening
	// phase checks stop applying.
	MinValid int

	// MaxDiscards is the number of filtered-out or assumption-failed
	// attempts tolerated before MinValid valid examples exist.
	MaxDiscards int

	// MaxOverruns is the number of attempts exceeding MaxChoices tolerated
	// before MinValid valid examples exist.
	MaxOverruns int

	// SlowThreshold bounds the total draw time before MinValid valid
	// examples exist.
	SlowThreshold time.Duration

	// MinAttempts and MaxDiscardRatio apply for the whole run: once
	// MinAttempts attempts were made, a larger discard ratio aborts.
	MinAttempts     int
	MaxDiscardRatio float64
}

// Settings controls a property run. Zero fields take their defaults.
type Settings struct {
	// MaxExamples is the number of valid examples to test. Default: 100.
	MaxExamples int

	// MaxChoices bounds the choices one attempt may draw. Default: 8192.
	MaxChoices int

	// MaxShrinks bounds successful shrink steps. Default: 500.
	MaxShrinks int

	// MaxShrinkAttempts bounds replays while shrinking. Default: 10000.
	MaxShrinkAttempts int

	// Timeout bounds the generation phase. Zero means no limit.
	Timeout time.Duration

	// ShrinkTimeout bounds the shrink phase. Default: 30s.
	ShrinkTimeout time.Duration

	// Seed is the random seed. Zero means time-based unless Derandomize.
	Seed uint64

	// Derandomize derives the seed from the property name.
	Derandomize bool

	Verbosity Verbosity

	// Phases selects generation and shrinking. Default: AllPhases.
	Phases Phase

	SuppressHealthCheck []HealthCheck

	Health HealthSettings

	// Logger overrides the logger built from Verbosity.
	Logger *slog.Logger
}

// DefaultHealthSettings returns the standard health-check limits.
func DefaultHealthSettings() HealthSettings {
	return HealthSettings{
		MinValid:        10,
		MaxDiscards:     50,
		MaxOverruns:     20,
		SlowThreshold:   time.Second,
		MinAttempts:     200,
		MaxDiscardRatio: 0.95,
	}
}

// DefaultSettings returns sensible defaults for property testing.
func DefaultSettings() Settings {
	return Settings{
		MaxExamples:       100,
		MaxChoices:        8192,
		MaxShrinks:        500,
		MaxShrinkAttempts: 10000,
		ShrinkTimeout:     30 * time.Second,
		Verbosity:         VerbosityNormal,
		Phases:            AllPhases,
		Health:            DefaultHealthSettings(),
	}
}

// withDefaults fills zero fields from DefaultSettings.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MaxExamples == 0 {
		s.MaxExamples = d.MaxExamples
	}
	if s.MaxChoices == 0 {
		s.MaxChoices = d.MaxChoices
	}
	if s.MaxShrinks == 0 {
		s.MaxShrinks = d.MaxShrinks
	}
	if s.MaxShrinkAttempts == 0 {
		s.MaxShrinkAttempts = d.MaxShrinkAttempts
	}
	if s.ShrinkTimeout == 0 {
		s.ShrinkTimeout = d.ShrinkTimeout
	}
	if s.Phases == 0 {
		s.Phases = d.Phases
	}
	h, dh := &s.Health, d.Health
	if h.MinValid == 0 {
		h.MinValid = dh.MinValid
	}
	if h.MaxDiscards == 0 {
		h.MaxDiscards = dh.MaxDiscards
	}
	if h.MaxOverruns == 0 {
		h.MaxOverruns = dh.MaxOverruns
	}
	if h.SlowThreshold == 0 {
		h.SlowThreshold = dh.SlowThreshold
	}
	if h.MinAttempts == 0 {
		h.MinAttempts = dh.MinAttempts
	}
	if h.MaxDiscardRatio == 0 {
		h.MaxDiscardRatio = dh.MaxDiscardRatio
	}
	return s
}

// Validate reports settings no run could honour.
func (s Settings) Validate() error {
	switch {
	case s.MaxExamples < 0:
		return invalidArgument("MaxExamples must be non-negative, got %d", s.MaxExamples)
	case s.MaxChoices < 0:
		return invalidArgument("MaxChoices must be non-negative, got %d", s.MaxChoices)
	case s.MaxShrinks < 0 || s.MaxShrinkAttempts < 0:
		return invalidArgument("shrink limits must be non-negative")
	case s.Timeout < 0 || s.ShrinkTimeout < 0:
		return invalidArgument("timeouts must be non-negative")
	case s.Verbosity < VerbosityNormal || s.Verbosity > VerbosityDebug:
		return invalidArgument("unknown verbosity %d", int(s.Verbosity))
	case s.Phases&^AllPhases != 0:
		return invalidArgument("unknown phases %b", s.Phases)
	case s.Health.MaxDiscardRatio < 0 || s.Health.MaxDiscardRatio > 1:
		return invalidArgument("MaxDiscardRatio must be in [0, 1], got %v", s.Health.MaxDiscardRatio)
	}
	for _, hc := range s.SuppressHealthCheck {
		if _, ok := healthCheckNames[hc]; !ok {
			return invalidArgument("unknown health check %d", int(hc))
		}
	}
	return nil
}

func (s Settings) suppressed(hc HealthCheck) bool {
	return slices.Contains(s.SuppressHealthCheck, hc)
}

func (s Settings) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	switch s.Verbosity {
	case VerbosityQuiet:
		return logging.Discard()
	case VerbosityVerbose:
		return logging.New(os.Stderr, slog.LevelInfo, false)
	case VerbosityDebug:
		return logging.New(os.Stderr, slog.LevelDebug, false)
	default:
		return logging.New(os.Stderr, slog.LevelWarn, false)
	}
}
