package proptest

import (
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// envOverrides are read by the testing helpers on every call, so a failing
// run can be reproduced with PROPTEST_SEED=<n> go test -run <name>.
type envOverrides struct {
	Seed        string `env:"PROPTEST_SEED"`
	Profile     string `env:"PROPTEST_PROFILE"`
	MaxExamples int    `env:"PROPTEST_MAX_EXAMPLES"`
	Verbosity   string `env:"PROPTEST_VERBOSITY"`
}

func parseEnv() (envOverrides, error) {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// ApplyEnv layers the PROPTEST_* environment over s. A profile named by
// PROPTEST_PROFILE supplies every field s leaves at its zero value.
func ApplyEnv(s Settings) (Settings, error) {
	e, err := parseEnv()
	if err != nil {
		return s, err
	}
	if e.Profile != "" {
		base, err := Profile(e.Profile)
		if err != nil {
			return s, fmt.Errorf("PROPTEST_PROFILE: %w", err)
		}
		s = overlay(base, s)
	}
	if e.Seed != "" {
		seed, err := strconv.ParseUint(e.Seed, 10, 64)
		if err != nil {
			return s, invalidArgument("PROPTEST_SEED=%q is not an unsigned integer", e.Seed)
		}
		s.Seed = seed
	}
	if e.MaxExamples != 0 {
		s.MaxExamples = e.MaxExamples
	}
	if e.Verbosity != "" {
		v, err := ParseVerbosity(e.Verbosity)
		if err != nil {
			return s, fmt.Errorf("PROPTEST_VERBOSITY: %w", err)
		}
		s.Verbosity = v
	}
	return s, nil
}

// overlay returns base with every non-zero field of s applied on top.
func overlay(base, s Settings) Settings {
	if s.MaxExamples != 0 {
		base.MaxExamples = s.MaxExamples
	}
	if s.MaxChoices != 0 {
		base.MaxChoices = s.MaxChoices
	}
	if s.MaxShrinks != 0 {
		base.MaxShrinks = s.MaxShrinks
	}
	if s.MaxShrinkAttempts != 0 {
		base.MaxShrinkAttempts = s.MaxShrinkAttempts
	}
	if s.Timeout != 0 {
		base.Timeout = s.Timeout
	}
	if s.ShrinkTimeout != 0 {
		base.ShrinkTimeout = s.ShrinkTimeout
	}
	if s.Seed != 0 {
		base.Seed = s.Seed
	}
	if s.Derandomize {
		base.Derandomize = true
	}
	if s.Verbosity != VerbosityNormal {
		base.Verbosity = s.Verbosity
	}
	if s.Phases != 0 {
		base.Phases = s.Phases
	}
	if len(s.SuppressHealthCheck) > 0 {
		base.SuppressHealthCheck = s.SuppressHealthCheck
	}
	if s.Health != (HealthSettings{}) {
		base.Health = s.Health
	}
	if s.Logger != nil {
		base.Logger = s.Logger
	}
	return base
}
