package proptest

import (
	"fmt"
	"strings"
	"time"
)

// HealthCheck names one kind of unproductive generation.
type HealthCheck int

const (
	// HealthCheckFilterTooMuch: filters or assumptions discard too many
	// attempts.
	HealthCheckFilterTooMuch HealthCheck = iota + 1

	// HealthCheckDataTooLarge: attempts keep exceeding MaxChoices.
	HealthCheckDataTooLarge

	// HealthCheckTooSlow: drawing examples takes too long.
	HealthCheckTooSlow
)

var healthCheckNames = map[HealthCheck]string{
	HealthCheckFilterTooMuch: "filter_too_much",
	HealthCheckDataTooLarge:  "data_too_large",
	HealthCheckTooSlow:       "too_slow",
}

func (h HealthCheck) String() string {
	if name, ok := healthCheckNames[h]; ok {
		return name
	}
	return fmt.Sprintf("HealthCheck(%d)", int(h))
}

// ParseHealthCheck reads a health check name such as "filter_too_much".
func ParseHealthCheck(s string) (HealthCheck, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for h, name := range healthCheckNames {
		if name == s {
			return h, nil
		}
	}
	return 0, invalidArgument("unknown health check %q", s)
}

// HealthCheckError reports why a run was aborted as unproductive.
type HealthCheckError struct {
	Check     HealthCheck
	Valid     int
	Discarded int
	Overruns  int
	DrawTime  time.Duration
}

func (e *HealthCheckError) Error() string {
	var reason string
	switch e.Check {
	case HealthCheckFilterTooMuch:
		reason = fmt.Sprintf("%d attempts were discarded by filters or assumptions against %d valid examples", e.Discarded, e.Valid)
	case HealthCheckDataTooLarge:
		reason = fmt.Sprintf("%d attempts exceeded the choice limit against %d valid examples", e.Overruns, e.Valid)
	case HealthCheckTooSlow:
		reason = fmt.Sprintf("drawing %d valid examples took %s", e.Valid, e.DrawTime.Round(time.Millisecond))
	default:
		reason = "generation was unproductive"
	}
	return fmt.Sprintf("%s (%s): %s; suppress with Settings.SuppressHealthCheck if this is expected",
		ErrFailedHealthCheck, e.Check, reason)
}

func (e *HealthCheckError) Unwrap() error {
	return ErrFailedHealthCheck
}

// healthMonitor watches fresh generation attempts and decides when the run
// is too unproductive to continue.
type healthMonitor struct {
	settings  Settings
	valid     int
	discarded int
	overruns  int
	drawTime  time.Duration
}

func newHealthMonitor(settings Settings) *healthMonitor {
	return &healthMonitor{settings: settings}
}

func (m *healthMonitor) observe(o outcome, drawTime time.Duration) {
	switch o {
	case outcomeValid, outcomeInteresting:
		m.valid++
	case outcomeInvalid:
		m.discarded++
	case outcomeOverrun:
		m.overruns++
	}
	if m.valid < m.settings.Health.MinValid {
		m.drawTime += drawTime
	}
}

// check returns a *HealthCheckError once an unsuppressed limit has been
// crossed.
func (m *healthMonitor) check() error {
	h := m.settings.Health
	opening := m.valid < h.MinValid
	attempts := m.valid + m.discarded + m.overruns

	tripped := []struct {
		hit   bool
		check HealthCheck
	}{
		{opening && m.discarded >= h.MaxDiscards, HealthCheckFilterTooMuch},
		{opening && m.overruns >= h.MaxOverruns, HealthCheckDataTooLarge},
		{opening && m.drawTime > h.SlowThreshold, HealthCheckTooSlow},
		{attempts >= h.MinAttempts && m.ratio() > h.MaxDiscardRatio, HealthCheckFilterTooMuch},
	}
	for _, t := range tripped {
		if t.hit && !m.settings.suppressed(t.check) {
			return m.fail(t.check)
		}
	}
	return nil
}

func (m *healthMonitor) ratio() float64 {
	attempts := m.valid + m.discarded + m.overruns
	if attempts == 0 {
		return 0
	}
	return float64(m.discarded+m.overruns) / float64(attempts)
}

func (m *healthMonitor) fail(hc HealthCheck) error {
	return &HealthCheckError{
		Check:     hc,
		Valid:     m.valid,
		Discarded: m.discarded,
		Overruns:  m.overruns,
		DrawTime:  m.drawTime,
	}
}
