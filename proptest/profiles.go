package proptest

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shipq/conjecture/inifile"
)

const profileSectionPrefix = "profile."

var (
	profilesMu     sync.RWMutex
	profiles       = builtinProfiles()
	currentProfile = "default"
)

func builtinProfiles() map[string]Settings {
	ci := DefaultSettings()
	ci.MaxExamples = 1000
	ci.Derandomize = true
	ci.Timeout = 5 * time.Minute

	dev := DefaultSettings()
	dev.MaxExamples = 10
	dev.Verbosity = VerbosityVerbose

	return map[string]Settings{
		"default": DefaultSettings(),
		"ci":      ci,
		"dev":     dev,
	}
}

// RegisterProfile stores settings under name, replacing any previous
// profile of that name.
func RegisterProfile(name string, s Settings) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return invalidArgument("profile name is empty")
	}
	if err := s.withDefaults().Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	profilesMu.Lock()
	defer profilesMu.Unlock()
	profiles[name] = s.withDefaults()
	return nil
}

// Profile returns the settings registered under name.
func Profile(name string) (Settings, error) {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	s, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Settings{}, invalidArgument("unknown settings profile %q", name)
	}
	return s, nil
}

// LoadProfile makes the named profile the one CurrentSettings returns.
func LoadProfile(name string) error {
	if _, err := Profile(name); err != nil {
		return err
	}
	profilesMu.Lock()
	defer profilesMu.Unlock()
	currentProfile = strings.ToLower(name)
	return nil
}

// CurrentSettings returns the settings of the loaded profile.
func CurrentSettings() Settings {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	return profiles[currentProfile]
}

// CurrentProfile returns the name of the loaded profile.
func CurrentProfile() string {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	return currentProfile
}

// ProfileNames lists registered profiles in sorted order.
func ProfileNames() []string {
	profilesMu.RLock()
	defer profilesMu.RUnlock()
	return slices.Sorted(maps.Keys(profiles))
}

// =============================================================================
// INI Profiles
// =============================================================================

// LoadProfilesFile registers every [profile.<name>] section of an INI file
// and returns the names it registered.
//
//	[profile.nightly]
//	base = ci
//	max_examples = 10000
//	suppress_health_check = too_slow
func LoadProfilesFile(path string) ([]string, error) {
	f, err := inifile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	parsed, err := ParseProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("load profiles from %s: %w", path, err)
	}
	names := slices.Sorted(maps.Keys(parsed))
	for _, name := range names {
		if err := RegisterProfile(name, parsed[name]); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// ParseProfiles reads profile sections without registering them. A profile
// starts from its base profile (default unless the base key says otherwise),
// which may be a built-in or another section of the same file.
func ParseProfiles(f *inifile.File) (map[string]Settings, error) {
	sections := map[string]*inifile.Section{}
	for _, sec := range f.SectionsWithPrefix(profileSectionPrefix) {
		name := strings.TrimPrefix(sec.Name, profileSectionPrefix)
		if name == "" {
			return nil, invalidArgument("profile section without a name")
		}
		sections[name] = &sec
	}

	out := make(map[string]Settings, len(sections))
	var resolve func(name string, seen []string) (Settings, error)
	resolve = func(name string, seen []string) (Settings, error) {
		if s, ok := out[name]; ok {
			return s, nil
		}
		sec, ok := sections[name]
		if !ok {
			return Profile(name)
		}
		if slices.Contains(seen, name) {
			return Settings{}, invalidArgument("profile inheritance cycle: %s", strings.Join(append(seen, name), " -> "))
		}
		baseName := sec.Get("base")
		if baseName == "" {
			baseName = "default"
		}
		base, err := resolve(baseName, append(seen, name))
		if err != nil {
			return Settings{}, fmt.Errorf("profile %q: %w", name, err)
		}
		s, err := applyProfileSection(base, sec)
		if err != nil {
			return Settings{}, fmt.Errorf("profile %q: %w", name, err)
		}
		out[name] = s
		return s, nil
	}

	for name := range sections {
		if _, err := resolve(name, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteProfile stores s in f as the [profile.<name>] section, in the form
// ParseProfiles reads back. Every key is written, so the section does not
// depend on a base profile.
func WriteProfile(f *inifile.File, name string, s Settings) {
	sec := profileSectionPrefix + strings.ToLower(name)
	s = s.withDefaults()

	checks := make([]string, len(s.SuppressHealthCheck))
	for i, hc := range s.SuppressHealthCheck {
		checks[i] = hc.String()
	}
	for _, kv := range [][2]string{
		{"max_examples", strconv.Itoa(s.MaxExamples)},
		{"max_choices", strconv.Itoa(s.MaxChoices)},
		{"max_shrinks", strconv.Itoa(s.MaxShrinks)},
		{"max_shrink_attempts", strconv.Itoa(s.MaxShrinkAttempts)},
		{"timeout", s.Timeout.String()},
		{"shrink_timeout", s.ShrinkTimeout.String()},
		{"seed", strconv.FormatUint(s.Seed, 10)},
		{"derandomize", strconv.FormatBool(s.Derandomize)},
		{"verbosity", s.Verbosity.String()},
		{"phases", s.Phases.String()},
		{"suppress_health_check", strings.Join(checks, ", ")},
	} {
		f.Set(sec, kv[0], kv[1])
	}
}

func applyProfileSection(s Settings, sec *inifile.Section) (Settings, error) {
	var err error
	ints := []struct {
		key string
		dst *int
	}{
		{"max_examples", &s.MaxExamples},
		{"max_choices", &s.MaxChoices},
		{"max_shrinks", &s.MaxShrinks},
		{"max_shrink_attempts", &s.MaxShrinkAttempts},
	}
	for _, f := range ints {
		if *f.dst, err = sec.Int(f.key, *f.dst); err != nil {
			return s, err
		}
	}
	if s.Timeout, err = sec.Duration("timeout", s.Timeout); err != nil {
		return s, err
	}
	if s.ShrinkTimeout, err = sec.Duration("shrink_timeout", s.ShrinkTimeout); err != nil {
		return s, err
	}
	if s.Seed, err = sec.Uint64("seed", s.Seed); err != nil {
		return s, err
	}
	if s.Derandomize, err = sec.Bool("derandomize", s.Derandomize); err != nil {
		return s, err
	}
	if v := sec.Get("verbosity"); v != "" {
		if s.Verbosity, err = ParseVerbosity(v); err != nil {
			return s, err
		}
	}
	if sec.HasKey("phases") {
		s.Phases = 0
		for _, name := range sec.List("phases") {
			switch name {
			case "generate":
				s.Phases |= PhaseGenerate
			case "shrink":
				s.Phases |= PhaseShrink
			default:
				return s, invalidArgument("unknown phase %q", name)
			}
		}
	}
	if sec.HasKey("suppress_health_check") {
		s.SuppressHealthCheck = nil
		for _, name := range sec.List("suppress_health_check") {
			hc, err := ParseHealthCheck(name)
			if err != nil {
				return s, err
			}
			s.SuppressHealthCheck = append(s.SuppressHealthCheck, hc)
		}
	}
	return s, s.Validate()
}
