package inifile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Typed accessors return def when the key is absent and an error naming the
// section and key when the value does not parse.

func (s *Section) Int(key string, def int) (int, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, s.valueError(key, v, "an integer")
	}
	return n, nil
}

func (s *Section) Uint64(key string, def uint64) (uint64, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def, s.valueError(key, v, "an unsigned integer")
	}
	return n, nil
}

// Bool accepts true/false, yes/no, on/off and 1/0.
func (s *Section) Bool(key string, def bool) (bool, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return def, s.valueError(key, v, "a boolean")
}

// Duration accepts time.ParseDuration syntax such as "30s" or "5m".
func (s *Section) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, s.valueError(key, v, "a duration")
	}
	return d, nil
}

// List splits a comma separated value into trimmed, lower-cased, non-empty
// items.
func (s *Section) List(key string) []string {
	v, ok := s.Lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *Section) valueError(key, value, want string) error {
	return fmt.Errorf("[%s] %s = %q: expected %s", s.Name, key, value, want)
}
