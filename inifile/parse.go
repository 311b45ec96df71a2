// Package inifile reads and writes the small INI dialect used by
// conjecture.ini: [section] headers, key = value pairs, # and ; comments.
// Section and key names are case-insensitive and stored lower-cased.
package inifile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSyntax is wrapped by every *ParseError.
var ErrSyntax = errors.New("ini syntax error")

// ParseError reports a line that is neither a comment, a section header nor
// a key = value pair inside a section.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d (%q): %s", ErrSyntax, e.Line, e.Text, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// File is a parsed INI file. Sections keep their order of appearance.
type File struct {
	Sections []Section
}

// Section is one [name] block. Repeated keys are kept in order.
type Section struct {
	Name   string
	Values []KeyValue
}

type KeyValue struct {
	Key   string
	Value string
}

// Parse reads INI content from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	var cur *Section

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}

		if line[0] == '[' {
			if !strings.HasSuffix(line, "]") {
				return nil, &ParseError{Line: n, Text: line, Reason: "unterminated section header"}
			}
			name := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if name == "" {
				return nil, &ParseError{Line: n, Text: line, Reason: "empty section name"}
			}
			if cur = f.Section(name); cur == nil {
				f.Sections = append(f.Sections, Section{Name: name})
				cur = &f.Sections[len(f.Sections)-1]
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &ParseError{Line: n, Text: line, Reason: "expected key = value"}
		}
		if cur == nil {
			return nil, &ParseError{Line: n, Text: line, Reason: "key outside of any section"}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return nil, &ParseError{Line: n, Text: line, Reason: "empty key"}
		}
		cur.Values = append(cur.Values, KeyValue{Key: key, Value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseFile reads and parses the INI file at path.
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Section returns the named section, or nil.
func (f *File) Section(name string) *Section {
	name = strings.ToLower(name)
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// Get returns the last value of key in section, or "".
func (f *File) Get(section, key string) string {
	if s := f.Section(section); s != nil {
		return s.Get(key)
	}
	return ""
}

// SectionsWithPrefix returns the sections whose names start with prefix,
// e.g. "profile." for [profile.ci] and [profile.dev].
func (f *File) SectionsWithPrefix(prefix string) []Section {
	prefix = strings.ToLower(prefix)
	var out []Section
	for _, s := range f.Sections {
		if strings.HasPrefix(s.Name, prefix) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the last value of key and whether it was present.
func (s *Section) Lookup(key string) (string, bool) {
	key = strings.ToLower(key)
	for i := len(s.Values) - 1; i >= 0; i-- {
		if s.Values[i].Key == key {
			return s.Values[i].Value, true
		}
	}
	return "", false
}

func (s *Section) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

func (s *Section) HasKey(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Set replaces every value of key in section with a single value, creating
// the section when needed.
func (f *File) Set(section, key, value string) {
	s := f.Section(section)
	if s == nil {
		f.Sections = append(f.Sections, Section{Name: strings.ToLower(section)})
		s = &f.Sections[len(f.Sections)-1]
	}
	key = strings.ToLower(key)
	for i := range s.Values {
		if s.Values[i].Key == key {
			s.Values[i].Value = value
			return
		}
	}
	s.Values = append(s.Values, KeyValue{Key: key, Value: value})
}

// Write serializes f in a form Parse reads back unchanged.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, section := range f.Sections {
		if i > 0 {
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "[%s]\n", section.Name)
		for _, kv := range section.Values {
			fmt.Fprintf(bw, "%s = %s\n", kv.Key, kv.Value)
		}
	}
	return bw.Flush()
}

// WriteFile writes f to path, replacing any existing file.
func (f *File) WriteFile(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(fh); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
