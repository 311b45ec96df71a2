// Package logging builds the slog loggers used by test runs and the
// conjecture command.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PrettyJSONHandler writes each record as an indented JSON object. It is
// meant for people reading a single run, not for log shipping. Groups nest
// as JSON objects.
type PrettyJSONHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	level  slog.Leveler
	attrs  []groupedAttr
	groups []string
}

// groupedAttr is an attribute added by WithAttrs under the groups open at
// that time.
type groupedAttr struct {
	groups []string
	attr   slog.Attr
}

// NewPrettyJSONHandler creates a pretty JSON handler writing to w.
func NewPrettyJSONHandler(w io.Writer, level slog.Leveler) *PrettyJSONHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &PrettyJSONHandler{mu: &sync.Mutex{}, writer: w, level: level}
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any)
	for _, ga := range h.attrs {
		setAttr(nested(out, ga.groups), ga.attr)
	}
	if r.NumAttrs() > 0 {
		fields := nested(out, h.groups)
		r.Attrs(func(a slog.Attr) bool {
			setAttr(fields, a)
			return true
		})
	}

	out["time"] = r.Time.Format(time.RFC3339)
	out["level"] = r.Level.String()
	out["msg"] = r.Message

	prettyJSON, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(prettyJSON, '\n'))
	return err
}

// nested returns the object for the group path under m, creating it.
func nested(m map[string]any, groups []string) map[string]any {
	for _, g := range groups {
		child, ok := m[g].(map[string]any)
		if !ok {
			child = make(map[string]any)
			m[g] = child
		}
		m = child
	}
	return m
}

func setAttr(m map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		group := v.Group()
		if len(group) == 0 {
			return
		}
		if a.Key != "" {
			m = nested(m, []string{a.Key})
		}
		for _, ga := range group {
			setAttr(m, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	m[a.Key] = v.Any()
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]groupedAttr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, groupedAttr{groups: h.groups, attr: a})
	}
	return &clone
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// New returns a logger writing to w at the given level. Pretty selects the
// indented JSON handler; otherwise records are plain text lines.
func New(w io.Writer, level slog.Leveler, pretty bool) *slog.Logger {
	if pretty {
		return slog.New(NewPrettyJSONHandler(w, level))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
