package fields

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/shipq/conjecture/proptest"
)

// Constructor builds a strategy for a field of the kind it is registered
// for. It only handles the kind's own constraints; FromField applies
// choices, validators and nullability.
type Constructor func(Field) (proptest.Strategy[any], error)

// Registry maps kinds to constructors. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	ctors map[Kind]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[Kind]Constructor)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry holding the built-in kinds.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = WithBuiltins()
	})
	return defaultRegistry
}

// WithBuiltins returns a new registry holding the built-in kinds, for
// callers that want to register kinds without touching Default.
func WithBuiltins() *Registry {
	r := NewRegistry()
	maps.Copy(r.ctors, builtins())
	return r
}

// Register adds a constructor for kind. Kinds can be registered once; auto
// fields are assigned by the database and cannot be registered.
func (r *Registry) Register(kind Kind, ctor Constructor) error {
	switch {
	case kind == "":
		return fmt.Errorf("%w: cannot register an empty kind", proptest.ErrInvalidArgument)
	case kind == KindAuto:
		return fmt.Errorf("%w: cannot register a strategy for auto fields", proptest.ErrInvalidArgument)
	case ctor == nil:
		return fmt.Errorf("%w: nil constructor for kind %q", proptest.ErrInvalidArgument, kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ctors[kind]; exists {
		return fmt.Errorf("%w: kind %q already has a registered strategy", proptest.ErrInvalidArgument, kind)
	}
	r.ctors[kind] = ctor
	return nil
}

// Lookup returns the constructor for kind.
func (r *Registry) Lookup(kind Kind) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[kind]
	return c, ok
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.ctors))
}

// FromField returns a strategy for values of f.
func (r *Registry) FromField(f Field) (proptest.Strategy[any], error) {
	var s proptest.Strategy[any]
	if len(f.Choices) > 0 {
		var err error
		if s, err = choiceStrategy(f); err != nil {
			return nil, err
		}
	} else {
		ctor, ok := r.Lookup(f.Kind)
		if !ok {
			if f.Null {
				return proptest.Just[any](nil), nil
			}
			return nil, invalidField(f, "no strategy registered for kind %q", f.Kind)
		}
		var err error
		if s, err = ctor(f); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}

	if len(f.Validators) > 0 {
		s = proptest.Filter(s, func(v any) bool { return f.validate(v) == nil })
	}
	if f.Null {
		s = proptest.OneOf(proptest.Just[any](nil), s)
	}
	return s, nil
}

// FromFields returns a strategy for rows keyed by field name. Auto fields
// are skipped.
func (r *Registry) FromFields(fs []Field) (proptest.Strategy[map[string]any], error) {
	type column struct {
		name string
		s    proptest.Strategy[any]
	}
	var cols []column
	seen := make(map[string]bool, len(fs))
	for _, f := range fs {
		if f.Kind == KindAuto {
			continue
		}
		if f.Name == "" {
			return nil, invalidField(f, "row fields need a name")
		}
		if seen[f.Name] {
			return nil, invalidField(f, "duplicate field name")
		}
		seen[f.Name] = true
		s, err := r.FromField(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, column{name: f.Name, s: s})
	}

	return proptest.Custom(fmt.Sprintf("Row(%d fields)", len(cols)), func(d *proptest.Data) (map[string]any, error) {
		row := make(map[string]any, len(cols))
		for _, c := range cols {
			d.StartSpan("field")
			v, err := c.s.Draw(d)
			d.EndSpan()
			if err != nil {
				return nil, err
			}
			row[c.name] = v
		}
		return row, nil
	}), nil
}

func choiceStrategy(f Field) (proptest.Strategy[any], error) {
	values := f.flatChoices()
	if f.Blank {
		values = append([]any{""}, values...)
	}
	if len(values) == 0 {
		return nil, invalidField(f, "choices hold no values")
	}
	sampled := proptest.SampledFrom(values)
	if !f.Multiple {
		return sampled, nil
	}
	minLen := 1
	if f.Blank {
		minLen = 0
	}
	return proptest.AsAny(proptest.SliceOf[any](sampled, minLen, len(values))), nil
}

// FromField returns a strategy for f using the default registry.
func FromField(f Field) (proptest.Strategy[any], error) {
	return Default().FromField(f)
}

// FromFields returns a row strategy using the default registry.
func FromFields(fs []Field) (proptest.Strategy[map[string]any], error) {
	return Default().FromFields(fs)
}

// Register adds a constructor to the default registry.
func Register(kind Kind, ctor Constructor) error {
	return Default().Register(kind, ctor)
}
