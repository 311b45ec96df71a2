// Package fields derives proptest strategies from declarative descriptions
// of data fields, such as the columns of a database table.
//
// A Field names its Kind and the constraints that bound it. A Registry maps
// each Kind to a Constructor; FromField looks up the constructor and then
// applies the constraints every kind shares: choices, validators and
// nullability.
package fields

import (
	"fmt"

	"github.com/shipq/conjecture/proptest"
)

// Kind identifies the type of value a field holds.
type Kind string

const (
	KindAuto             Kind = "auto"
	KindSmallInteger     Kind = "small_integer"
	KindInteger          Kind = "integer"
	KindBigInteger       Kind = "big_integer"
	KindPositiveSmallInt Kind = "positive_small_integer"
	KindPositiveInteger  Kind = "positive_integer"
	KindBoolean          Kind = "boolean"
	KindNullBoolean      Kind = "null_boolean"
	KindBinary           Kind = "binary"
	KindChar             Kind = "char"
	KindText             Kind = "text"
	KindSlug             Kind = "slug"
	KindEmail            Kind = "email"
	KindURL              Kind = "url"
	KindUUID             Kind = "uuid"
	KindIP               Kind = "ip"
	KindDecimal          Kind = "decimal"
	KindFloat            Kind = "float"
	KindDate             Kind = "date"
	KindDateTime         Kind = "datetime"
	KindTime             Kind = "time"
	KindDuration         Kind = "duration"
)

// Protocol selects the address family of an ip field.
type Protocol string

const (
	ProtocolIPv4 Protocol = "ipv4"
	ProtocolIPv6 Protocol = "ipv6"
	ProtocolBoth Protocol = "both"
)

// Choice is one allowed value of a field. A Choice with a Group is a named
// group of choices and contributes only the group's values.
type Choice struct {
	Value any
	Label string
	Group []Choice
}

// Validator rejects values a field would not accept.
type Validator func(any) error

// Field describes one field.
type Field struct {
	Name string
	Kind Kind

	// Null allows nil in addition to the kind's values.
	Null bool

	// Blank allows the empty string for text kinds and the empty selection
	// for choice fields.
	Blank bool

	// MaxLength bounds text and binary kinds. Zero means the kind's default.
	MaxLength int

	// MaxDigits and DecimalPlaces bound decimal fields.
	MaxDigits     int
	DecimalPlaces int

	// Protocol is required context for ip fields. Empty means ProtocolBoth.
	Protocol Protocol

	// Choices restricts the field to a fixed set of values.
	Choices []Choice

	// Multiple makes a choice field produce a selection of several values.
	Multiple bool

	Validators []Validator

	// Dialect is the SQL dialect the field is stored in, if known. Some
	// kinds narrow their range to what the dialect can store.
	Dialect string
}

func (f Field) validate(v any) error {
	for _, fn := range f.Validators {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) String() string {
	if f.Name == "" {
		return fmt.Sprintf("Field(%s)", f.Kind)
	}
	return fmt.Sprintf("Field(%s %s)", f.Name, f.Kind)
}

// flatChoices returns the values of f.Choices with groups expanded and the
// empty string removed.
func (f Field) flatChoices() []any {
	var out []any
	var walk func([]Choice)
	walk = func(cs []Choice) {
		for _, c := range cs {
			if len(c.Group) > 0 {
				walk(c.Group)
				continue
			}
			if s, ok := c.Value.(string); ok && s == "" {
				continue
			}
			out = append(out, c.Value)
		}
	}
	walk(f.Choices)
	return out
}

func invalidField(f Field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", proptest.ErrInvalidArgument, f, fmt.Sprintf(format, args...))
}
