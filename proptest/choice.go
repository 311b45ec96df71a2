package proptest

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Choice is one bounded integer draw recorded while generating an example.
// Value is always in [0, Max].
type Choice struct {
	Index int
	Value uint64
	Max   uint64
}

// ChoiceSequence is the ordered record of draws consumed by one generation
// attempt. Replaying the same sequence through the same strategy yields the
// same value.
type ChoiceSequence []Choice

// Values returns the raw draw values, the form accepted by replay.
func (s ChoiceSequence) Values() []uint64 {
	out := make([]uint64, len(s))
	for i, c := range s {
		out[i] = c.Value
	}
	return out
}

// Clone returns a copy that shares no storage with s.
func (s ChoiceSequence) Clone() ChoiceSequence {
	if s == nil {
		return nil
	}
	out := make(ChoiceSequence, len(s))
	copy(out, s)
	return out
}

// String renders the sequence as value/max pairs, e.g. [3/9 0/1].
func (s ChoiceSequence) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, c := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatUint(c.Value, 10))
		b.WriteByte('/')
		b.WriteString(strconv.FormatUint(c.Max, 10))
	}
	b.WriteByte(']')
	return b.String()
}

// Compare orders raw choice values shortlex: a shorter sequence is smaller,
// equal lengths compare element by element. It returns -1, 0 or 1.
func Compare(a, b []uint64) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// FormatValues renders raw values the way ParseValues reads them.
func FormatValues(values []uint64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

// ParseValues reads a comma separated list of choice values, as printed in
// failure reports, back into a form Replay accepts.
func ParseValues(s string) ([]uint64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]uint64, 0, len(fields))
	for _, f := range fields {
		// Accept the value/max form produced by ChoiceSequence.String.
		if i := strings.IndexByte(f, '/'); i >= 0 {
			f = f[:i]
		}
		v, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, invalidArgument("bad choice value %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

// cacheKey encodes values into a compact map key.
func cacheKey(values []uint64) string {
	buf := make([]byte, 0, len(values)*binary.MaxVarintLen64)
	for _, v := range values {
		buf = binary.AppendUvarint(buf, v)
	}
	return string(buf)
}

// span marks a structural unit of choices [begin, end) such as one sampled
// element or one list item. end is -1 while the span is open.
type span struct {
	label string
	begin int
	end   int
}

func (s span) closed() bool {
	return s.end >= 0 && s.end > s.begin
}

// without returns a copy of values with the given spans removed. Spans must
// be sorted by begin and non-overlapping.
func without(values []uint64, spans ...span) []uint64 {
	out := append([]uint64(nil), values...)
	for i := len(spans) - 1; i >= 0; i-- {
		s := spans[i]
		out = append(out[:s.begin], out[s.end:]...)
	}
	return out
}
