package proptest

import (
	"fmt"
	"math"
	"strings"
)

// Charsets for string generation
const (
	CharsetAlpha      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetAlphaLower = "abcdefghijklmnopqrstuvwxyz"
	CharsetAlphaUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits     = "0123456789"
	CharsetAlphaNum   = CharsetAlpha + CharsetDigits
	CharsetHex        = "0123456789abcdef"
	CharsetPrintable  = CharsetAlphaNum + " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	CharsetIdentStart = CharsetAlpha + "_"
	CharsetIdentBody  = CharsetAlphaNum + "_"
)

// =============================================================================
// Integer Strategies
// =============================================================================

// IntRangeStrategy produces integers in [min, max], shrinking toward min.
type IntRangeStrategy struct {
	lo, hi int64
}

// IntRange produces ints in [min, max].
func IntRange(min, max int) Strategy[int] {
	if min > max {
		return nothing[int]("IntRange", invalidArgument("IntRange min %d > max %d", min, max))
	}
	return Map[int64, int](&IntRangeStrategy{lo: int64(min), hi: int64(max)}, func(v int64) int { return int(v) })
}

// Int64Range produces int64s in [min, max]. The result has a finite domain,
// so filters over narrow ranges can tell when nothing is left to try.
func Int64Range(min, max int64) Strategy[int64] {
	if min > max {
		return nothing[int64]("Int64Range", invalidArgument("Int64Range min %d > max %d", min, max))
	}
	return &IntRangeStrategy{lo: min, hi: max}
}

func (s *IntRangeStrategy) span() uint64 {
	return uint64(s.hi) - uint64(s.lo)
}

func (s *IntRangeStrategy) Draw(d *Data) (int64, error) {
	v, err := d.Draw(s.span())
	if err != nil {
		return 0, err
	}
	return s.element(v), nil
}

func (s *IntRangeStrategy) String() string {
	return fmt.Sprintf("Int64Range(%d, %d)", s.lo, s.hi)
}

// domainSize is 0 when the range covers all of uint64 and cannot be
// counted.
func (s *IntRangeStrategy) domainSize() uint64 {
	if s.span() == math.MaxUint64 {
		return 0
	}
	return s.span() + 1
}

func (s *IntRangeStrategy) element(i uint64) int64 {
	return int64(uint64(s.lo) + i)
}

// Bool produces false or true, shrinking toward false.
func Bool() Strategy[bool] {
	return Custom("Bool()", func(d *Data) (bool, error) {
		return d.DrawBool()
	})
}

// =============================================================================
// Float Strategies
// =============================================================================

const floatResolution = 1 << 53

// Float64Range produces finite float64s in [min, max], shrinking toward
// min. Values are spaced evenly at 2^53 steps across the interval.
func Float64Range(min, max float64) Strategy[float64] {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) || min > max {
		return nothing[float64]("Float64Range", invalidArgument("Float64Range needs finite min <= max, got [%v, %v]", min, max))
	}
	return Custom(fmt.Sprintf("Float64Range(%v, %v)", min, max), func(d *Data) (float64, error) {
		v, err := d.Draw(floatResolution)
		if err != nil {
			return 0, err
		}
		t := float64(v) / floatResolution
		f := min*(1-t) + max*t
		return math.Max(min, math.Min(f, max)), nil
	})
}

// =============================================================================
// String Strategies
// =============================================================================

// Text produces strings of runes from charset with length in
// [minLen, maxLen]. Shorter strings and earlier runes are simpler.
func Text(charset string, minLen, maxLen int) Strategy[string] {
	runes := []rune(charset)
	if len(runes) == 0 {
		return nothing[string]("Text", invalidArgument("Text charset is empty"))
	}
	chars := SampledFrom(runes)
	return Map(SliceOf[rune](chars, minLen, maxLen), func(rs []rune) string { return string(rs) })
}

// String produces printable ASCII strings of length [0, maxLen].
func String(maxLen int) Strategy[string] {
	return Text(CharsetPrintable, 0, maxLen)
}

// StringAlphaNum produces alphanumeric strings of length [0, maxLen].
func StringAlphaNum(maxLen int) Strategy[string] {
	return Text(CharsetAlphaNum, 0, maxLen)
}

// Identifier produces identifiers of length [1, maxLen]: a letter or
// underscore followed by letters, digits or underscores.
func Identifier(maxLen int) Strategy[string] {
	if maxLen <= 0 {
		maxLen = 1
	}
	start := SampledFrom([]rune(CharsetIdentStart))
	body := Text(CharsetIdentBody, 0, maxLen-1)
	return Map(PairOf[rune, string](start, body), func(p Pair[rune, string]) string {
		var b strings.Builder
		b.WriteRune(p.First)
		b.WriteString(p.Second)
		return b.String()
	})
}

// =============================================================================
// Byte Strategies
// =============================================================================

// Bytes produces byte slices with length in [minLen, maxLen].
func Bytes(minLen, maxLen int) Strategy[[]byte] {
	b := Custom("byte", func(d *Data) (byte, error) {
		v, err := d.Draw(math.MaxUint8)
		return byte(v), err
	})
	return SliceOf(b, minLen, maxLen)
}
