package fields

import (
	"fmt"
	"math"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shipq/conjecture/proptest"
)

const (
	defaultCharLength   = 255
	defaultBinaryLength = 64
	defaultSlugLength   = 50
	maxDecimalDigits    = 18

	// sqliteDurationMicros is the largest duration SQLite stores: six bytes
	// of microseconds.
	sqliteDurationMicros = 1<<47 - 1
)

var tlds = []string{"com", "org", "net", "io", "dev"}

func builtins() map[Kind]Constructor {
	return map[Kind]Constructor{
		KindSmallInteger:     constant(proptest.AsAny(Signed(math.MinInt16, math.MaxInt16))),
		KindInteger:          constant(proptest.AsAny(Signed(math.MinInt32, math.MaxInt32))),
		KindBigInteger:       constant(proptest.AsAny(Signed(math.MinInt64, math.MaxInt64))),
		KindPositiveSmallInt: constant(proptest.AsAny(proptest.Int64Range(0, math.MaxInt16))),
		KindPositiveInteger:  constant(proptest.AsAny(proptest.Int64Range(0, math.MaxInt32))),
		KindBoolean:          constant(proptest.AsAny(proptest.Bool())),
		KindNullBoolean:      constant(proptest.OneOf(proptest.Just[any](nil), proptest.AsAny(proptest.Bool()))),
		KindBinary:           binaryField,
		KindChar:             textField(proptest.CharsetPrintable, defaultCharLength),
		KindText:             textField(proptest.CharsetPrintable, defaultCharLength),
		KindSlug:             textField(proptest.CharsetAlphaNum, defaultSlugLength),
		KindEmail:            constant(proptest.AsAny(Email())),
		KindURL:              constant(proptest.AsAny(URL())),
		KindUUID:             constant(proptest.AsAny(UUID())),
		KindIP:               ipField,
		KindDecimal:          decimalField,
		KindFloat:            constant(proptest.AsAny(Float())),
		KindDate:             constant(proptest.AsAny(Date())),
		KindDateTime:         constant(proptest.AsAny(DateTime())),
		KindTime:             constant(proptest.AsAny(TimeOfDay())),
		KindDuration:         durationField,
	}
}

func constant(s proptest.Strategy[any]) Constructor {
	return func(Field) (proptest.Strategy[any], error) { return s, nil }
}

func minLength(f Field) int {
	if f.Blank {
		return 0
	}
	return 1
}

func textField(charset string, defaultMax int) Constructor {
	return func(f Field) (proptest.Strategy[any], error) {
		maxLen := f.MaxLength
		if maxLen == 0 {
			maxLen = defaultMax
		}
		if maxLen < 0 {
			return nil, invalidField(f, "negative max length %d", maxLen)
		}
		return proptest.AsAny(proptest.Text(charset, min(minLength(f), maxLen), maxLen)), nil
	}
}

func binaryField(f Field) (proptest.Strategy[any], error) {
	maxLen := f.MaxLength
	if maxLen == 0 {
		maxLen = defaultBinaryLength
	}
	if maxLen < 0 {
		return nil, invalidField(f, "negative max length %d", maxLen)
	}
	return proptest.AsAny(proptest.Bytes(0, maxLen)), nil
}

// =============================================================================
// Network Values
// =============================================================================

// Email produces simple addresses of the form local@domain.tld.
func Email() proptest.Strategy[string] {
	local := proptest.Text(proptest.CharsetAlphaLower+proptest.CharsetDigits, 1, 16)
	domain := proptest.Text(proptest.CharsetAlphaLower, 1, 12)
	parts := proptest.PairOf(local, proptest.PairOf[string, string](domain, proptest.SampledFrom(tlds)))
	return proptest.Map(parts, func(p proptest.Pair[string, proptest.Pair[string, string]]) string {
		return p.First + "@" + p.Second.First + "." + p.Second.Second
	})
}

// URL produces http and https URLs with an optional path.
func URL() proptest.Strategy[string] {
	scheme := proptest.SampledFrom([]string{"https", "http"})
	host := proptest.Text(proptest.CharsetAlphaLower+proptest.CharsetDigits, 1, 20)
	segment := proptest.Text(proptest.CharsetAlphaNum+"-_", 1, 10)
	path := proptest.SliceOf(segment, 0, 3)
	type parts = proptest.Pair[proptest.Pair[string, string], proptest.Pair[string, []string]]
	all := proptest.PairOf(
		proptest.PairOf[string, string](scheme, host),
		proptest.PairOf[string, []string](proptest.SampledFrom(tlds), path),
	)
	return proptest.Map(all, func(p parts) string {
		var b strings.Builder
		fmt.Fprintf(&b, "%s://%s.%s/", p.First.First, p.First.Second, p.Second.First)
		b.WriteString(strings.Join(p.Second.Second, "/"))
		return b.String()
	})
}

// UUID produces random (version 4) UUIDs. The nil-most UUID is simplest.
func UUID() proptest.Strategy[uuid.UUID] {
	return proptest.Map(proptest.Bytes(16, 16), func(b []byte) uuid.UUID {
		var u uuid.UUID
		copy(u[:], b)
		u[6] = (u[6] & 0x0f) | 0x40
		u[8] = (u[8] & 0x3f) | 0x80
		return u
	})
}

// IPv4 produces IPv4 addresses in dotted form.
func IPv4() proptest.Strategy[string] {
	return proptest.Map(proptest.Bytes(4, 4), func(b []byte) string {
		return netip.AddrFrom4([4]byte(b)).String()
	})
}

// IPv6 produces IPv6 addresses in canonical form.
func IPv6() proptest.Strategy[string] {
	return proptest.Map(proptest.Bytes(16, 16), func(b []byte) string {
		return netip.AddrFrom16([16]byte(b)).String()
	})
}

func ipField(f Field) (proptest.Strategy[any], error) {
	switch strings.ToLower(string(f.Protocol)) {
	case string(ProtocolIPv4):
		return proptest.AsAny(IPv4()), nil
	case string(ProtocolIPv6):
		return proptest.AsAny(IPv6()), nil
	case string(ProtocolBoth), "":
		return proptest.AsAny(proptest.OneOf(IPv4(), IPv6())), nil
	}
	return nil, invalidField(f, "unknown ip protocol %q (want ipv4, ipv6 or both)", f.Protocol)
}

// =============================================================================
// Numeric Values
// =============================================================================

// Signed produces integers in [lo, hi] ordered 0, -1, 1, -2, 2, ... so
// they shrink toward zero. The range must be two's complement shaped, with
// lo = -hi-1, as the SQL integer types are.
func Signed(lo, hi int64) proptest.Strategy[int64] {
	return proptest.Map(proptest.Int64Range(lo, hi), func(v int64) int64 {
		i := uint64(v) - uint64(lo)
		return int64(i>>1) ^ -int64(i&1)
	})
}

// zigzag produces integers in [-bound, bound] ordered 0, -1, 1, -2, 2, ...
// so they shrink toward zero from either side.
func zigzag(bound int64) proptest.Strategy[int64] {
	return proptest.Map(proptest.Int64Range(0, 2*bound), func(i int64) int64 {
		if i%2 == 0 {
			return i / 2
		}
		return -(i + 1) / 2
	})
}

// =============================================================================
// Decimal Values
// =============================================================================

// Decimal produces decimal strings with at most maxDigits digits, places of
// them after the point, e.g. "-12.50" for (4, 2).
func Decimal(maxDigits, places int) (proptest.Strategy[string], error) {
	if maxDigits < 1 || maxDigits > maxDecimalDigits || places < 0 || places > maxDigits {
		return nil, fmt.Errorf("%w: decimal(%d, %d) needs 1 <= digits <= %d and 0 <= places <= digits",
			proptest.ErrInvalidArgument, maxDigits, places, maxDecimalDigits)
	}
	bound := int64(math.Pow10(maxDigits)) - 1
	scale := int64(math.Pow10(places))
	return proptest.Map(zigzag(bound), func(n int64) string {
		sign := ""
		if n < 0 {
			sign, n = "-", -n
		}
		if places == 0 {
			return fmt.Sprintf("%s%d", sign, n)
		}
		return fmt.Sprintf("%s%d.%0*d", sign, n/scale, places, n%scale)
	}), nil
}

func decimalField(f Field) (proptest.Strategy[any], error) {
	s, err := Decimal(f.MaxDigits, f.DecimalPlaces)
	if err != nil {
		return nil, err
	}
	return proptest.AsAny(s), nil
}

// Float produces finite float64s of any magnitude, shrinking toward 0.
func Float() proptest.Strategy[float64] {
	type parts = proptest.Pair[proptest.Pair[bool, float64], int]
	mantissa := proptest.Float64Range(0, 1)
	exponent := proptest.IntRange(0, 308)
	return proptest.Map(proptest.PairOf(proptest.PairOf(proptest.Bool(), mantissa), exponent), func(p parts) float64 {
		v := p.First.Second * math.Pow10(p.Second)
		if p.First.First {
			return -v
		}
		return v
	})
}

// =============================================================================
// Temporal Values
// =============================================================================

var (
	dateOrigin  = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	dateMaxDays = (dateOrigin.Unix() - time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()) / 86400
)

// days produces day offsets from 2000-01-01.
func days() proptest.Strategy[int64] {
	return zigzag(dateMaxDays)
}

// Date produces UTC midnights between 0001-01-01 and 3998, shrinking toward
// 2000-01-01.
func Date() proptest.Strategy[time.Time] {
	return proptest.Map(days(), func(d int64) time.Time {
		return dateOrigin.AddDate(0, 0, int(d))
	})
}

// DateTime produces UTC timestamps with microsecond precision.
func DateTime() proptest.Strategy[time.Time] {
	micros := proptest.Int64Range(0, int64(24*time.Hour/time.Microsecond)-1)
	return proptest.Map(proptest.PairOf(days(), micros), func(p proptest.Pair[int64, int64]) time.Time {
		return dateOrigin.AddDate(0, 0, int(p.First)).Add(time.Duration(p.Second) * time.Microsecond)
	})
}

// TimeOfDay produces times on 0000-01-01 UTC; only the clock part is
// meaningful.
func TimeOfDay() proptest.Strategy[time.Time] {
	micros := proptest.Int64Range(0, int64(24*time.Hour/time.Microsecond)-1)
	return proptest.Map(micros, func(us int64) time.Time {
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(us) * time.Microsecond)
	})
}

// Duration produces durations in [-bound, bound], shrinking toward zero.
func Duration(bound time.Duration) proptest.Strategy[time.Duration] {
	return proptest.Map(proptest.PairOf(proptest.Bool(), proptest.Int64Range(0, int64(bound))), func(p proptest.Pair[bool, int64]) time.Duration {
		if p.First {
			return -time.Duration(p.Second)
		}
		return time.Duration(p.Second)
	})
}

func durationField(f Field) (proptest.Strategy[any], error) {
	bound := time.Duration(math.MaxInt64)
	if f.Dialect == "sqlite" {
		bound = sqliteDurationMicros * time.Microsecond
	}
	return proptest.AsAny(Duration(bound)), nil
}
