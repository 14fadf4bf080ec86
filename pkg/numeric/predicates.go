package numeric

import (
	"math"
	"sort"
)

// IsNaN reports whether v is the float NaN. Big integers are never NaN.
func IsNaN(v Value) bool {
	return v.kind == KindFloat && math.IsNaN(v.f)
}

// IsFinite reports whether v is neither NaN nor infinite. Big integers are
// always finite.
func IsFinite(v Value) bool {
	if v.kind == KindBigInt {
		return true
	}
	return !math.IsNaN(v.f) && !math.IsInf(v.f, 0)
}

// IsInteger reports whether v has no fractional part. Big integers always
// qualify.
func IsInteger(v Value) bool {
	if v.kind == KindBigInt {
		return true
	}
	return IsFinite(v) && v.f == math.Trunc(v.f)
}

// IsSafeInteger reports whether v is a float integer within
// ±MAX_SAFE_INTEGER. Big integers are never safe integers.
func IsSafeInteger(v Value) bool {
	return v.kind == KindFloat && IsInteger(v) && math.Abs(v.f) <= maxSafeInteger
}

// SameValue is the identity predicate behind Object.is: NaN is the same as
// NaN, and +0 differs from -0. Values of different domains are never the
// same.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindBigInt {
		return a.big().Cmp(b.big()) == 0
	}
	if math.IsNaN(a.f) && math.IsNaN(b.f) {
		return true
	}
	return a.f == b.f && math.Signbit(a.f) == math.Signbit(b.f)
}

// SameValueZero is SameValue except that +0 and -0 are the same.
func SameValueZero(a, b Value) bool {
	if a.kind == KindFloat && b.kind == KindFloat && a.f == 0 && b.f == 0 {
		return true
	}
	return SameValue(a, b)
}

// StrictEqual is ordinary equality: NaN equals nothing, +0 equals -0, and
// values of different domains are unequal.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindBigInt {
		return a.big().Cmp(b.big()) == 0
	}
	return a.f == b.f
}

const maxSafeInteger = 1<<53 - 1

// Named constants.
var (
	Pi             = Float(math.Pi)
	E              = Float(math.E)
	Ln2            = Float(math.Ln2)
	Ln10           = Float(math.Ln10)
	Log2E          = Float(math.Log2E)
	Log10E         = Float(math.Log10E)
	Sqrt2          = Float(math.Sqrt2)
	SqrtHalf       = Float(math.Sqrt2 / 2)
	MaxValue       = Float(math.MaxFloat64)
	MinValue       = Float(0x1p-1022) // smallest positive normal double
	MinSubnormal   = Float(math.SmallestNonzeroFloat64)
	Epsilon        = Float(0x1p-52)
	MaxSafeInteger = Float(maxSafeInteger)
	MinSafeInteger = Float(-maxSafeInteger)
	Infinity       = Float(math.Inf(1))
	NegInfinity    = Float(math.Inf(-1))
	NaN            = Float(math.NaN())
)

var constants = map[string]Value{
	"PI":                Pi,
	"E":                 E,
	"LN2":               Ln2,
	"LN10":              Ln10,
	"LOG2E":             Log2E,
	"LOG10E":            Log10E,
	"SQRT2":             Sqrt2,
	"SQRT1_2":           SqrtHalf,
	"MAX_VALUE":         MaxValue,
	"MIN_VALUE":         MinValue,
	"MIN_SUBNORMAL":     MinSubnormal,
	"EPSILON":           Epsilon,
	"MAX_SAFE_INTEGER":  MaxSafeInteger,
	"MIN_SAFE_INTEGER":  MinSafeInteger,
	"POSITIVE_INFINITY": Infinity,
	"NEGATIVE_INFINITY": NegInfinity,
	"NaN":               NaN,
}

// Constant looks up a named constant.
func Constant(name string) (Value, bool) {
	v, ok := constants[name]
	return v, ok
}

// ConstantNames returns the constant names in sorted order.
func ConstantNames() []string {
	names := make([]string, 0, len(constants))
	for k := range constants {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
