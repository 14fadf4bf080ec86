// Package numeric implements the dual numeric domain: IEEE-754 doubles with
// signed zero, NaN and the infinities, and arbitrary-precision integers with
// truncating division. Values of the two domains never mix implicitly.
package numeric

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Kind is the domain of a numeric value.
type Kind int

const (
	KindFloat  Kind = iota // float64
	KindBigInt             // *big.Int
)

// String returns the domain name as reported to callers.
func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "number"
	case KindBigInt:
		return "bigint"
	default:
		return "unknown"
	}
}

// Value is an immutable number in one of the two domains. The zero Value is
// Float(0).
type Value struct {
	kind Kind
	f    float64
	b    *big.Int // never mutated after construction
}

// Float creates a value in the float domain.
func Float(x float64) Value {
	return Value{kind: KindFloat, f: x}
}

// BigInt parses text into a value in the big-integer domain.
// See BigIntFromText for the accepted syntax.
func BigInt(text string) (Value, error) {
	return BigIntFromText(text)
}

// FromBig creates a big-integer value holding a copy of x.
func FromBig(x *big.Int) Value {
	return Value{kind: KindBigInt, b: new(big.Int).Set(x)}
}

// FromInt64 creates a big-integer value.
func FromInt64(x int64) Value {
	return Value{kind: KindBigInt, b: big.NewInt(x)}
}

// ownBig wraps a freshly computed *big.Int without copying it.
func ownBig(x *big.Int) Value {
	return Value{kind: KindBigInt, b: x}
}

// Kind returns the value's domain.
func (v Value) Kind() Kind {
	return v.kind
}

// IsFloat returns true for the float domain.
func (v Value) IsFloat() bool {
	return v.kind == KindFloat
}

// IsBigInt returns true for the big-integer domain.
func (v Value) IsBigInt() bool {
	return v.kind == KindBigInt
}

// AsFloat returns the float payload. Panics if not a float.
func (v Value) AsFloat() float64 {
	if v.kind != KindFloat {
		panic(fmt.Sprintf("AsFloat called on %s value", v.kind))
	}
	return v.f
}

// AsBig returns a copy of the big-integer payload. Panics if not a bigint.
func (v Value) AsBig() *big.Int {
	if v.kind != KindBigInt {
		panic(fmt.Sprintf("AsBig called on %s value", v.kind))
	}
	return new(big.Int).Set(v.big())
}

func (v Value) big() *big.Int {
	if v.b == nil {
		return new(big.Int)
	}
	return v.b
}

// Sign returns -1, 0 or +1. NaN and both zeros report 0.
func (v Value) Sign() int {
	if v.kind == KindBigInt {
		return v.big().Sign()
	}
	switch {
	case v.f > 0:
		return 1
	case v.f < 0:
		return -1
	default:
		return 0
	}
}

// Text returns the JavaScript toString() form: "-0" renders as "0" and
// big integers have no suffix.
func (v Value) Text() string {
	if v.kind == KindBigInt {
		return v.big().String()
	}
	return formatFloat(v.f)
}

// String returns the canonical wire text: negative zero keeps its sign and
// big integers carry an "n" suffix. Parse accepts this form.
func (v Value) String() string {
	if v.kind == KindBigInt {
		return v.big().String() + "n"
	}
	if v.f == 0 && math.Signbit(v.f) {
		return "-0"
	}
	return formatFloat(v.f)
}

// MarshalJSON encodes the value as its wire text in a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts a JSON string in wire text form or a JSON number.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if nerr := json.Unmarshal(data, &n); nerr != nil {
			return fmt.Errorf("numeric value must be a string or number: %w", err)
		}
		s = n.String()
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// formatFloat renders f using the Number-to-String algorithm: integers up
// to 21 digits print in full, small magnitudes down to 1e-7 print as
// decimals, everything else uses exponent notation with an explicit sign.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	// Shortest round-tripping digits and exponent: d.ddde±x
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expText, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expText)
	k := len(digits)
	n := exp + 1 // position of the decimal point relative to the digits

	var sb strings.Builder
	sb.WriteString(sign)
	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		if n-1 >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(n - 1))
	}
	return sb.String()
}
