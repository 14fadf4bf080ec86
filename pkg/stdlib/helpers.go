package stdlib

import (
	"fmt"
	"math"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

func argumentError(format string, a ...any) error {
	return types.NewArgumentError(fmt.Sprintf(format, a...))
}

// arg returns args[i], or undefined when the argument was not passed.
func arg(args []host.Value, i int) host.Value {
	if i < len(args) {
		return args[i]
	}
	return host.Undefined
}

// toNumber converts v the way Number(v) does. Big integers convert to the
// nearest Float.
func toNumber(v host.Value) numeric.Value {
	switch v.Type() {
	case host.TypeNumber:
		return numeric.ToFloat(v.AsNumber())
	case host.TypeNull:
		return numeric.Float(0)
	case host.TypeBool:
		if v.AsBool() {
			return numeric.Float(1)
		}
		return numeric.Float(0)
	case host.TypeString:
		return stringToNumber(v.AsString())
	}
	return numeric.NaN
}

// stringToNumber accepts the whole (trimmed) string as a numeric literal or
// returns NaN. The empty string is 0.
func stringToNumber(s string) numeric.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return numeric.Float(0)
	}
	if strings.HasSuffix(s, "n") || strings.Contains(s, "_") || signedRadixLiteral(s) {
		return numeric.NaN
	}
	n, err := numeric.Parse(s)
	if err != nil {
		return numeric.NaN
	}
	return n
}

// signedRadixLiteral reports a sign in front of 0x, 0o or 0b, which string
// to number conversion does not allow.
func signedRadixLiteral(s string) bool {
	return len(s) > 2 && (s[0] == '+' || s[0] == '-') && s[1] == '0' && strings.ContainsRune("xXoObB", rune(s[2]))
}

// toFloat converts a Math argument. Big integers are rejected, as the Math
// functions have no big integer overloads.
func toFloat(name string, v host.Value) (float64, error) {
	if v.Type() == host.TypeNumber && v.AsNumber().IsBigInt() {
		return 0, types.NewTypeMismatchError(
			fmt.Sprintf("%s: cannot convert a bigint to a number", name))
	}
	return toNumber(v).AsFloat(), nil
}

// toText converts v to the string a parse function scans.
func toText(v host.Value) string {
	if v.Type() == host.TypeNumber {
		return v.AsNumber().Text()
	}
	return v.String()
}

// toUint32 applies the ToUint32 wrap-around conversion.
func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

func number(v numeric.Value) host.Value {
	return host.NewNumber(v)
}

func float(f float64) host.Value {
	return host.NewFloat(f)
}
