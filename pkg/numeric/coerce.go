package numeric

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lemonberrylabs/numchain/pkg/types"
)

// ParseFloat scans the longest decimal prefix of text after leading
// whitespace and returns it as a float. Trailing characters are ignored.
// It fails with a ParseError when no prefix is a valid number.
func ParseFloat(text string) (Value, error) {
	s := trimLeftSpace(text)
	end, ok := scanDecimal(s)
	if !ok {
		return Value{}, types.NewParseError(fmt.Sprintf("no numeric prefix in %q", text))
	}
	return Float(decimalToFloat(s[:end])), nil
}

// scanDecimal returns the length of the longest StrDecimalLiteral prefix of
// s: an optional sign followed by "Infinity" or digits with an optional
// fraction and exponent.
func scanDecimal(s string) (int, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return i + len("Infinity"), true
	}

	intEnd := scanDigits(s, i, 10)
	intDigits := intEnd - i
	i = intEnd

	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracEnd := scanDigits(s, i+1, 10)
		fracDigits = fracEnd - (i + 1)
		if intDigits > 0 || fracDigits > 0 {
			i = fracEnd
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if expEnd := scanDigits(s, j, 10); expEnd > j {
			i = expEnd
		}
	}
	return i, true
}

// decimalToFloat converts a string accepted by scanDecimal. Out-of-range
// magnitudes become signed infinities or zeros, never errors.
func decimalToFloat(s string) float64 {
	body := strings.TrimLeft(s, "+-")
	neg := strings.HasPrefix(s, "-")
	if body == "Infinity" {
		if neg {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	// strconv rejects neither "1." nor ".5", but a bare trailing dot before
	// an exponent ("1.e5") needs normalising.
	body = strings.Replace(body, ".e", "e", 1)
	body = strings.Replace(body, ".E", "E", 1)
	f, err := strconv.ParseFloat(body, 64)
	if err != nil && !math.IsInf(f, 0) {
		// Cannot happen for scanned input; keep NaN rather than panicking.
		return math.NaN()
	}
	if neg {
		return -f
	}
	return f
}

// ParseInt scans an integer prefix of text in the given radix and returns
// the nearest float. Radix 0 selects 10, or 16 when the digits start with
// 0x. It fails with a ParseError for a radix outside 2..36 or when no digit
// is present.
func ParseInt(text string, radix int) (Value, error) {
	s := trimLeftSpace(text)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	stripPrefix := true
	switch {
	case radix == 0:
		radix = 10
	case radix < 2 || radix > 36:
		return Value{}, types.NewParseError(fmt.Sprintf("radix %d out of range 2..36", radix))
	case radix != 16:
		stripPrefix = false
	}
	if stripPrefix && len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
		radix = 16
	}

	end := scanDigits(s, 0, radix)
	if end == 0 {
		return Value{}, types.NewParseError(fmt.Sprintf("no base-%d digits in %q", radix, text))
	}

	acc, _ := new(big.Int).SetString(s[:end], radix)
	f, _ := new(big.Float).SetInt(acc).Float64()
	if neg {
		f = -f
	}
	return Float(f), nil
}

// BigIntFromText parses an optionally signed integer with an optional
// 0b/0o/0x prefix and an optional trailing "n". Surrounding whitespace is
// ignored. It fails with a ParseError on empty or malformed digits.
func BigIntFromText(text string) (Value, error) {
	s := strings.TrimFunc(text, isSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	s = strings.TrimSuffix(s, "n")

	radix := 10
	if len(s) >= 2 && s[0] == '0' {
		if r := prefixRadix(s[1]); r != 0 {
			radix = r
			s = s[2:]
		}
	}

	if s == "" || scanDigits(s, 0, radix) != len(s) {
		return Value{}, types.NewParseError(fmt.Sprintf("invalid bigint literal %q", text))
	}
	b, ok := new(big.Int).SetString(s, radix)
	if !ok {
		return Value{}, types.NewParseError(fmt.Sprintf("invalid bigint literal %q", text))
	}
	if neg {
		b.Neg(b)
	}
	return ownBig(b), nil
}

// BigIntFromFloat converts an integral float exactly. It fails with a
// RangeError for NaN, the infinities and values with a fractional part.
func BigIntFromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return Value{}, types.NewRangeError(
			fmt.Sprintf("%s cannot be converted to a bigint because it is not an integer", formatFloat(f)))
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return ownBig(b), nil
}

// ToBigInt converts v to the big-integer domain. See BigIntFromFloat.
func ToBigInt(v Value) (Value, error) {
	if v.kind == KindBigInt {
		return v, nil
	}
	return BigIntFromFloat(v.f)
}

// ToFloat converts v to the float domain, rounding big integers to the
// nearest double (ties to even) and overflowing to the infinities.
func ToFloat(v Value) Value {
	if v.kind == KindFloat {
		return v
	}
	f, _ := new(big.Float).SetInt(v.big()).Float64()
	return Float(f)
}

// ParseLiteral parses numeric literal syntax: decimal literals with an
// optional fraction and exponent, 0x/0o/0b integers, "_" separators between
// digits, and a trailing "n" marking a big-integer literal. Signs are not
// part of literal syntax.
func ParseLiteral(text string) (Value, error) {
	fail := func(reason string) (Value, error) {
		return Value{}, types.NewParseError(fmt.Sprintf("invalid numeric literal %q: %s", text, reason))
	}
	if text == "" {
		return fail("empty")
	}

	s, isBig := strings.CutSuffix(text, "n")

	if len(s) >= 2 && s[0] == '0' {
		if radix := prefixRadix(s[1]); radix != 0 {
			digits, err := stripSeparators(s[2:], radix)
			if err != nil {
				return fail(err.Error())
			}
			if digits == "" {
				return fail("missing digits")
			}
			b, ok := new(big.Int).SetString(digits, radix)
			if !ok {
				return fail("malformed digits")
			}
			if isBig {
				return ownBig(b), nil
			}
			f, _ := new(big.Float).SetInt(b).Float64()
			return Float(f), nil
		}
	}

	if isBig {
		digits, err := stripSeparators(s, 10)
		if err != nil {
			return fail(err.Error())
		}
		if digits == "" {
			return fail("missing digits")
		}
		if len(digits) > 1 && digits[0] == '0' {
			return fail("leading zero in bigint literal")
		}
		b, _ := new(big.Int).SetString(digits, 10)
		return ownBig(b), nil
	}

	// Decimal literal: split around '.', 'e' and validate each digit run.
	mant, exp, hasExp := strings.Cut(strings.ToLower(s), "e")
	intPart, frac, hasDot := strings.Cut(mant, ".")
	intDigits, err := stripSeparators(intPart, 10)
	if err != nil {
		return fail(err.Error())
	}
	fracDigits, err := stripSeparators(frac, 10)
	if err != nil {
		return fail(err.Error())
	}
	if intDigits == "" && fracDigits == "" {
		return fail("missing digits")
	}
	if len(intDigits) > 1 && intDigits[0] == '0' {
		return fail("leading zero")
	}
	norm := intDigits
	if hasDot {
		norm += "." + fracDigits
	}
	if hasExp {
		expSign := ""
		if exp != "" && (exp[0] == '+' || exp[0] == '-') {
			expSign, exp = exp[:1], exp[1:]
		}
		expDigits, err := stripSeparators(exp, 10)
		if err != nil {
			return fail(err.Error())
		}
		if expDigits == "" {
			return fail("missing exponent digits")
		}
		norm += "e" + expSign + expDigits
	}
	end, ok := scanDecimal(norm)
	if !ok || end != len(norm) {
		return fail("malformed")
	}
	return Float(decimalToFloat(norm)), nil
}

// Parse reads canonical wire text as produced by Value.String: "NaN",
// "Infinity", "-0", decimal text, or integer text with an "n" suffix.
// Numeric literal syntax is accepted as a fallback. Unlike ParseFloat the
// whole string must be consumed.
func Parse(text string) (Value, error) {
	s := strings.TrimFunc(text, isSpace)
	switch s {
	case "NaN":
		return Float(math.NaN()), nil
	case "":
		return Value{}, types.NewParseError("empty numeric text")
	}
	if strings.HasSuffix(s, "n") {
		return BigIntFromText(s)
	}
	if end, ok := scanDecimal(s); ok && end == len(s) {
		return Float(decimalToFloat(s)), nil
	}
	neg := strings.HasPrefix(s, "-")
	v, err := ParseLiteral(strings.TrimLeft(s, "+-"))
	if err != nil {
		return Value{}, types.NewParseError(fmt.Sprintf("invalid numeric text %q", text))
	}
	if neg {
		return Neg(v), nil
	}
	return v, nil
}

// stripSeparators removes "_" separators from a digit run, requiring every
// separator to sit between two digits valid in radix.
func stripSeparators(s string, radix int) (string, error) {
	if !strings.Contains(s, "_") {
		if scanDigits(s, 0, radix) != len(s) {
			return "", fmt.Errorf("invalid base-%d digit", radix)
		}
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if i == 0 || i == len(s)-1 || s[i-1] == '_' || digitValue(s[i+1]) >= radix {
				return "", fmt.Errorf("separator not between digits")
			}
			continue
		}
		if digitValue(c) >= radix {
			return "", fmt.Errorf("invalid base-%d digit %q", radix, c)
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}

// scanDigits returns the index of the first byte at or after i that is not
// a digit in radix.
func scanDigits(s string, i, radix int) int {
	for i < len(s) && digitValue(s[i]) < radix {
		i++
	}
	return i
}

// digitValue returns the value of an alphanumeric digit, or 36 for
// anything else.
func digitValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'z':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 36
	}
}

func prefixRadix(c byte) int {
	switch c {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	default:
		return 0
	}
}

// isSpace matches WhiteSpace and LineTerminator code points, including the
// byte order mark and excluding NEL.
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

func trimLeftSpace(s string) string {
	for s != "" {
		r, size := utf8.DecodeRuneInString(s)
		if !isSpace(r) {
			break
		}
		s = s[size:]
	}
	return s
}
