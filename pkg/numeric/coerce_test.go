package numeric

import (
	"math"
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lemonberrylabs/numchain/pkg/types"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"3.14", Float(3.14)},
		{"  3.14abc", Float(3.14)},
		{"\n\t-2.5e3xyz", Float(-2500)},
		{".5", Float(0.5)},
		{"5.", Float(5)},
		{"1e", Float(1)},
		{"1e+", Float(1)},
		{"-0", Float(math.Copysign(0, -1))},
		{"Infinity", Infinity},
		{"-Infinityx", NegInfinity},
		{"1e400", Infinity},
		{"1e-400", Float(0)},
		{"0x10", Float(0)},
		{"1_000", Float(1)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFloat(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !SameValue(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFloatErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", ".", "-", "+.e5", "infinity", "NaN"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseFloat(input)
			if !types.HasTag(err, types.TagParseError) {
				t.Errorf("got %v, want ParseError", err)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input string
		radix int
		want  Value
	}{
		{"42", 0, Float(42)},
		{"42px", 10, Float(42)},
		{"  -17", 0, Float(-17)},
		{"0x1F", 0, Float(31)},
		{"0x1F", 16, Float(31)},
		{"1F", 16, Float(31)},
		{"0x1F", 10, Float(0)},
		{"111", 2, Float(7)},
		{"1112", 2, Float(7)},
		{"zz", 36, Float(1295)},
		{"3.99", 10, Float(3)},
		{"-0", 10, Float(math.Copysign(0, -1))},
		{"9007199254740993", 10, Float(9007199254740992)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInt(tt.input, tt.radix)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !SameValue(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseIntErrors(t *testing.T) {
	tests := []struct {
		input string
		radix int
	}{
		{"", 10},
		{"xyz", 10},
		{"2", 2},
		{"10", 1},
		{"10", 37},
		{"0x", 16},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseInt(tt.input, tt.radix)
			if !types.HasTag(err, types.TagParseError) {
				t.Errorf("got %v, want ParseError", err)
			}
		})
	}
}

func TestBigIntFromText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123", "123"},
		{"123n", "123"},
		{"-123n", "-123"},
		{"+5", "5"},
		{"0x1f", "31"},
		{"0XFFn", "255"},
		{"0o17", "15"},
		{"0b1010n", "10"},
		{"  42  ", "42"},
		{"-0", "0"},
		{"123456789012345678901234567890", "123456789012345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := BigIntFromText(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text() != tt.want {
				t.Errorf("got %s, want %s", got.Text(), tt.want)
			}
		})
	}
}

func TestBigIntFromTextErrors(t *testing.T) {
	for _, input := range []string{"", "n", "-", "1.5", "12a", "0x", "0b102", "1_000", "1nn", "1e3"} {
		t.Run(input, func(t *testing.T) {
			_, err := BigIntFromText(input)
			if !types.HasTag(err, types.TagParseError) {
				t.Errorf("got %v, want ParseError", err)
			}
		})
	}
}

func TestBigIntFromFloat(t *testing.T) {
	got, err := BigIntFromFloat(9007199254740992)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text() != "9007199254740992" {
		t.Errorf("got %s", got.Text())
	}

	got, err = BigIntFromFloat(math.Copysign(0, -1))
	if err != nil || got.String() != "0n" {
		t.Errorf("BigIntFromFloat(-0) = %v, %v", got, err)
	}

	got, err = BigIntFromFloat(1e30)
	if err != nil || got.Text() != "1000000000000000019884624838656" {
		t.Errorf("BigIntFromFloat(1e30) = %v, %v", got, err)
	}

	for _, f := range []float64{1.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := BigIntFromFloat(f); !types.HasTag(err, types.TagRangeError) {
			t.Errorf("BigIntFromFloat(%v): got %v, want RangeError", f, err)
		}
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"42", Float(42)},
		{"9007199254740993", Float(9007199254740992)},
		{"9007199254740995", Float(9007199254740996)},
		{"-1", Float(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ToFloat(mustBig(t, tt.input))
			if !SameValue(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	huge, _ := Pow(FromInt64(10), FromInt64(400))
	if got := ToFloat(huge); !SameValue(got, Infinity) {
		t.Errorf("ToFloat(10n ** 400n) = %v, want Infinity", got)
	}
	if got := ToFloat(Float(1.5)); !SameValue(got, Float(1.5)) {
		t.Errorf("ToFloat(1.5) = %v", got)
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1_000_000_000", "1000000000"},
		{"0x89_ab_cd_ef", "2309737967"},
		{"0b0001_1101_0111", "471"},
		{"0.123_456_789", "0.123456789"},
		{"0o777", "511"},
		{"1e3", "1000"},
		{"1_0e1_0", "100000000000"},
		{".5", "0.5"},
		{"5.", "5"},
		{"123n", "123n"},
		{"1_000n", "1000n"},
		{"0xffn", "255n"},
		{"0n", "0n"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLiteral(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseLiteralErrors(t *testing.T) {
	for _, input := range []string{"", "_1", "1_", "1__0", "1._5", "1_.5", "0x", "0x_1", "1.5n", "1e3n", "01", "01n", "1e", "-1", "0b2"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseLiteral(input)
			if !types.HasTag(err, types.TagParseError) {
				t.Errorf("got %v, want ParseError", err)
			}
		})
	}
}

func TestParseWireText(t *testing.T) {
	tests := []struct {
		input string
		want  Value
	}{
		{"NaN", NaN},
		{"Infinity", Infinity},
		{"-Infinity", NegInfinity},
		{"-0", Float(math.Copysign(0, -1))},
		{"1.5", Float(1.5)},
		{"1e+21", Float(1e21)},
		{"0x10", Float(16)},
		{"-0x10", Float(-16)},
		{"3000n", FromInt64(3000)},
		{"-3000n", FromInt64(-3000)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !SameValue(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	for _, bad := range []string{"", "1.5abc", "abc", "1.5n"} {
		if _, err := Parse(bad); !types.HasTag(err, types.TagParseError) {
			t.Errorf("Parse(%q): got %v, want ParseError", bad, err)
		}
	}
}

func TestBigIntTextRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("BigIntFromText(x.Text()) == x", prop.ForAll(
		func(v *big.Int) bool {
			x := FromBig(v)
			back, err := BigIntFromText(x.Text())
			return err == nil && SameValue(back, x)
		},
		gen.Int64().Map(func(v int64) *big.Int {
			b := big.NewInt(v)
			return b.Exp(b, big.NewInt(7), nil)
		}),
	))

	properties.Property("Parse(x.String()) == x", prop.ForAll(
		func(v int64) bool {
			x := FromInt64(v)
			back, err := Parse(x.String())
			return err == nil && SameValue(back, x)
		},
		gen.Int64(),
	))

	properties.Property("float wire text round trips", prop.ForAll(
		func(f float64) bool {
			x := Float(f)
			back, err := Parse(x.String())
			return err == nil && SameValue(back, x)
		},
		gen.Float64(),
	))

	properties.TestingRun(t)
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		in   float64
		text string
	}{
		{0, "0"},
		{1, "1"},
		{-1.5, "-1.5"},
		{100, "100"},
		{1e21, "1e+21"},
		{123456789012345680000, "123456789012345680000"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-10, "1.5e-10"},
		{math.MaxFloat64, "1.7976931348623157e+308"},
		{math.SmallestNonzeroFloat64, "5e-324"},
		{0.1 + 0.2, "0.30000000000000004"},
		{math.NaN(), "NaN"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Float(tt.in).Text(); got != tt.text {
				t.Errorf("got %s, want %s", got, tt.text)
			}
		})
	}

	negZero := Float(math.Copysign(0, -1))
	if negZero.Text() != "0" || negZero.String() != "-0" {
		t.Errorf("negative zero renders as %q / %q", negZero.Text(), negZero.String())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	v := FromInt64(-42)
	b, err := v.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"-42n"` {
		t.Errorf("got %s", b)
	}

	var back Value
	if err := back.UnmarshalJSON([]byte(`12.5`)); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if !SameValue(back, Float(12.5)) {
		t.Errorf("got %v", back)
	}
	if err := back.UnmarshalJSON([]byte(`"7n"`)); err != nil || !SameValue(back, FromInt64(7)) {
		t.Errorf("got %v, %v", back, err)
	}
	if err := back.UnmarshalJSON([]byte(`true`)); err == nil {
		t.Error("expected error for boolean")
	}
}
