package stdlib

import (
	"math"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

// registerNumber registers Number, Number.* and the global parse functions.
func (r *Registry) registerNumber() {
	r.Register("Number", numberConvert)
	r.Register("Number.isNaN", numberPredicate(numeric.IsNaN))
	r.Register("Number.isFinite", numberPredicate(numeric.IsFinite))
	r.Register("Number.isInteger", numberPredicate(numeric.IsInteger))
	r.Register("Number.isSafeInteger", numberPredicate(numeric.IsSafeInteger))
	r.Register("Number.parseFloat", numberParseFloat)
	r.Register("Number.parseInt", numberParseInt)
	r.Register("parseFloat", numberParseFloat)
	r.Register("parseInt", numberParseInt)
}

func numberConvert(args []host.Value) (host.Value, error) {
	if len(args) == 0 {
		return float(0), nil
	}
	return number(toNumber(args[0])), nil
}

// numberPredicate is false for anything that is not a number.
func numberPredicate(pred func(numeric.Value) bool) StdlibFunc {
	return func(args []host.Value) (host.Value, error) {
		v := arg(args, 0)
		if v.Type() != host.TypeNumber {
			return host.NewBool(false), nil
		}
		return host.NewBool(pred(v.AsNumber())), nil
	}
}

// numberParseFloat returns NaN where the engine reports a ParseError.
func numberParseFloat(args []host.Value) (host.Value, error) {
	v, err := numeric.ParseFloat(toText(arg(args, 0)))
	if err != nil {
		return number(numeric.NaN), nil
	}
	return number(v), nil
}

func numberParseInt(args []host.Value) (host.Value, error) {
	radix := 0
	if r := arg(args, 1); r.Type() != host.TypeUndefined {
		f := toNumber(r).AsFloat()
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			radix = int(int32(toUint32(f)))
		}
	}
	v, err := numeric.ParseInt(toText(arg(args, 0)), radix)
	if err != nil {
		return number(numeric.NaN), nil
	}
	return number(v), nil
}
