package stdlib

import (
	"math"
	"math/bits"
	"math/rand"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

// registerMath registers Math.* functions.
func (r *Registry) registerMath() {
	unary := map[string]func(float64) float64{
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"trunc": math.Trunc,
		"round": mathRound,
		"sign":  mathSign,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"exp":   math.Exp,
		"expm1": math.Expm1,
		"log":   math.Log,
		"log1p": math.Log1p,
		"log2":  math.Log2,
		"log10": math.Log10,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sinh":  math.Sinh,
		"cosh":  math.Cosh,
		"tanh":  math.Tanh,
		"asinh": math.Asinh,
		"acosh": math.Acosh,
		"atanh": math.Atanh,
		"fround": func(x float64) float64 {
			return float64(float32(x))
		},
	}
	for name, fn := range unary {
		r.Register("Math."+name, mathUnary("Math."+name, fn))
	}

	r.Register("Math.atan2", mathBinary("Math.atan2", math.Atan2))
	r.Register("Math.pow", mathBinary("Math.pow", func(x, y float64) float64 {
		v, _ := numeric.Pow(numeric.Float(x), numeric.Float(y))
		return v.AsFloat()
	}))
	r.Register("Math.imul", mathBinary("Math.imul", func(x, y float64) float64 {
		return float64(int32(toUint32(x) * toUint32(y)))
	}))
	r.Register("Math.clz32", mathUnary("Math.clz32", func(x float64) float64 {
		return float64(bits.LeadingZeros32(toUint32(x)))
	}))
	r.Register("Math.max", mathExtremum("Math.max", 1))
	r.Register("Math.min", mathExtremum("Math.min", -1))
	r.Register("Math.hypot", mathHypot)
	r.Register("Math.random", mathRandom)
}

// mathUnary wraps fn; a missing argument is NaN and extra arguments are
// ignored.
func mathUnary(name string, fn func(float64) float64) StdlibFunc {
	return func(args []host.Value) (host.Value, error) {
		x, err := toFloat(name, arg(args, 0))
		if err != nil {
			return host.Undefined, err
		}
		return float(fn(x)), nil
	}
}

func mathBinary(name string, fn func(float64, float64) float64) StdlibFunc {
	return func(args []host.Value) (host.Value, error) {
		x, err := toFloat(name, arg(args, 0))
		if err != nil {
			return host.Undefined, err
		}
		y, err := toFloat(name, arg(args, 1))
		if err != nil {
			return host.Undefined, err
		}
		return float(fn(x, y)), nil
	}
}

// mathRound rounds half up, keeping the sign of zero for inputs in
// [-0.5, 0].
func mathRound(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		return x
	}
	if x < 0 && x >= -0.5 {
		return math.Copysign(0, -1)
	}
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return r
}

func mathSign(x float64) float64 {
	switch {
	case math.IsNaN(x), x == 0:
		return x
	case x > 0:
		return 1
	default:
		return -1
	}
}

// mathExtremum implements max (dir 1) and min (dir -1). With no arguments
// the result is the identity, -Infinity for max and Infinity for min. Any
// NaN argument makes the result NaN, and +0 is larger than -0.
func mathExtremum(name string, dir int) StdlibFunc {
	return func(args []host.Value) (host.Value, error) {
		result := math.Inf(-dir)
		nan := false
		for _, a := range args {
			x, err := toFloat(name, a)
			if err != nil {
				return host.Undefined, err
			}
			switch {
			case math.IsNaN(x):
				nan = true
			case x == 0 && result == 0:
				if (dir > 0) != math.Signbit(x) {
					result = x
				}
			case dir > 0 && x > result, dir < 0 && x < result:
				result = x
			}
		}
		if nan {
			return number(numeric.NaN), nil
		}
		return float(result), nil
	}
}

// mathHypot is Infinity if any argument is infinite, even when another is
// NaN.
func mathHypot(args []host.Value) (host.Value, error) {
	xs := make([]float64, len(args))
	nan, inf := false, false
	largest := 0.0
	for i, a := range args {
		x, err := toFloat("Math.hypot", a)
		if err != nil {
			return host.Undefined, err
		}
		x = math.Abs(x)
		switch {
		case math.IsInf(x, 0):
			inf = true
		case math.IsNaN(x):
			nan = true
		case x > largest:
			largest = x
		}
		xs[i] = x
	}
	switch {
	case inf:
		return float(math.Inf(1)), nil
	case nan:
		return number(numeric.NaN), nil
	case len(xs) == 2:
		return float(math.Hypot(xs[0], xs[1])), nil
	case largest == 0:
		return float(0), nil
	}
	sum := 0.0
	for _, x := range xs {
		ratio := x / largest
		sum += ratio * ratio
	}
	return float(largest * math.Sqrt(sum)), nil
}

func mathRandom(args []host.Value) (host.Value, error) {
	return float(rand.Float64()), nil
}
