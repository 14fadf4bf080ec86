package stdlib

import (
	"fmt"
	"math"
	"math/big"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

// registerBigInt registers BigInt and BigInt.* functions.
func (r *Registry) registerBigInt() {
	r.Register("BigInt", bigIntConvert)
	r.Register("BigInt.asIntN", bigIntWrap("BigInt.asIntN", true))
	r.Register("BigInt.asUintN", bigIntWrap("BigInt.asUintN", false))
}

// bigIntConvert converts numbers exactly, strings as bigint text and
// booleans to 0n or 1n.
func bigIntConvert(args []host.Value) (host.Value, error) {
	if err := requireArgs("BigInt", args, 1, 1); err != nil {
		return host.Undefined, err
	}
	v, err := toBigInt("BigInt", args[0])
	if err != nil {
		return host.Undefined, err
	}
	return number(v), nil
}

func toBigInt(name string, v host.Value) (numeric.Value, error) {
	switch v.Type() {
	case host.TypeNumber:
		return numeric.ToBigInt(v.AsNumber())
	case host.TypeString:
		return numeric.BigIntFromText(v.AsString())
	case host.TypeBool:
		if v.AsBool() {
			return numeric.FromInt64(1), nil
		}
		return numeric.FromInt64(0), nil
	}
	return numeric.Value{}, types.NewTypeMismatchError(
		fmt.Sprintf("%s: cannot convert %s to a bigint", name, v.Type()))
}

// bigIntWrap reduces a big integer modulo 2^bits, as a two's complement
// signed value when signed is set.
func bigIntWrap(name string, signed bool) StdlibFunc {
	return func(args []host.Value) (host.Value, error) {
		if err := requireArgs(name, args, 2, 2); err != nil {
			return host.Undefined, err
		}
		width := toNumber(args[0]).AsFloat()
		if math.IsNaN(width) {
			width = 0
		}
		width = math.Trunc(width)
		if width < 0 || width > numeric.MaxBigIntBits {
			return host.Undefined, types.NewRangeError(
				fmt.Sprintf("%s: invalid bit width %s", name, numeric.Float(width).Text()))
		}
		if args[1].Type() != host.TypeNumber || !args[1].AsNumber().IsBigInt() {
			return host.Undefined, types.NewTypeMismatchError(
				fmt.Sprintf("%s: second argument must be a bigint", name))
		}

		n := uint(width)
		x := args[1].AsNumber().AsBig()
		if n == 0 {
			return number(numeric.FromInt64(0)), nil
		}
		modulus := new(big.Int).Lsh(big.NewInt(1), n)
		x.Mod(x, modulus)
		if signed && x.Bit(int(n-1)) == 1 {
			x.Sub(x, modulus)
		}
		return number(numeric.FromBig(x)), nil
	}
}
