package numeric

import (
	"fmt"
	"math"
	"math/big"

	"github.com/lemonberrylabs/numchain/pkg/types"
)

// Op is a binary arithmetic operator.
type Op int

const (
	OpAdd Op = iota // +
	OpSub           // -
	OpMul           // *
	OpDiv           // /
	OpMod           // %
	OpPow           // **
)

// String returns the operator symbol.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// ParseOp maps an operator symbol or name ("+", "add", "**", "pow", ...) to
// an Op.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "+", "add":
		return OpAdd, true
	case "-", "sub":
		return OpSub, true
	case "*", "mul":
		return OpMul, true
	case "/", "div":
		return OpDiv, true
	case "%", "mod":
		return OpMod, true
	case "**", "pow":
		return OpPow, true
	default:
		return 0, false
	}
}

// MaxBigIntBits bounds the size of big-integer results.
const MaxBigIntBits = 1 << 30

// Add returns a + b.
func Add(a, b Value) (Value, error) { return Apply(OpAdd, a, b) }

// Sub returns a - b.
func Sub(a, b Value) (Value, error) { return Apply(OpSub, a, b) }

// Mul returns a * b.
func Mul(a, b Value) (Value, error) { return Apply(OpMul, a, b) }

// Div returns a / b. Big-integer division truncates toward zero.
func Div(a, b Value) (Value, error) { return Apply(OpDiv, a, b) }

// Mod returns the remainder of a / b, carrying the sign of a.
func Mod(a, b Value) (Value, error) { return Apply(OpMod, a, b) }

// Pow returns a ** b.
func Pow(a, b Value) (Value, error) { return Apply(OpPow, a, b) }

// Apply evaluates a op b. Both operands must be of the same domain;
// otherwise it fails with a TypeMismatchError.
func Apply(op Op, a, b Value) (Value, error) {
	if a.kind != b.kind {
		return Value{}, types.NewTypeMismatchError(
			fmt.Sprintf("cannot mix %s and %s operands for %s (explicit conversion required)", a.kind, b.kind, op))
	}
	if a.kind == KindFloat {
		return Float(floatOp(op, a.f, b.f)), nil
	}
	return bigOp(op, a.big(), b.big())
}

// floatOp applies IEEE-754 double arithmetic. Overflow, underflow and
// division by zero produce infinities, zeros and NaN, never errors.
func floatOp(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return math.Mod(a, b)
	case OpPow:
		return floatPow(a, b)
	default:
		return math.NaN()
	}
}

// floatPow differs from math.Pow where the exponentiation operator does:
// a NaN exponent always yields NaN, and so does ±1 raised to ±Infinity.
func floatPow(a, b float64) float64 {
	if math.IsNaN(b) {
		return math.NaN()
	}
	if math.IsInf(b, 0) && (a == 1 || a == -1) {
		return math.NaN()
	}
	return math.Pow(a, b)
}

func bigOp(op Op, a, b *big.Int) (Value, error) {
	switch op {
	case OpAdd:
		return ownBig(new(big.Int).Add(a, b)), nil
	case OpSub:
		return ownBig(new(big.Int).Sub(a, b)), nil
	case OpMul:
		if a.BitLen()+b.BitLen() > MaxBigIntBits {
			return Value{}, types.NewRangeError("maximum bigint size exceeded")
		}
		return ownBig(new(big.Int).Mul(a, b)), nil
	case OpDiv:
		if b.Sign() == 0 {
			return Value{}, types.NewDivisionByZero()
		}
		// Quo truncates; big.Int.Div is Euclidean.
		return ownBig(new(big.Int).Quo(a, b)), nil
	case OpMod:
		if b.Sign() == 0 {
			return Value{}, types.NewDivisionByZero()
		}
		return ownBig(new(big.Int).Rem(a, b)), nil
	case OpPow:
		return bigPow(a, b)
	default:
		return Value{}, fmt.Errorf("unsupported operator %s", op)
	}
}

func bigPow(a, b *big.Int) (Value, error) {
	if b.Sign() < 0 {
		return Value{}, types.NewRangeError("exponent must be non-negative")
	}
	// 0, 1 and -1 stay bounded for any exponent.
	if a.CmpAbs(big.NewInt(1)) <= 0 {
		if b.Sign() == 0 {
			return FromInt64(1), nil
		}
		if a.Sign() < 0 && b.Bit(0) == 0 {
			return FromInt64(1), nil
		}
		return FromBig(a), nil
	}
	if !b.IsInt64() || b.Int64() > MaxBigIntBits || powBits(a, b.Int64()) > MaxBigIntBits {
		return Value{}, types.NewRangeError("maximum bigint size exceeded")
	}
	return ownBig(new(big.Int).Exp(a, b, nil)), nil
}

// powBits bounds the bit length of a**n from above. Powers of two are
// exact; otherwise |a| < 2**BitLen gives the bound.
func powBits(a *big.Int, n int64) int64 {
	bits := int64(a.BitLen())
	if a.TrailingZeroBits() == uint(bits-1) {
		return (bits-1)*n + 1
	}
	return bits * n
}

// Neg returns -v. Negating a big-integer zero yields zero; negating a float
// zero flips its sign.
func Neg(v Value) Value {
	if v.kind == KindBigInt {
		return ownBig(new(big.Int).Neg(v.big()))
	}
	return Float(-v.f)
}

// Compare orders a and b exactly, across domains if needed. ok is false
// when either operand is NaN.
func Compare(a, b Value) (cmp int, ok bool) {
	switch {
	case a.kind == KindFloat && b.kind == KindFloat:
		switch {
		case math.IsNaN(a.f) || math.IsNaN(b.f):
			return 0, false
		case a.f < b.f:
			return -1, true
		case a.f > b.f:
			return 1, true
		default:
			return 0, true
		}
	case a.kind == KindBigInt && b.kind == KindBigInt:
		return a.big().Cmp(b.big()), true
	case a.kind == KindBigInt:
		c, ok := compareBigFloat(a.big(), b.f)
		return c, ok
	default:
		c, ok := compareBigFloat(b.big(), a.f)
		return -c, ok
	}
}

// compareBigFloat compares an integer with a double without rounding.
func compareBigFloat(x *big.Int, f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case math.IsInf(f, 1):
		return -1, true
	case math.IsInf(f, -1):
		return 1, true
	}
	bx := new(big.Float).SetInt(x)
	return bx.Cmp(big.NewFloat(f)), true
}
