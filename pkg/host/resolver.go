package host

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

// Resolver is the default chain.Resolver over host Values. Null and
// undefined are no-value. Plain Go values passed as roots, keys or
// arguments are converted with ValueOf.
type Resolver struct {
	// Strict makes missing properties a PropertyNotFound error instead of
	// undefined.
	Strict bool
}

var _ chain.Resolver = (*Resolver)(nil)

// IsNoValue reports whether v is null or undefined.
func (r *Resolver) IsNoValue(v any) bool {
	if v == nil {
		return true
	}
	hv, ok := v.(Value)
	return ok && hv.IsNullish()
}

// GetProperty returns the named property of v.
func (r *Resolver) GetProperty(v any, name string) (any, error) {
	hv, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	return r.property(hv, name)
}

// GetIndex returns v[key]. Numeric keys index lists and strings; on maps
// they are converted to their string form first.
func (r *Resolver) GetIndex(v any, key any) (any, error) {
	hv, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	hk, err := ValueOf(key)
	if err != nil {
		return nil, err
	}

	switch hv.Type() {
	case TypeList, TypeString:
		if i, ok := indexOf(hk); ok {
			return elementAt(hv, i), nil
		}
	}
	return r.property(hv, keyString(hk))
}

// Invoke calls v, which must be a function value.
func (r *Resolver) Invoke(v any, args []any) (any, error) {
	hv, err := ValueOf(v)
	if err != nil {
		return nil, err
	}
	if hv.Type() != TypeFunction {
		return nil, types.NewNotCallable(fmt.Sprintf("%s is not a function", hv.Type()))
	}
	hargs := make([]Value, len(args))
	for i, a := range args {
		if hargs[i], err = ValueOf(a); err != nil {
			return nil, err
		}
	}
	return hv.Call(hargs)
}

// Evaluate runs c against root and returns the resulting value, or
// undefined when the chain short-circuited.
func (r *Resolver) Evaluate(root Value, c chain.Chain) (Value, chain.Result, error) {
	res, err := chain.Evaluate(root, c, r)
	if err != nil {
		return Undefined, res, err
	}
	v, ok := res.Value()
	if !ok {
		return Undefined, res, nil
	}
	hv, err := ValueOf(v)
	return hv, res, err
}

func (r *Resolver) property(v Value, name string) (Value, error) {
	switch v.Type() {
	case TypeMap:
		if val, ok := v.AsMap().Get(name); ok {
			return val, nil
		}
	case TypeList:
		if name == "length" {
			return NewFloat(float64(len(v.AsList()))), nil
		}
		if i, err := strconv.Atoi(name); err == nil && strconv.Itoa(i) == name {
			return elementAt(v, i), nil
		}
	case TypeString:
		if name == "length" {
			return NewFloat(float64(len(utf16.Encode([]rune(v.AsString()))))), nil
		}
		if i, err := strconv.Atoi(name); err == nil && strconv.Itoa(i) == name {
			return elementAt(v, i), nil
		}
	case TypeFunction:
		if props := v.Properties(); props != nil {
			if val, ok := props.Get(name); ok {
				return val, nil
			}
		}
		if name == "name" {
			return NewString(v.FunctionName()), nil
		}
	}
	if r.Strict {
		return Undefined, types.NewPropertyNotFound(
			fmt.Sprintf("property %q not found on %s", name, v.Type())).With("property", name)
	}
	return Undefined, nil
}

// indexOf returns the array index denoted by a Float key.
func indexOf(key Value) (int, bool) {
	if key.Type() != TypeNumber || !key.AsNumber().IsFloat() {
		return 0, false
	}
	f := key.AsNumber().AsFloat()
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func elementAt(v Value, i int) Value {
	if i < 0 {
		return Undefined
	}
	switch v.Type() {
	case TypeList:
		items := v.AsList()
		if i < len(items) {
			return items[i]
		}
	case TypeString:
		units := utf16.Encode([]rune(v.AsString()))
		if i < len(units) {
			return NewString(string(utf16.Decode(units[i : i+1])))
		}
	}
	return Undefined
}

// keyString converts a key to a property name the way a member access does.
func keyString(key Value) string {
	if key.Type() == TypeNumber {
		return key.AsNumber().Text()
	}
	return key.String()
}

// Number builds a number value from wire text. It panics on malformed text
// and is meant for fixtures.
func Number(text string) Value {
	n, err := numeric.Parse(text)
	if err != nil {
		panic(err)
	}
	return NewNumber(n)
}
