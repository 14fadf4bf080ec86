// Package host implements the host value representation that chains are
// evaluated against: undefined, null, bool, number, string, list, map and
// function values, plus the default chain resolver over them.
package host

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

// ValueType represents the type of a host value.
type ValueType int

const (
	TypeUndefined ValueType = iota
	TypeNull
	TypeBool     // bool
	TypeNumber   // numeric.Value (either domain)
	TypeString   // string
	TypeList     // []Value
	TypeMap      // ordered map of string -> Value
	TypeFunction // Function
)

// String returns the type name as reported by typeof, except that null
// reports "null".
func (t ValueType) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeList:
		return "list"
	case TypeMap:
		return "object"
	case TypeFunction:
		return "function"
	default:
		return "unknown"
	}
}

// Function is a callable host value.
type Function func(args []Value) (Value, error)

// Value is a host value. It uses a tagged union approach.
type Value struct {
	typ       ValueType
	boolVal   bool
	numVal    numeric.Value
	stringVal string
	listVal   *[]Value // shared by copies; its address is the list identity
	mapVal    *OrderedMap // entries of a map, or properties of a function
	funcVal   Function
	funcName  string
}

// OrderedMap maintains insertion order for map keys.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap creates a new empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{
		keys:   make([]string, 0),
		values: make(map[string]Value),
	}
}

// NewOrderedMapFromPairs creates an ordered map from alternating key-value pairs.
func NewOrderedMapFromPairs(pairs ...interface{}) *OrderedMap {
	m := NewOrderedMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		val, ok := pairs[i+1].(Value)
		if !ok {
			continue
		}
		m.Set(key, val)
	}
	return m
}

// Get retrieves a value by key. Returns the value and whether it exists.
func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set adds or updates a key-value pair, preserving insertion order.
func (m *OrderedMap) Set(key string, val Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Undefined is the singleton undefined value.
var Undefined = Value{typ: TypeUndefined}

// Null is the singleton null value.
var Null = Value{typ: TypeNull}

// NewBool creates a boolean value.
func NewBool(v bool) Value {
	return Value{typ: TypeBool, boolVal: v}
}

// NewNumber wraps a numeric value of either domain.
func NewNumber(v numeric.Value) Value {
	return Value{typ: TypeNumber, numVal: v}
}

// NewFloat creates a number value in the float domain.
func NewFloat(v float64) Value {
	return NewNumber(numeric.Float(v))
}

// NewString creates a string value.
func NewString(v string) Value {
	return Value{typ: TypeString, stringVal: v}
}

// NewList creates a list value from a slice of values.
func NewList(v []Value) Value {
	return Value{typ: TypeList, listVal: &v}
}

// NewMap creates a map value from an OrderedMap.
func NewMap(v *OrderedMap) Value {
	return Value{typ: TypeMap, mapVal: v}
}

// NewFunction creates a named function value.
func NewFunction(name string, fn Function) Value {
	return Value{typ: TypeFunction, funcVal: fn, funcName: name}
}

// WithProperties returns a copy of a function value that exposes the
// entries of props as its properties. Panics if not a function.
func (v Value) WithProperties(props *OrderedMap) Value {
	if v.typ != TypeFunction {
		panic(fmt.Sprintf("WithProperties called on %s value", v.typ))
	}
	v.mapVal = props
	return v
}

// NewMapFromGoMap creates a map value from a Go map (keys sorted alphabetically for determinism).
func NewMapFromGoMap(m map[string]Value) Value {
	om := NewOrderedMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		om.Set(k, m[k])
	}
	return Value{typ: TypeMap, mapVal: om}
}

// Type returns the value's type.
func (v Value) Type() ValueType {
	return v.typ
}

// IsNullish returns true for null and undefined.
func (v Value) IsNullish() bool {
	return v.typ == TypeNull || v.typ == TypeUndefined
}

// AsBool returns the boolean value. Panics if not a bool.
func (v Value) AsBool() bool {
	if v.typ != TypeBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.typ))
	}
	return v.boolVal
}

// AsNumber returns the numeric value. Panics if not a number.
func (v Value) AsNumber() numeric.Value {
	if v.typ != TypeNumber {
		panic(fmt.Sprintf("AsNumber called on %s value", v.typ))
	}
	return v.numVal
}

// AsString returns the string value. Panics if not a string.
func (v Value) AsString() string {
	if v.typ != TypeString {
		panic(fmt.Sprintf("AsString called on %s value", v.typ))
	}
	return v.stringVal
}

// AsList returns the list value. Panics if not a list.
func (v Value) AsList() []Value {
	if v.typ != TypeList {
		panic(fmt.Sprintf("AsList called on %s value", v.typ))
	}
	return *v.listVal
}

// AsMap returns the map value. Panics if not a map.
func (v Value) AsMap() *OrderedMap {
	if v.typ != TypeMap {
		panic(fmt.Sprintf("AsMap called on %s value", v.typ))
	}
	return v.mapVal
}

// FunctionName returns the name a function value was created with.
func (v Value) FunctionName() string {
	return v.funcName
}

// Properties returns the properties of a function value, or nil.
func (v Value) Properties() *OrderedMap {
	if v.typ != TypeFunction {
		return nil
	}
	return v.mapVal
}

// Call invokes a function value. Panics if not a function.
func (v Value) Call(args []Value) (Value, error) {
	if v.typ != TypeFunction {
		panic(fmt.Sprintf("Call called on %s value", v.typ))
	}
	return v.funcVal(args)
}

// Same reports whether v and other are the same value without looking
// inside containers: lists and maps must be the same instance, functions
// the same function with the same properties. Numbers compare with
// numeric.SameValue.
func (v Value) Same(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeNumber:
		return numeric.SameValue(v.numVal, other.numVal)
	case TypeList:
		return v.listVal == other.listVal
	case TypeMap:
		return v.mapVal == other.mapVal
	case TypeFunction:
		return v.funcName == other.funcName && v.mapVal == other.mapVal
	}
	return v.Equal(other)
}

// Equal tests deep equality. Numbers use ordinary equality, so NaN is not
// equal to itself and +0 equals -0. Functions are never equal.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBool:
		return v.boolVal == other.boolVal
	case TypeNumber:
		return numeric.StrictEqual(v.numVal, other.numVal)
	case TypeString:
		return v.stringVal == other.stringVal
	case TypeList:
		a, b := *v.listVal, *other.listVal
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if v.mapVal.Len() != other.mapVal.Len() {
			return false
		}
		for _, k := range v.mapVal.Keys() {
			ov, ok := other.mapVal.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.mapVal.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// String returns a human-readable representation of the value for debugging.
func (v Value) String() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case TypeNumber:
		return v.numVal.String()
	case TypeString:
		return v.stringVal
	case TypeList:
		parts := make([]string, len(*v.listVal))
		for i, item := range *v.listVal {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TypeMap:
		parts := make([]string, 0, v.mapVal.Len())
		for _, k := range v.mapVal.Keys() {
			val, _ := v.mapVal.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TypeFunction:
		return fmt.Sprintf("function %s()", v.funcName)
	}
	return "<unknown>"
}

// MarshalJSON converts a Value to JSON. Numbers are written as wire text
// strings so that NaN, the infinities, -0 and big integers survive; undefined
// and functions become null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeUndefined, TypeNull, TypeFunction:
		return []byte("null"), nil
	case TypeBool:
		if v.boolVal {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case TypeNumber:
		return v.numVal.MarshalJSON()
	case TypeString:
		return json.Marshal(v.stringVal)
	case TypeList:
		items := make([]json.RawMessage, len(*v.listVal))
		for i, item := range *v.listVal {
			b, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			items[i] = b
		}
		return json.Marshal(items)
	case TypeMap:
		// Use ordered iteration
		buf := []byte{'{'}
		for i, k := range v.mapVal.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, keyBytes...)
			buf = append(buf, ':')
			val, _ := v.mapVal.Get(k)
			valBytes, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, valBytes...)
		}
		buf = append(buf, '}')
		return buf, nil
	}
	return nil, fmt.Errorf("cannot marshal unknown type %d", v.typ)
}
