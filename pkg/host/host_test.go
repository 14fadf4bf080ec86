package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

const schoolYAML = `
name: Madison Square Garden
students:
  first:
    name: Max Tsh
    age: 26
  second:
    name: Triple H
    age: 56
primes: [2, 3, 5, 7]
big: 3000n
tagged: !bigint 0xff
quoted: "3000n"
nothing: null
negzero: -0
inf: .inf
`

func loadSchool(t *testing.T) Value {
	t.Helper()
	v, err := FromYAML([]byte(schoolYAML))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	return v
}

func TestFromYAMLScalars(t *testing.T) {
	root := loadSchool(t).AsMap()

	tests := []struct {
		key  string
		want Value
	}{
		{"name", NewString("Madison Square Garden")},
		{"big", NewNumber(numeric.FromInt64(3000))},
		{"tagged", NewNumber(numeric.FromInt64(255))},
		{"quoted", NewString("3000n")},
		{"nothing", Null},
		{"inf", NewNumber(numeric.Infinity)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := root.Get(tt.key)
			if !ok {
				t.Fatalf("key %s missing", tt.key)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s (%s), want %s (%s)", got, got.Type(), tt.want, tt.want.Type())
			}
		})
	}

	nz, _ := root.Get("negzero")
	if !numeric.SameValue(nz.AsNumber(), numeric.Float(math.Copysign(0, -1))) {
		t.Errorf("negzero = %s, want -0", nz)
	}
	if got := root.Keys(); got[0] != "name" || got[1] != "students" {
		t.Errorf("key order not preserved: %v", got)
	}
}

func TestFromYAMLErrors(t *testing.T) {
	for _, src := range []string{"", "a: [1, 2", "x: !bigint 1.5"} {
		if _, err := FromYAML([]byte(src)); err == nil {
			t.Errorf("FromYAML(%q): expected error", src)
		}
	}
}

func TestFromYAMLAliasExpansion(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("a0: &a0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&sb, "a%d: &a%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "*a%d", i-1)
		}
		sb.WriteString("]\n")
	}

	_, err := FromYAML([]byte(sb.String()))
	if !errors.Is(err, ErrExpansionLimit) {
		t.Fatalf("got %v, want ErrExpansionLimit", err)
	}

	v, err := FromYAML([]byte("base: &b {rate: 2n}\nfirst: *b\nsecond: *b\n"))
	if err != nil {
		t.Fatalf("small alias use failed: %v", err)
	}
	second, _ := v.AsMap().Get("second")
	rate, _ := second.AsMap().Get("rate")
	if !rate.Equal(NewNumber(numeric.FromInt64(2))) {
		t.Errorf("alias not expanded: %v", second)
	}
}

func TestValueOf(t *testing.T) {
	var decoded any
	if err := json.Unmarshal([]byte(`{"b": [1, "x", true, null], "a": 2.5}`), &decoded); err != nil {
		t.Fatal(err)
	}
	v, err := ValueOf(decoded)
	if err != nil {
		t.Fatalf("ValueOf: %v", err)
	}
	if got := v.String(); got != "{a: 2.5, b: [1, x, true, null]}" {
		t.Errorf("got %s", got)
	}

	if _, err := ValueOf(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestMarshalJSON(t *testing.T) {
	m := NewOrderedMap()
	m.Set("z", NewNumber(numeric.FromInt64(5)))
	m.Set("a", NewList([]Value{NewNumber(numeric.NaN), Undefined, NewBool(false)}))
	m.Set("f", NewFunction("f", nil))

	b, err := json.Marshal(NewMap(m))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"z":"5n","a":["NaN",null,false],"f":null}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestEqual(t *testing.T) {
	if NewNumber(numeric.NaN).Equal(NewNumber(numeric.NaN)) {
		t.Error("NaN should not equal NaN")
	}
	if !NewFloat(0).Equal(NewFloat(math.Copysign(0, -1))) {
		t.Error("+0 should equal -0")
	}
	if NewFloat(1).Equal(NewNumber(numeric.FromInt64(1))) {
		t.Error("1 should not equal 1n")
	}
	if Null.Equal(Undefined) {
		t.Error("null should not equal undefined")
	}
}

func TestResolverNavigation(t *testing.T) {
	root := loadSchool(t)
	greet := NewFunction("greet", func(args []Value) (Value, error) {
		return NewString("hello " + args[0].String()), nil
	})
	root.AsMap().Set("greet", greet)

	tests := []struct {
		name  string
		chain chain.Chain
		want  Value
	}{
		{"nested property", chain.Build(chain.Property("students"), chain.Property("first"), chain.Property("name")), NewString("Max Tsh")},
		{"list index", chain.Build(chain.Property("primes"), chain.Index(2)), NewFloat(5)},
		{"host number index", chain.Build(chain.Property("primes"), chain.Index(NewFloat(3))), NewFloat(7)},
		{"bigint index", chain.Build(chain.Property("primes"), chain.Index(numeric.FromInt64(1))), NewFloat(3)},
		{"string index", chain.Build(chain.Property("primes"), chain.Index("0")), NewFloat(2)},
		{"list length", chain.Build(chain.Property("primes"), chain.Property("length")), NewFloat(4)},
		{"string length", chain.Build(chain.Property("name"), chain.Property("length")), NewFloat(21)},
		{"string char", chain.Build(chain.Property("name"), chain.Index(0)), NewString("M")},
		{"call", chain.Build(chain.Property("greet"), chain.Call("world")), NewString("hello world")},
		{"function name", chain.Build(chain.Property("greet"), chain.Property("name")), NewString("greet")},
	}

	r := &Resolver{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res, err := r.Evaluate(root, tt.chain)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.HasValue() {
				t.Fatal("expected a value")
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolverNoValue(t *testing.T) {
	root := loadSchool(t)
	tests := []struct {
		name  string
		chain chain.Chain
	}{
		{"missing", chain.Build(chain.Property("contents"), chain.Property("ch01"))},
		{"null member", chain.Build(chain.Property("nothing"), chain.Property("x"))},
		{"out of range", chain.Build(chain.Property("primes"), chain.Index(4))},
		{"negative index", chain.Build(chain.Property("primes"), chain.Index(-1))},
		{"fractional index", chain.Build(chain.Property("primes"), chain.Index(1.5))},
		{"property of number", chain.Build(chain.Property("big"), chain.Property("x"))},
	}

	r := &Resolver{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, res, err := r.Evaluate(root, tt.chain)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.HasValue() || got.Type() != TypeUndefined {
				t.Errorf("expected no value, got %s", got)
			}
		})
	}
}

func TestResolverErrors(t *testing.T) {
	root := loadSchool(t)

	_, _, err := (&Resolver{Strict: true}).Evaluate(root, chain.Build(chain.Property("students"), chain.Property("third")))
	if !types.HasTag(err, types.TagPropertyNotFound) {
		t.Errorf("strict resolver: got %v, want PropertyNotFound", err)
	}

	_, _, err = (&Resolver{}).Evaluate(root, chain.Build(chain.Property("name"), chain.Call()))
	if !types.HasTag(err, types.TagNotCallable) {
		t.Errorf("call on string: got %v, want NotCallable", err)
	}

	// The null link short-circuits before the strict resolver can complain.
	got, res, err := (&Resolver{Strict: true}).Evaluate(root, chain.Build(chain.Property("nothing"), chain.Property("x")))
	if err != nil || res.HasValue() || got.Type() != TypeUndefined {
		t.Errorf("got %s, %v; want no value", got, err)
	}
}

func TestSame(t *testing.T) {
	list := NewList([]Value{NewFloat(1)})
	copied := list
	if !list.Same(copied) {
		t.Error("copies of a list are the same list")
	}
	if list.Same(NewList([]Value{NewFloat(1)})) {
		t.Error("equal lists built separately are not the same")
	}
	if !list.Equal(NewList([]Value{NewFloat(1)})) {
		t.Error("equal lists should still be Equal")
	}
	if !NewFloat(math.NaN()).Same(NewFloat(math.NaN())) || NewFloat(0).Same(NewFloat(math.Copysign(0, -1))) {
		t.Error("numbers compare with SameValue")
	}
	m := NewOrderedMap()
	if !NewMap(m).Same(NewMap(m)) || NewMap(m).Same(NewMap(NewOrderedMap())) {
		t.Error("maps compare by instance")
	}
}
