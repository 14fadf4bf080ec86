package expr

import (
	"strings"
	"testing"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/stdlib"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

func TestParsePathCanonicalForm(t *testing.T) {
	tests := []struct {
		input string
		want  string
		steps int
	}{
		{"", "root", 0},
		{"root", "root", 0},
		{"students?.[0]?.name", "root?.students?.[0]?.name", 3},
		{"root?.students?.[0]?.name", "root?.students?.[0]?.name", 3},
		{"root.a[1n]", "root.a[1n]", 2},
		{"Math.max?.(1, 2n, 'x')", `root?.Math.max?.(1, 2n, "x")`, 3},
		{"f(-0, [1, 2], {k: null, 'a b': undefined})", `root?.f(-0, [1, 2], {"k": null, "a b": undefined})`, 2},
		{"a [ 0x10 ] ?. b", "root?.a[16]?.b", 3},
		{"a?.[-Infinity]?.[NaN]", "root?.a?.[-Infinity]?.[NaN]", 3},
		{"a?.()", "root?.a?.()", 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			path, err := ParsePath(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := path.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if n := path.Chain().Len(); n != tt.steps {
				t.Errorf("got %d steps, want %d", n, tt.steps)
			}

			again, err := ParsePath(path.String())
			if err != nil {
				t.Fatalf("canonical form does not parse: %v", err)
			}
			if again.String() != path.String() {
				t.Errorf("canonical form changed: %q -> %q", path, again)
			}
		})
	}
}

func TestStringKeysRoundTrip(t *testing.T) {
	keys := []string{"<a&b>", "tab\there", "line\nbreak", "\x01\x1f", "quote\"s", "back\\slash", "caf\u00e9", "\U0001F600", "\u2028"}

	for _, key := range keys {
		path := &Path{Segments: []Segment{{Kind: chain.StepIndex, Key: host.NewString(key)}}}
		rendered := path.String()
		again, err := ParsePath(rendered)
		if err != nil {
			t.Fatalf("%q does not parse: %v", rendered, err)
		}
		if len(again.Segments) != 1 || !again.Segments[0].Key.Equal(host.NewString(key)) {
			t.Errorf("key %q rendered as %s came back as %v", key, rendered, again.Segments)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`a["\u00e9"]`, "\u00e9"},
		{`a["\ud83d\ude00"]`, "\U0001F600"},
		{`a["\ud83d"]`, "\uFFFD"},
		{`a["\b\f\/"]`, "\b\f/"},
		{`a['it\'s']`, "it's"},
	}
	for _, tt := range tests {
		path, err := ParsePath(tt.input)
		if err != nil {
			t.Fatalf("%s: %v", tt.input, err)
		}
		if got := path.Segments[1].Key; !got.Equal(host.NewString(tt.want)) {
			t.Errorf("%s: got %v, want %q", tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{`a["\u12"]`, `a["\uzzzz"]`, `a["\u+123"]`} {
		if _, err := ParsePath(bad); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func TestParsePathSegments(t *testing.T) {
	path, err := ParsePath(`root?.a.b[1_000n]?.("s\n", true)`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	segs := path.Segments
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}

	if segs[0].Kind != chain.StepProperty || segs[0].Property != "a" || segs[0].Strict {
		t.Errorf("segment 0: %+v", segs[0])
	}
	if segs[1].Kind != chain.StepProperty || segs[1].Property != "b" || !segs[1].Strict {
		t.Errorf("segment 1: %+v", segs[1])
	}
	if segs[2].Kind != chain.StepIndex || !segs[2].Key.Equal(host.NewNumber(numeric.FromInt64(1000))) || !segs[2].Strict {
		t.Errorf("segment 2: %+v", segs[2])
	}
	if segs[3].Kind != chain.StepCall || segs[3].Strict || len(segs[3].Args) != 2 {
		t.Fatalf("segment 3: %+v", segs[3])
	}
	if !segs[3].Args[0].Equal(host.NewString("s\n")) || !segs[3].Args[1].Equal(host.NewBool(true)) {
		t.Errorf("unexpected args: %v", segs[3].Args)
	}

	steps := path.Chain().Steps()
	if steps[0].IsStrict() || !steps[1].IsStrict() {
		t.Error("step strictness not carried into the chain")
	}
}

func TestParsePathErrors(t *testing.T) {
	tests := []string{
		"a..b",
		"a?.",
		"a?.1",
		"a[",
		"a[b]",
		"a(1,",
		"a(1 2)",
		"a?b",
		`a["x`,
		"a[1.5n]",
		"a[01]",
		"a[-'x']",
		"a[{1: 2}]",
		"a b",
		strings.Repeat("a", MaxPathLength+1),
	}

	for _, input := range tests {
		name := input
		if len(name) > 20 {
			name = name[:20]
		}
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePath(input); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}

func school(t *testing.T) host.Value {
	t.Helper()
	root, err := host.FromYAML([]byte(`
students:
  - name: Max Tsh
    age: 12
  - name: Triple H
    age: 13n
`))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func TestEvaluate(t *testing.T) {
	root := school(t)

	tests := []struct {
		input    string
		want     host.Value
		hasValue bool
	}{
		{"students?.[1]?.name", host.NewString("Triple H"), true},
		{"students?.[1]?.age", host.NewNumber(numeric.FromInt64(13)), true},
		{"students?.length", host.NewFloat(2), true},
		{"students?.[5]?.name", host.Undefined, false},
		{"teachers?.[0].name", host.Undefined, false},
		{"students[0].name.length", host.NewFloat(7), true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, res, err := Evaluate(tt.input, root, nil)
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if res.HasValue() != tt.hasValue {
				t.Fatalf("hasValue = %v, want %v", res.HasValue(), tt.hasValue)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateStrictSteps(t *testing.T) {
	root := school(t)

	_, _, err := Evaluate("students[5].name", root, nil)
	if !types.HasTag(err, types.TagNullAccessError) {
		t.Errorf("got %v, want NullAccessError", err)
	}

	_, _, err = Evaluate("students?.[0]?.grade", root, &host.Resolver{Strict: true})
	if !types.HasTag(err, types.TagPropertyNotFound) {
		t.Errorf("got %v, want PropertyNotFound", err)
	}

	_, _, err = Evaluate("students?.[0]?.name?.()", root, nil)
	if !types.HasTag(err, types.TagNotCallable) {
		t.Errorf("got %v, want NotCallable", err)
	}

	if _, _, err := Evaluate("students[", root, nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestEvaluateAgainstGlobals(t *testing.T) {
	globals := stdlib.NewRegistry().Globals()

	tests := []struct {
		input string
		want  string
	}{
		{"Math.max(1, 5, 3)", "5"},
		{"Math?.hypot?.(3, 4)", "5"},
		{"BigInt.asUintN(64, -1n)", "18446744073709551615n"},
		{"Number.MAX_SAFE_INTEGER", "9007199254740991"},
		{"Number('0x1f')", "31"},
		{"parseInt('  42px')", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, res, err := Evaluate(tt.input, globals, nil)
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if !res.HasValue() || got.Type() != host.TypeNumber || got.String() != tt.want {
				t.Errorf("got %v (%s), want %s", got, got.Type(), tt.want)
			}
		})
	}

	got, res, err := Evaluate("Math.nope?.(1)", globals, nil)
	if err != nil || res.HasValue() || got.Type() != host.TypeUndefined {
		t.Errorf("missing method should short-circuit, got %v, %v", got, err)
	}
}
