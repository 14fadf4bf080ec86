package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

func TestParseBasicDescriptor(t *testing.T) {
	src := []byte(`
description: second prime, doubled
steps:
  - property: primes
  - index: 1
  - call: [1, 2n, "3n", null]
  - property: name
    strict: true
`)

	def, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.Description != "second prime, doubled" {
		t.Errorf("expected description, got %q", def.Description)
	}
	if len(def.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(def.Steps))
	}
	if def.Chain.Len() != 4 {
		t.Fatalf("expected chain of 4 steps, got %d", def.Chain.Len())
	}

	if def.Steps[0].Kind != chain.StepProperty || def.Steps[0].Property != "primes" {
		t.Errorf("step 0: got %+v", def.Steps[0])
	}
	if def.Steps[1].Kind != chain.StepIndex || !def.Steps[1].Key.Equal(host.NewFloat(1)) {
		t.Errorf("step 1: got %+v", def.Steps[1])
	}

	args := def.Steps[2].Args
	if len(args) != 4 {
		t.Fatalf("expected 4 call args, got %d", len(args))
	}
	if !args[1].Equal(host.NewNumber(numeric.FromInt64(2))) {
		t.Errorf("expected 2n, got %s (%s)", args[1], args[1].Type())
	}
	if args[2].Type() != host.TypeString {
		t.Errorf("quoted 3n should stay a string, got %s", args[2].Type())
	}
	if args[3].Type() != host.TypeNull {
		t.Errorf("expected null, got %s", args[3].Type())
	}

	if !def.Steps[3].Strict || !def.Chain.Steps()[3].IsStrict() {
		t.Error("expected step 3 to be strict")
	}
	if got := def.Chain.String(); got != "root?.primes?.[1]?.(4 args).name" {
		t.Errorf("chain renders as %q", got)
	}
}

func TestParseJSONDescriptor(t *testing.T) {
	src := []byte(`{"steps": [{"property": "a"}, {"index": "b"}, {"call": null}]}`)

	def, err := Parse(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(def.Steps))
	}
	if !def.Steps[1].Key.Equal(host.NewString("b")) {
		t.Errorf("expected string key, got %s", def.Steps[1].Key)
	}
	if def.Steps[2].Kind != chain.StepCall || len(def.Steps[2].Args) != 0 {
		t.Errorf("expected call without args, got %+v", def.Steps[2])
	}
}

func TestParsePathDescriptor(t *testing.T) {
	def, err := Parse([]byte("description: by path\npath: students[1]?.name\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(def.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(def.Steps))
	}
	if def.Steps[1].Kind != chain.StepIndex || !def.Steps[1].Strict || def.Steps[0].Strict || def.Steps[2].Strict {
		t.Errorf("unexpected steps: %+v", def.Steps)
	}
	if got := def.Chain.String(); got != "root?.students[1]?.name" {
		t.Errorf("chain renders as %q", got)
	}
}

func TestParsedChainEvaluates(t *testing.T) {
	def, err := Parse([]byte(`
steps:
  - property: students
  - index: 0
  - property: name
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root, err := host.FromYAML([]byte(`students: [{name: Max Tsh}, {name: Triple H}]`))
	if err != nil {
		t.Fatal(err)
	}
	got, res, err := (&host.Resolver{}).Evaluate(root, def.Chain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.HasValue() || !got.Equal(host.NewString("Max Tsh")) {
		t.Errorf("got %s", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"empty", "", "empty chain descriptor"},
		{"not a mapping", "- property: a", "must be a mapping"},
		{"no steps", "description: x", "must have 'steps' or 'path'"},
		{"steps and path", "steps: []\npath: a", "mutually exclusive"},
		{"bad path", "path: a[", "path (line 1)"},
		{"path not a string", "path: [a]", "must be a string"},
		{"steps not a list", "steps: {property: a}", "must be a list"},
		{"unknown field", "steps: []\nextra: 1", "unknown field 'extra'"},
		{"two accesses", "steps:\n  - property: a\n    index: 0", "exactly one"},
		{"no access", "steps:\n  - strict: true", "exactly one"},
		{"unknown step field", "steps:\n  - property: a\n    optional: true", "unknown step field 'optional'"},
		{"bad strict", "steps:\n  - property: a\n    strict: maybe", "strict must be a boolean"},
		{"bad args", "steps:\n  - call: 5", "must be a list"},
		{"bad bigint", "steps:\n  - index: !bigint 1.5", "step 0"},
		{"invalid yaml", "steps: [", "invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestParseRejectsOversize(t *testing.T) {
	src := make([]byte, MaxSourceSize+1)
	if _, err := Parse(src); err == nil {
		t.Fatal("expected size error")
	}
}

func TestParseRejectsTooManySteps(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("steps:\n")
	for i := 0; i <= MaxSteps; i++ {
		sb.WriteString("  - property: a\n")
	}
	_, err := Parse([]byte(sb.String()))
	if err == nil || !strings.Contains(err.Error(), "too many steps") {
		t.Fatalf("got %v, want too many steps", err)
	}
}
