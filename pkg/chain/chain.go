// Package chain implements safe navigation over property, index and call
// accesses. Evaluation walks the steps left to right and stops at the first
// link that has no value, without evaluating any later step.
package chain

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/types"
)

// StepKind is the kind of access a step performs.
type StepKind int

const (
	StepProperty StepKind = iota // .name
	StepIndex                    // [key]
	StepCall                     // (args...)
)

// String returns the kind name.
func (k StepKind) String() string {
	switch k {
	case StepProperty:
		return "property"
	case StepIndex:
		return "index"
	case StepCall:
		return "call"
	default:
		return "unknown"
	}
}

// Resolver performs lookups and calls on host values. It decides what "no
// value" means for the host representation.
type Resolver interface {
	// IsNoValue reports whether v is a null-like value that short-circuits
	// evaluation.
	IsNoValue(v any) bool

	// GetProperty returns the named property of v. A missing property should
	// be reported as a no-value result, not an error.
	GetProperty(v any, name string) (any, error)

	// GetIndex returns the element of v at key.
	GetIndex(v any, key any) (any, error)

	// Invoke calls v with args.
	Invoke(v any, args []any) (any, error)
}

// Step is one immutable link of a chain.
type Step struct {
	kind   StepKind
	name   string
	key    func() (any, error)
	args   func() ([]any, error)
	strict bool
	label  string
}

// Property creates an optional property access step.
func Property(name string) Step {
	return Step{kind: StepProperty, name: name, label: "." + name}
}

// Index creates an optional index access step with a fixed key.
func Index(key any) Step {
	return Step{
		kind:  StepIndex,
		key:   func() (any, error) { return key, nil },
		label: fmt.Sprintf("[%v]", key),
	}
}

// IndexFunc creates an index step whose key is computed only when the step
// is reached.
func IndexFunc(key func() (any, error)) Step {
	return Step{kind: StepIndex, key: key, label: "[...]"}
}

// Call creates an optional call step with fixed arguments.
func Call(args ...any) Step {
	fixed := append([]any(nil), args...)
	return Step{
		kind: StepCall,
		args: func() ([]any, error) {
			return append([]any(nil), fixed...), nil
		},
		label: fmt.Sprintf("(%d args)", len(fixed)),
	}
}

// CallFunc creates a call step whose arguments are computed only when the
// step is reached.
func CallFunc(args func() ([]any, error)) Step {
	return Step{kind: StepCall, args: args, label: "(...)"}
}

// Strict returns a copy of the step that does not short-circuit: reaching it
// with no value is a NullAccessError, like a plain member access following
// an optional one.
func (s Step) Strict() Step {
	s.strict = true
	return s
}

// Kind returns the step kind.
func (s Step) Kind() StepKind {
	return s.kind
}

// Name returns the property name of a property step.
func (s Step) Name() string {
	return s.name
}

// IsStrict reports whether the step is non-optional.
func (s Step) IsStrict() bool {
	return s.strict
}

// String renders the step in access syntax, "?." marking optional links.
func (s Step) String() string {
	prefix := "?."
	if s.strict {
		prefix = ""
		if s.kind == StepProperty {
			return s.label
		}
	}
	if s.kind == StepProperty {
		return prefix + s.name
	}
	return prefix + s.label
}

// Chain is an immutable sequence of steps. It holds no reference to the
// values it is evaluated against.
type Chain struct {
	steps []Step
}

// Build creates a chain from steps. The slice is copied.
func Build(steps ...Step) Chain {
	return Chain{steps: append([]Step(nil), steps...)}
}

// Len returns the number of steps.
func (c Chain) Len() int {
	return len(c.steps)
}

// Steps returns a copy of the steps.
func (c Chain) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// String renders the chain relative to a root written as "root".
func (c Chain) String() string {
	var sb strings.Builder
	sb.WriteString("root")
	for _, s := range c.steps {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Result is the terminal state of an evaluation: either a value or none.
type Result struct {
	value any
	ok    bool
	// Steps is the number of steps applied before evaluation finished.
	Steps int
}

// HasValue creates a result holding v.
func HasValue(v any) Result {
	return Result{value: v, ok: true}
}

// NoValue is the short-circuit result.
var NoValue = Result{}

// Value returns the held value and whether there is one.
func (r Result) Value() (any, bool) {
	return r.value, r.ok
}

// HasValue reports whether the result holds a value.
func (r Result) HasValue() bool {
	return r.ok
}

// Evaluate runs c against root. Resolver errors are returned unchanged;
// short-circuiting is not an error.
func Evaluate(root any, c Chain, r Resolver) (Result, error) {
	current := root
	for i, step := range c.steps {
		if r.IsNoValue(current) {
			if step.strict {
				return NoValue, types.NewNullAccessError(
					fmt.Sprintf("cannot access %s of a value that has none (step %d)", step, i)).
					With("step", step.String())
			}
			return Result{Steps: i}, nil
		}

		next, err := apply(step, current, r)
		if err != nil {
			return NoValue, err
		}
		current = next
	}

	if r.IsNoValue(current) {
		return Result{Steps: len(c.steps)}, nil
	}
	res := HasValue(current)
	res.Steps = len(c.steps)
	return res, nil
}

// Evaluate runs the chain against root. See the package-level Evaluate.
func (c Chain) Evaluate(root any, r Resolver) (Result, error) {
	return Evaluate(root, c, r)
}

func apply(step Step, current any, r Resolver) (any, error) {
	switch step.kind {
	case StepProperty:
		return r.GetProperty(current, step.name)
	case StepIndex:
		key, err := step.key()
		if err != nil {
			return nil, err
		}
		return r.GetIndex(current, key)
	case StepCall:
		args, err := step.args()
		if err != nil {
			return nil, err
		}
		return r.Invoke(current, args)
	default:
		return nil, fmt.Errorf("unsupported step kind: %s", step.kind)
	}
}
