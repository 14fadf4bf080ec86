// Package parser converts YAML/JSON chain descriptors into chains.
//
// A descriptor is a mapping with an optional description and either a list
// of steps, each naming exactly one access:
//
//	description: first student's name
//	steps:
//	  - property: students
//	  - index: 0
//	  - call: [1, 2n]
//	  - property: name
//	    strict: true
//
// or a path expression:
//
//	path: students?.[0]?.(1, 2n).name
package parser

import (
	"fmt"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/expr"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"gopkg.in/yaml.v3"
)

// MaxSteps is the maximum number of steps in one descriptor.
const MaxSteps = 256

// MaxSourceSize is the maximum descriptor source size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// ParseError represents an error encountered during descriptor parsing.
type ParseError struct {
	Message  string
	Location string // e.g., "step 2 (line 5)"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("parse error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Definition is a parsed chain descriptor.
type Definition struct {
	Description string
	Steps       []StepSpec
	Chain       chain.Chain
}

// StepSpec is the decoded form of one descriptor step.
type StepSpec struct {
	Kind     chain.StepKind
	Property string
	Key      host.Value
	Args     []host.Value
	Strict   bool
}

// Parse parses a YAML or JSON chain descriptor.
func Parse(source []byte) (*Definition, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("descriptor size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}

	// The root node is a document node containing the actual content
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty chain descriptor"}
	}

	rootNode := raw.Content[0]
	if rootNode.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "chain descriptor must be a mapping"}
	}

	def := &Definition{}
	var stepsNode, pathNode *yaml.Node
	for i := 0; i+1 < len(rootNode.Content); i += 2 {
		key := rootNode.Content[i].Value
		val := rootNode.Content[i+1]
		switch key {
		case "description":
			def.Description = val.Value
		case "steps":
			stepsNode = val
		case "path":
			pathNode = val
		default:
			return nil, &ParseError{
				Message:  fmt.Sprintf("unknown field '%s'", key),
				Location: fmt.Sprintf("line %d", rootNode.Content[i].Line),
			}
		}
	}

	var specs []StepSpec
	var err error
	switch {
	case stepsNode != nil && pathNode != nil:
		return nil, &ParseError{Message: "'steps' and 'path' are mutually exclusive"}
	case stepsNode != nil:
		specs, err = parseSteps(stepsNode)
	case pathNode != nil:
		specs, err = parsePath(pathNode)
	default:
		return nil, &ParseError{Message: "chain descriptor must have 'steps' or 'path'"}
	}
	if err != nil {
		return nil, err
	}
	def.Steps = specs
	def.Chain = Build(specs)
	return def, nil
}

// Build turns decoded steps into a chain.
func Build(specs []StepSpec) chain.Chain {
	steps := make([]chain.Step, len(specs))
	for i, spec := range specs {
		var s chain.Step
		switch spec.Kind {
		case chain.StepProperty:
			s = chain.Property(spec.Property)
		case chain.StepIndex:
			s = chain.Index(spec.Key)
		case chain.StepCall:
			args := make([]any, len(spec.Args))
			for j, a := range spec.Args {
				args[j] = a
			}
			s = chain.Call(args...)
		}
		if spec.Strict {
			s = s.Strict()
		}
		steps[i] = s
	}
	return chain.Build(steps...)
}

// parseSteps parses the steps sequence.
func parseSteps(node *yaml.Node) ([]StepSpec, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{
			Message:  "'steps' must be a list",
			Location: fmt.Sprintf("line %d", node.Line),
		}
	}
	if len(node.Content) > MaxSteps {
		return nil, &ParseError{Message: fmt.Sprintf("too many steps: %d (max %d)", len(node.Content), MaxSteps)}
	}

	specs := make([]StepSpec, 0, len(node.Content))
	for i, item := range node.Content {
		spec, err := parseStep(item, fmt.Sprintf("step %d (line %d)", i, item.Line))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// parsePath parses a path expression scalar.
func parsePath(node *yaml.Node) ([]StepSpec, error) {
	loc := fmt.Sprintf("path (line %d)", node.Line)
	if node.Kind != yaml.ScalarNode {
		return nil, &ParseError{Message: "'path' must be a string", Location: loc}
	}
	path, err := expr.ParsePath(node.Value)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Location: loc}
	}
	if len(path.Segments) > MaxSteps {
		return nil, &ParseError{Message: fmt.Sprintf("too many steps: %d (max %d)", len(path.Segments), MaxSteps)}
	}

	specs := make([]StepSpec, len(path.Segments))
	for i, seg := range path.Segments {
		specs[i] = StepSpec{
			Kind:     seg.Kind,
			Property: seg.Property,
			Key:      seg.Key,
			Args:     seg.Args,
			Strict:   seg.Strict,
		}
	}
	return specs, nil
}

// parseStep parses a single step mapping.
func parseStep(node *yaml.Node, loc string) (StepSpec, error) {
	if node.Kind != yaml.MappingNode {
		return StepSpec{}, &ParseError{Message: "step must be a mapping", Location: loc}
	}

	var spec StepSpec
	accesses := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch key {
		case "property":
			if val.Kind != yaml.ScalarNode {
				return StepSpec{}, &ParseError{Message: "property must be a string", Location: loc}
			}
			spec.Kind = chain.StepProperty
			spec.Property = val.Value
			accesses++
		case "index":
			if val.Kind != yaml.ScalarNode {
				return StepSpec{}, &ParseError{Message: "index must be a scalar", Location: loc}
			}
			k, err := host.FromNode(val)
			if err != nil {
				return StepSpec{}, &ParseError{Message: err.Error(), Location: loc}
			}
			spec.Kind = chain.StepIndex
			spec.Key = k
			accesses++
		case "call":
			args, err := parseCallArgs(val, loc)
			if err != nil {
				return StepSpec{}, err
			}
			spec.Kind = chain.StepCall
			spec.Args = args
			accesses++
		case "strict":
			var strict bool
			if err := val.Decode(&strict); err != nil {
				return StepSpec{}, &ParseError{Message: "strict must be a boolean", Location: loc}
			}
			spec.Strict = strict
		default:
			return StepSpec{}, &ParseError{Message: fmt.Sprintf("unknown step field '%s'", key), Location: loc}
		}
	}

	if accesses != 1 {
		return StepSpec{}, &ParseError{
			Message:  "step must have exactly one of 'property', 'index' or 'call'",
			Location: loc,
		}
	}
	return spec, nil
}

// parseCallArgs parses call arguments: a list, or null for no arguments.
func parseCallArgs(node *yaml.Node, loc string) ([]host.Value, error) {
	if node.Kind == yaml.ScalarNode && (node.Tag == "!!null" || node.Value == "") {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "call arguments must be a list", Location: loc}
	}
	args := make([]host.Value, len(node.Content))
	for i, item := range node.Content {
		v, err := host.FromNode(item)
		if err != nil {
			return nil, &ParseError{Message: err.Error(), Location: loc}
		}
		args[i] = v
	}
	return args, nil
}
