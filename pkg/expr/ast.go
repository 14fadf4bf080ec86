package expr

import (
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
)

// Segment is one access of a path expression.
type Segment struct {
	Kind     chain.StepKind
	Property string       // StepProperty
	Key      host.Value   // StepIndex
	Args     []host.Value // StepCall
	Strict   bool
	Pos      int // position in source
}

// Path is a parsed path expression.
type Path struct {
	Source   string
	Segments []Segment
}

// Step converts the segment into a chain step.
func (s Segment) Step() chain.Step {
	var step chain.Step
	switch s.Kind {
	case chain.StepProperty:
		step = chain.Property(s.Property)
	case chain.StepIndex:
		step = chain.Index(s.Key)
	default:
		args := make([]any, len(s.Args))
		for i, a := range s.Args {
			args[i] = a
		}
		step = chain.Call(args...)
	}
	if s.Strict {
		step = step.Strict()
	}
	return step
}

// Chain builds the chain the path denotes.
func (p *Path) Chain() chain.Chain {
	steps := make([]chain.Step, len(p.Segments))
	for i, s := range p.Segments {
		steps[i] = s.Step()
	}
	return chain.Build(steps...)
}

// String renders the path in canonical form.
func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteString("root")
	for _, s := range p.Segments {
		if !s.Strict {
			sb.WriteString("?.")
		} else if s.Kind == chain.StepProperty {
			sb.WriteString(".")
		}
		switch s.Kind {
		case chain.StepProperty:
			sb.WriteString(s.Property)
		case chain.StepIndex:
			sb.WriteString("[" + literal(s.Key) + "]")
		case chain.StepCall:
			parts := make([]string, len(s.Args))
			for i, a := range s.Args {
				parts[i] = literal(a)
			}
			sb.WriteString("(" + strings.Join(parts, ", ") + ")")
		}
	}
	return sb.String()
}

// literal renders v so that the parser reads it back as the same value.
func literal(v host.Value) string {
	switch v.Type() {
	case host.TypeString:
		b, _ := v.MarshalJSON()
		return string(b)
	case host.TypeList:
		items := v.AsList()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = literal(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case host.TypeMap:
		m := v.AsMap()
		parts := make([]string, 0, m.Len())
		for _, k := range m.Keys() {
			item, _ := m.Get(k)
			parts = append(parts, literal(host.NewString(k))+": "+literal(item))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.String()
}
