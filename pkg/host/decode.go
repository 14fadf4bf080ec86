package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"gopkg.in/yaml.v3"
)

// BigIntTag is the YAML tag that marks a scalar as a big integer.
const BigIntTag = "!bigint"

// ValueOf converts a plain Go value into a Value. It accepts Values,
// numeric.Values, nil, bools, Go integers and floats, strings, []any and
// map[string]any (keys sorted for determinism), and json.Number.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return val, nil
	case numeric.Value:
		return NewNumber(val), nil
	case bool:
		return NewBool(val), nil
	case int:
		return NewFloat(float64(val)), nil
	case int64:
		return NewFloat(float64(val)), nil
	case float64:
		return NewFloat(val), nil
	case json.Number:
		n, err := numeric.Parse(val.String())
		if err != nil {
			return Undefined, err
		}
		return NewNumber(n), nil
	case string:
		return NewString(val), nil
	case []Value:
		return NewList(val), nil
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			hv, err := ValueOf(item)
			if err != nil {
				return Undefined, err
			}
			items[i] = hv
		}
		return NewList(items), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewOrderedMap()
		for _, k := range keys {
			hv, err := ValueOf(val[k])
			if err != nil {
				return Undefined, err
			}
			m.Set(k, hv)
		}
		return NewMap(m), nil
	}
	return Undefined, fmt.Errorf("cannot convert %T to a host value", v)
}

// FromYAML decodes a YAML or JSON document into a Value, preserving map key
// order. Integer and float scalars become Float numbers. Plain scalars in
// wire text form ("3000n", "NaN", "-Infinity") and scalars tagged !bigint
// are numbers too; quoted strings always stay strings.
func FromYAML(source []byte) (Value, error) {
	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return Undefined, fmt.Errorf("invalid YAML: %w", err)
	}
	if raw.Kind == 0 {
		return Undefined, fmt.Errorf("empty document")
	}
	return FromNode(&raw)
}

// MinExpansionBudget is the number of values any document may produce;
// larger documents get ExpansionFactor values per source node on top of it.
// Alias expansion beyond that fails.
const (
	MinExpansionBudget = 10000
	ExpansionFactor    = 10
)

// ErrExpansionLimit is returned for documents whose aliases expand past the
// budget.
var ErrExpansionLimit = errors.New("document expands to too many values")

// FromNode converts a decoded YAML node into a Value. Aliases are expanded
// within a budget derived from the size of node.
func FromNode(node *yaml.Node) (Value, error) {
	d := &decoder{budget: MinExpansionBudget + ExpansionFactor*countNodes(node)}
	return d.decode(node)
}

// countNodes counts the nodes written out in the source; alias targets are
// not followed.
func countNodes(node *yaml.Node) int {
	n := 1
	for _, c := range node.Content {
		n += countNodes(c)
	}
	return n
}

type decoder struct {
	budget int
}

func (d *decoder) decode(node *yaml.Node) (Value, error) {
	if d.budget--; d.budget < 0 {
		return Undefined, fmt.Errorf("line %d: %w", node.Line, ErrExpansionLimit)
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Undefined, fmt.Errorf("empty document")
		}
		return d.decode(node.Content[0])
	case yaml.AliasNode:
		return d.decode(node.Alias)
	case yaml.SequenceNode:
		items := make([]Value, len(node.Content))
		for i, item := range node.Content {
			v, err := d.decode(item)
			if err != nil {
				return Undefined, err
			}
			items[i] = v
		}
		return NewList(items), nil
	case yaml.MappingNode:
		m := NewOrderedMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := d.decode(node.Content[i+1])
			if err != nil {
				return Undefined, err
			}
			m.Set(node.Content[i].Value, v)
		}
		return NewMap(m), nil
	case yaml.ScalarNode:
		return scalarValue(node)
	}
	return Undefined, fmt.Errorf("line %d: unsupported YAML node", node.Line)
}

func scalarValue(node *yaml.Node) (Value, error) {
	switch node.Tag {
	case BigIntTag:
		n, err := numeric.BigIntFromText(node.Value)
		if err != nil {
			return Undefined, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return NewNumber(n), nil
	case "!!null":
		return Null, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Undefined, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return NewBool(b), nil
	case "!!int", "!!float":
		// Wire text first so that "-0" keeps its sign and "0x10" its radix.
		if n, err := numeric.Parse(node.Value); err == nil {
			return NewNumber(n), nil
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return Undefined, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return NewFloat(f), nil
	case "!!str":
		if node.Style == 0 {
			if n, err := numeric.Parse(node.Value); err == nil {
				return NewNumber(n), nil
			}
		}
		return NewString(node.Value), nil
	}
	return NewString(node.Value), nil
}
