package stdlib

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
	"github.com/lemonberrylabs/numchain/pkg/types"
)

// registerJSON registers JSON.* functions.
func (r *Registry) registerJSON() {
	r.Register("JSON.parse", jsonParse)
	r.Register("JSON.stringify", jsonStringify)
}

func jsonParse(args []host.Value) (host.Value, error) {
	if err := requireArgs("JSON.parse", args, 1, 1); err != nil {
		return host.Undefined, err
	}
	input := toText(args[0])
	if !json.Valid([]byte(input)) {
		return host.Undefined, types.NewParseError("JSON.parse: invalid JSON")
	}
	// JSON is a subset of YAML; decoding through YAML keeps key order.
	v, err := host.FromYAML([]byte(input))
	if err != nil {
		return host.Undefined, types.NewParseError(fmt.Sprintf("JSON.parse: %v", err))
	}
	return v, nil
}

// jsonStringify writes numbers as JSON numbers: non-finite floats become
// null and big integers cannot be serialized.
func jsonStringify(args []host.Value) (host.Value, error) {
	if err := requireArgs("JSON.stringify", args, 1, 1); err != nil {
		return host.Undefined, err
	}
	var sb strings.Builder
	if err := stringify(&sb, args[0]); err != nil {
		return host.Undefined, err
	}
	return host.NewString(sb.String()), nil
}

func stringify(sb *strings.Builder, v host.Value) error {
	switch v.Type() {
	case host.TypeNumber:
		n := v.AsNumber()
		if n.IsBigInt() {
			return types.NewTypeMismatchError("JSON.stringify: cannot serialize a bigint")
		}
		if !numeric.IsFinite(n) {
			sb.WriteString("null")
			return nil
		}
		sb.WriteString(n.Text())
	case host.TypeString:
		b, _ := json.Marshal(v.AsString())
		sb.Write(b)
	case host.TypeList:
		sb.WriteByte('[')
		for i, item := range v.AsList() {
			if i > 0 {
				sb.WriteByte(',')
			}
			if item.Type() == host.TypeUndefined || item.Type() == host.TypeFunction {
				sb.WriteString("null")
				continue
			}
			if err := stringify(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case host.TypeMap:
		m := v.AsMap()
		sb.WriteByte('{')
		first := true
		for _, k := range m.Keys() {
			item, _ := m.Get(k)
			if item.Type() == host.TypeUndefined || item.Type() == host.TypeFunction {
				continue
			}
			if !first {
				sb.WriteByte(',')
			}
			first = false
			key, _ := json.Marshal(k)
			sb.Write(key)
			sb.WriteByte(':')
			if err := stringify(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		sb.Write(b)
	}
	return nil
}
