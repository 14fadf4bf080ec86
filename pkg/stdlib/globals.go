package stdlib

import (
	"sort"
	"strings"

	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

// namespaceConstants lists the constants each namespace exposes.
var namespaceConstants = map[string][]string{
	"Math": {"PI", "E", "LN2", "LN10", "LOG2E", "LOG10E", "SQRT2", "SQRT1_2"},
	"Number": {
		"MAX_VALUE", "MIN_VALUE", "MIN_SUBNORMAL", "EPSILON",
		"MAX_SAFE_INTEGER", "MIN_SAFE_INTEGER",
		"POSITIVE_INFINITY", "NEGATIVE_INFINITY", "NaN",
	},
}

// Globals builds a document holding every registered function, grouped by
// namespace, plus the numeric constants. A namespace that is also a
// function (Number, BigInt) becomes a function value carrying the members
// as properties, so both Number("1") and Number.isNaN work in a chain.
func (r *Registry) Globals() host.Value {
	members := make(map[string]*host.OrderedMap)
	top := host.NewOrderedMap()

	for _, name := range r.Names() {
		fn := host.NewFunction(name, r.funcs[name])
		ns, member, ok := strings.Cut(name, ".")
		if !ok {
			top.Set(name, fn)
			continue
		}
		if members[ns] == nil {
			members[ns] = host.NewOrderedMap()
		}
		members[ns].Set(member, fn)
	}

	for ns, names := range namespaceConstants {
		if members[ns] == nil {
			members[ns] = host.NewOrderedMap()
		}
		for _, c := range names {
			v, _ := numeric.Constant(c)
			members[ns].Set(c, host.NewNumber(v))
		}
	}

	namespaces := make([]string, 0, len(members))
	for ns := range members {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		m := members[ns]
		if fn, ok := top.Get(ns); ok {
			top.Set(ns, fn.WithProperties(m))
			continue
		}
		top.Set(ns, host.NewMap(m))
	}

	top.Set("Infinity", host.NewNumber(numeric.Infinity))
	top.Set("NaN", host.NewNumber(numeric.NaN))
	top.Set("undefined", host.Undefined)
	return host.NewMap(top)
}
