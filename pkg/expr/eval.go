package expr

import (
	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
)

// Evaluate parses a path expression and evaluates it against root. A nil
// resolver uses the default lenient host resolver.
func Evaluate(input string, root host.Value, r *host.Resolver) (host.Value, chain.Result, error) {
	path, err := ParsePath(input)
	if err != nil {
		return host.Undefined, chain.NoValue, err
	}
	if r == nil {
		r = &host.Resolver{}
	}
	return r.Evaluate(root, path.Chain())
}
