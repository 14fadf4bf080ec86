package stdlib

import (
	"github.com/lemonberrylabs/numchain/pkg/host"
)

// registerObject registers Object.is.
func (r *Registry) registerObject() {
	r.Register("Object.is", objectIs)
}

// objectIs compares with same-value equality: numbers by SameValue, lists,
// maps and functions by identity.
func objectIs(args []host.Value) (host.Value, error) {
	return host.NewBool(arg(args, 0).Same(arg(args, 1))), nil
}
