// Package stdlib implements the built-in numeric helper functions
// (Number.*, Math.*, BigInt, Object.is, JSON.*) and the globals document
// that exposes them to chains.
package stdlib

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lemonberrylabs/numchain/pkg/host"
)

// ErrUnknownFunction is returned by CallFunction for unregistered names.
var ErrUnknownFunction = errors.New("unknown function")

// StdlibFunc is a standard library function signature.
type StdlibFunc = host.Function

// Registry holds all standard library functions by dotted name.
type Registry struct {
	funcs map[string]StdlibFunc
}

// NewRegistry creates a new stdlib registry with all built-in functions registered.
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]StdlibFunc),
	}
	r.registerNumber()
	r.registerMath()
	r.registerBigInt()
	r.registerObject()
	r.registerJSON()
	return r
}

// CallFunction calls the named function.
func (r *Registry) CallFunction(name string, args []host.Value) (host.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return host.Undefined, fmt.Errorf("%w '%s'", ErrUnknownFunction, name)
	}
	return fn(args)
}

// Register adds a function to the registry.
func (r *Registry) Register(name string, fn StdlibFunc) {
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// requireArgs checks that the number of args is in range.
func requireArgs(name string, args []host.Value, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return argumentError("%s expects %d argument(s), got %d", name, min, len(args))
		}
		return argumentError("%s expects %d-%d arguments, got %d", name, min, max, len(args))
	}
	return nil
}
