// Package types defines the error taxonomy shared by the numeric engine,
// the chain navigator and the API layers.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error tag constants.
const (
	TagParseError        = "ParseError"
	TagTypeMismatchError = "TypeMismatchError"
	TagDivisionByZero    = "DivisionByZero"
	TagRangeError        = "RangeError"
	TagPropertyNotFound  = "PropertyNotFound"
	TagNotCallable       = "NotCallable"
	TagNullAccessError   = "NullAccessError"
	TagArgumentError     = "ArgumentError"
)

// EngineError is a tagged engine failure. The first tag is the primary kind.
type EngineError struct {
	Message string
	Tags    []string
	Extra   map[string]string // additional context (e.g., input text, operator)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", strings.Join(e.Tags, ", "), e.Message)
}

// Kind returns the primary tag.
func (e *EngineError) Kind() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[0]
}

// HasTag returns true if the error has the specified tag.
func (e *EngineError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// With returns a copy of the error carrying an extra context field.
func (e *EngineError) With(key, value string) *EngineError {
	c := &EngineError{Message: e.Message, Tags: e.Tags, Extra: make(map[string]string, len(e.Extra)+1)}
	for k, v := range e.Extra {
		c.Extra[k] = v
	}
	c.Extra[key] = value
	return c
}

// HasTag reports whether err, or any error it wraps, is an EngineError
// carrying tag.
func HasTag(err error, tag string) bool {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return false
	}
	return ee.HasTag(tag)
}

// KindOf returns the primary tag of err, or "" for non-engine errors.
func KindOf(err error) string {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return ""
	}
	return ee.Kind()
}

// Common error constructors.

// NewParseError creates a ParseError for malformed numeric text.
func NewParseError(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagParseError}}
}

// NewTypeMismatchError creates a TypeMismatchError.
func NewTypeMismatchError(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagTypeMismatchError}}
}

// NewDivisionByZero creates a DivisionByZero error.
func NewDivisionByZero() *EngineError {
	return &EngineError{Message: "division by zero", Tags: []string{TagDivisionByZero}}
}

// NewRangeError creates a RangeError.
func NewRangeError(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagRangeError}}
}

// NewPropertyNotFound creates a PropertyNotFound error.
func NewPropertyNotFound(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagPropertyNotFound}}
}

// NewNotCallable creates a NotCallable error. It is also a type mismatch.
func NewNotCallable(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagNotCallable, TagTypeMismatchError}}
}

// NewNullAccessError creates a NullAccessError for a non-optional access on
// a value that has none.
func NewNullAccessError(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagNullAccessError, TagTypeMismatchError}}
}

// NewArgumentError creates an ArgumentError for bad function arity.
func NewArgumentError(msg string) *EngineError {
	return &EngineError{Message: msg, Tags: []string{TagArgumentError}}
}
