package object

import (
	"errors"
	"fmt"
)

// Errors for object operations.
var (
	// ErrNotCallable is returned when a non-function value is called.
	ErrNotCallable = errors.New("value is not a function")

	// ErrReadOnly is returned when assigning to a non-writable property.
	ErrReadOnly = errors.New("cannot assign to read only property")

	// ErrCyclic is returned when serializing a cyclic structure.
	ErrCyclic = errors.New("converting circular structure to JSON")

	// ErrUnsupported is returned when a value has no JSON representation.
	ErrUnsupported = errors.New("value cannot be serialized")
)

// TypeError describes a failed operation on a property.
type TypeError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *TypeError) Unwrap() error {
	return e.Err
}
