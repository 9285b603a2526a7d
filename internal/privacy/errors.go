package privacy

import "errors"

// PrivateAccessMessage is the fixed message of every private access failure.
const PrivateAccessMessage = "Attempt to access private property"

// ErrPrivateAccess matches every PrivateAccessError.
var ErrPrivateAccess = errors.New(PrivateAccessMessage)

// Operation names the intercepted operation that was refused.
type Operation string

// Intercepted operations.
const (
	OpGet Operation = "get"
	OpSet Operation = "set"
)

// PrivateAccessError is returned when a private property is read or written
// from outside the object. Its message is always PrivateAccessMessage; Op and
// Key are kept for diagnostics.
type PrivateAccessError struct {
	Op  Operation
	Key string
}

// Error implements the error interface.
func (e *PrivateAccessError) Error() string {
	return PrivateAccessMessage
}

// Is reports whether target is ErrPrivateAccess.
func (e *PrivateAccessError) Is(target error) bool {
	return target == ErrPrivateAccess
}
