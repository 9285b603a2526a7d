package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/privatise/internal/privacy"
)

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution exceeds the state's
	// execution timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)

// Error is a failure raised by a running script.
//
// Kind holds a sentinel recognised in the Lua error message, such as
// privacy.ErrPrivateAccess, so callers can match it with errors.Is. Err is
// the underlying gopher-lua error.
type Error struct {
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns both the classified sentinel and the gopher-lua error.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// translateError maps an execution error to the package's error types. ctx
// is the context the execution ran under.
func translateError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrExecutionTimeout, ctxErr)
	case ctxErr != nil:
		return fmt.Errorf("lua execution cancelled: %w", ctxErr)
	}

	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err
	}

	msg := apiErr.Error()
	if apiErr.Object != nil {
		msg = apiErr.Object.String()
	}
	out := &Error{Message: msg, Err: err}
	if strings.Contains(msg, privacy.PrivateAccessMessage) {
		out.Kind = privacy.ErrPrivateAccess
	}
	return out
}
