// Package xerrors defines the engine's error kinds (spec section 7):
// UnsupportedType, CollectiveRuntimeError and TransportError are all fatal
// exceptions raised before a job is enqueued; CallbackDelivered failures are
// not a distinct Go type, they are simply a non-OK tensor.Status handed to
// an entry's callback after enqueue.
//
// Wrapping is done with github.com/pkg/errors so every fatal exception
// carries a stack trace alongside the "<op_name> failed: <provider-error-string>"
// message the spec requires, matching how the wider example pack
// (gomlx, sarchlab-triosim) wraps fatal internal errors.
package xerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a fatal engine error.
type Kind int

const (
	UnsupportedType Kind = iota
	CollectiveRuntimeError
	TransportError
)

func (k Kind) String() string {
	switch k {
	case UnsupportedType:
		return "UnsupportedType"
	case CollectiveRuntimeError:
		return "CollectiveRuntimeError"
	case TransportError:
		return "TransportError"
	default:
		return "Unknown"
	}
}

// Error is the concrete type behind every fatal exception the engine
// raises. Callers that need to distinguish kinds should use errors.As and
// inspect Kind(), not string-match Error().
type Error struct {
	kind  Kind
	cause error
}

func (e *Error) Error() string { return e.cause.Error() }
func (e *Error) Unwrap() error { return e.cause }
func (e *Error) Kind() Kind    { return e.kind }

// NewUnsupportedType reports an element type the engine does not handle in
// NCCL mode, matching the exact wording of spec section 6.
func NewUnsupportedType(typeName string) error {
	return &Error{
		kind:  UnsupportedType,
		cause: fmt.Errorf("Type %s is not supported in NCCL mode.", typeName),
	}
}

// NewCollectiveRuntimeError reports a non-success code from a device-
// collective or device-runtime primitive.
func NewCollectiveRuntimeError(opName string, providerErr error) error {
	return &Error{
		kind:  CollectiveRuntimeError,
		cause: errors.Wrapf(providerErr, "%s failed", opName),
	}
}

// NewTransportError reports a failure in the host transport during
// identifier broadcast, barrier, or cross-node allreduce.
func NewTransportError(opName string, cause error) error {
	return &Error{
		kind:  TransportError,
		cause: errors.Wrapf(cause, "%s failed", opName),
	}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return 0, false
}
