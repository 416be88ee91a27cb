package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure for propagation and HTTP mapping. The taxonomy is
// fixed: callers branch on kind, never on message text.
type Kind int

const (
	// KindValidation is bad input; never retried.
	KindValidation Kind = iota
	// KindPrecondition is a domain precondition failure (listing not
	// available, quota exceeded, account missing); never retried.
	KindPrecondition
	// KindGatewayTransient is a network/timeout failure after the bounded
	// retry budget; the caller may try again later.
	KindGatewayTransient
	// KindGatewayRejected is a business error from the provider.
	KindGatewayRejected
	// KindReconciliationMismatch is an amount or status disagreement between
	// a webhook and the gateway's authoritative state.
	KindReconciliationMismatch
	// KindInternal is a store or other infrastructure failure.
	KindInternal
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of err, defaulting to KindInternal for
// unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a classified error to the status code the HTTP surface
// returns for it.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindPrecondition, KindGatewayRejected, KindReconciliationMismatch:
		return fiber.StatusBadRequest
	case KindGatewayTransient:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
