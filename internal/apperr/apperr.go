package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-checkable failure category. Handlers map
// kinds to HTTP statuses; callers use them to decide whether a retry
// makes sense.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindEmptyCart         Kind = "empty_cart"
	KindNoItemsForStore   Kind = "no_items_for_store"
	KindForbidden         Kind = "forbidden"
	KindInvalidStatus     Kind = "invalid_status"
	KindInvalidTransition Kind = "invalid_transition"
	KindValidation        Kind = "validation"
	KindStorage           Kind = "storage"
	KindUpstream          Kind = "upstream"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error, keeping the
// cause reachable via errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf classifies any error. Unrecognized errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the failure is a transient backend error
// that a caller may retry. Nothing in this service retries on its own.
func Retryable(err error) bool {
	return KindOf(err) == KindStorage
}
