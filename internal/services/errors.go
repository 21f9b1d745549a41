package services

import "errors"

// Error kinds. Every error returned by a service that the caller should
// see matches exactly one of these through errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInvariant  = errors.New("invariant violation")
	ErrDelivery   = errors.New("delivery failed")
)

// Error carries a user facing message plus its kind.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func permissionError(msg string) error {
	return &Error{Kind: ErrPermission, Message: msg}
}

func notFoundError(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func invariantError(msg string) error {
	return &Error{Kind: ErrInvariant, Message: msg}
}

func deliveryError(msg string, cause error) error {
	return &Error{Kind: ErrDelivery, Message: msg, Err: cause}
}

// NewError builds a kinded error for packages outside services.
func NewError(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}
