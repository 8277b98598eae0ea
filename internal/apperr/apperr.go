// Package apperr defines the error kinds returned by the services. Handlers
// match them with errors.Is and turn them into response envelopes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage fault")
)

// Error carries a human-readable message together with its kind.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func Auth(format string, args ...any) error {
	return &Error{Kind: ErrAuth, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a persistence failure. The underlying message is kept so
// callers see what the store reported.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: ErrStorage, Msg: fmt.Sprintf("%s: %v", op, err), Err: err}
}

// Message returns the message to show a client for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return err.Error()
}
