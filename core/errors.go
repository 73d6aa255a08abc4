package core

import (
	"errors"
	"fmt"
)

// error kinds, match with errors.Is
var (
	ErrAuth                = errors.New("auth error")
	ErrValidation          = errors.New("validation error")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNetwork             = errors.New("network error")
	ErrNotFound            = errors.New("not found")
	ErrRouteNotFound       = errors.New("route not found")
	ErrUnsupportedPair     = errors.New("unsupported pair")
	ErrSwapExecution       = errors.New("swap execution failed")
)

// Error carries one of the error kinds above together with the remote
// status and message when the failure came from the REST api.
type Error struct {
	Kind    error
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if msg == "" {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind error, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// PartialAuthError is the terminal state of a login where the upstream
// platform accepted the credentials but the rewards token exchange failed.
type PartialAuthError struct {
	Err error
}

func (e *PartialAuthError) Error() string {
	return fmt.Sprintf("partial auth failure: %v", e.Err)
}

func (e *PartialAuthError) Unwrap() []error {
	return []error{ErrAuth, e.Err}
}

func IsErrAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

func IsErrValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsErrInsufficientBalance(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

func IsErrNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsErrPartialAuth(err error) bool {
	var e *PartialAuthError
	return errors.As(err, &e)
}

func IsErrRouteNotFound(err error) bool {
	return errors.Is(err, ErrRouteNotFound)
}

func IsErrUnsupportedPair(err error) bool {
	return errors.Is(err, ErrUnsupportedPair)
}

func IsErrSwapExecution(err error) bool {
	return errors.Is(err, ErrSwapExecution)
}
