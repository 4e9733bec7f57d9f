package apperror

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeUnauthenticated Code = "unauthenticated"
	CodeForbidden       Code = "forbidden"
	CodeNotFound        Code = "not_found"
	CodeInvalidInput    Code = "invalid_input"
	CodeConflict        Code = "conflict"
	CodeInvalidState    Code = "invalid_state"
	CodeUnavailable     Code = "unavailable"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func InvalidState(message string) *Error {
	return New(CodeInvalidState, message)
}

func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// GetCode returns the taxonomy code for err, or CodeUnavailable for
// anything that is not an *Error so internal detail never reaches clients.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnavailable
}

func Is(err error, code Code) bool {
	return GetCode(err) == code
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict, CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
