// Package apperror is the error taxonomy shared by every HTTP handler.
// Handlers return *Error values; the app's error handler renders them.
package apperror

import (
	"errors"
	"net/http"
	"runtime/debug"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindServer     Kind = "server"
)

type Error struct {
	Kind Kind
	// Message is rendered as the "error" field of the response body.
	Message string
	// Fields are extra public fields merged into the response body.
	Fields map[string]any
	// Err is the underlying cause. Only shown in development.
	Err   error
	Stack []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// With returns a copy of e carrying an extra public field.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Fields = make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		cp.Fields[k] = v
	}
	cp.Fields[key] = value
	return &cp
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps an unexpected failure and captures the current stack.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindServer, Message: msg, Err: err, Stack: debug.Stack()}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
