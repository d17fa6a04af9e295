package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure. Every stage wraps errors it can
// meaningfully reclassify; handlers translate the kind to an HTTP status
// in exactly one place (HTTPStatus).
type Kind int

const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindInvalid
	KindExtraction
	KindSummarization
	KindDuplicate
	KindNotFound
	KindForbidden
	KindPersistence
)

// Error carries a classification and a short user-facing message.
// Internal detail stays in the wrapped cause and is only ever logged.
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

// Errf builds a classified error wrapping cause (which may be nil).
func Errf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the classification of err, KindUnexpected when untagged.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Message returns the user-facing message for err. Untagged errors get a
// generic message so internal detail never reaches the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "An unexpected error occurred. Please try again later."
}

// HTTPStatus maps the error taxonomy to response status codes.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalid:
		return http.StatusBadRequest
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindSummarization:
		return http.StatusServiceUnavailable
	case KindDuplicate:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
