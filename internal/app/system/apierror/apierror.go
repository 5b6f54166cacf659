// Package apierror defines the single error kind returned by the account
// service and rendered by HTTP handlers.
//
// Every failure carries an HTTP status, a client-facing message, and an
// optional list of details. The wrapped Err is for logs only and is never
// written to a response.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is shown for internal failures.
const GenericMessage = "Something went wrong"

// Error is an HTTP-mappable failure.
type Error struct {
	Status  int
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Internal reports whether the error is a server-side failure.
func (e *Error) Internal() bool { return e.Status >= http.StatusInternalServerError }

// WithDetails returns a copy of e carrying the given detail messages.
func (e *Error) WithDetails(details ...string) *Error {
	cp := *e
	cp.Errors = append([]string(nil), details...)
	return &cp
}

// New builds an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap builds an Error that keeps err for logging.
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }

// TooManyRequests is returned while a login identifier is locked out.
func TooManyRequests(message string) *Error { return New(http.StatusTooManyRequests, message) }

// Upstream reports a failure of an external collaborator such as the
// asset store. It is a 500 that keeps its own client message.
func Upstream(message string, err error) *Error {
	return Wrap(http.StatusInternalServerError, message, err)
}

// Internal wraps an unexpected failure as a generic 500.
func Internal(err error) *Error {
	return Wrap(http.StatusInternalServerError, GenericMessage, err)
}

// From converts any error into an *Error. Errors that are not already an
// *Error become a generic 500. A nil error yields nil.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	if e := From(err); e != nil {
		return e.Status
	}
	return http.StatusOK
}
