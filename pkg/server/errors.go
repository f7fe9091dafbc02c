package server

import (
	"fmt"
	"net/http"
)

// HTTPError is an explicit abort-with-status returned from a handler.
// It is distinguished from arbitrary failures at the handler-return
// boundary: the dispatcher resolves it directly to its status code and
// message instead of routing it through the error-handler registry.
type HTTPError struct {
	Code    int    // HTTP status code
	Message string // message returned to the client
	Err     error  // optional underlying error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// BadRequest returns a 400 error.
func BadRequest(message string) *HTTPError {
	return &HTTPError{Code: http.StatusBadRequest, Message: message}
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *HTTPError {
	return &HTTPError{Code: http.StatusUnauthorized, Message: message}
}

// Forbidden returns a 403 error.
func Forbidden(message string) *HTTPError {
	return &HTTPError{Code: http.StatusForbidden, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *HTTPError {
	return &HTTPError{Code: http.StatusNotFound, Message: message}
}

// InternalError returns a 500 error wrapping err.
func InternalError(message string, err error) *HTTPError {
	return &HTTPError{Code: http.StatusInternalServerError, Message: message, Err: err}
}
