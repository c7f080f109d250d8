package apierror

import (
	"fmt"
	"net/http"
)

// Machine-readable codes carried in the error envelope.
const (
	CodeBadRequest        = "BAD_REQUEST"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeExpired           = "EXPIRED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUnknownEntityType = "UNKNOWN_ENTITY_TYPE"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`

	cause error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the error this one was built from, if any.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Wrap builds an APIError whose details are cause's text and which still
// matches cause under errors.Is.
func Wrap(cause error, code string, message string, status int) *APIError {
	e := New(code, message, "", status)
	if cause != nil {
		e.Details = cause.Error()
		e.cause = cause
	}
	return e
}

func BadRequest(message string, details string) *APIError {
	return New(CodeBadRequest, message, details, http.StatusBadRequest)
}

func Unavailable(message string, cause error) *APIError {
	return Wrap(cause, CodeUnavailable, message, http.StatusServiceUnavailable)
}
