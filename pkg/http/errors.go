package http

import (
	"fmt"
	"net/http"
)

// AppError is an error the API reports to the client as-is, with its own status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap attaches the internal cause. It is logged, never serialized.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func newAppError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// NotFoundError is returned for a resource that does not exist yet.
func NotFoundError(message string) *AppError {
	return newAppError(http.StatusNotFound, "ERR_NOT_FOUND", message)
}

func TooManyRequestsError(message string) *AppError {
	return newAppError(http.StatusTooManyRequests, "ERR_RATE_LIMITED", message)
}

func UnavailableError(message string) *AppError {
	return newAppError(http.StatusServiceUnavailable, "ERR_UNAVAILABLE", message)
}
