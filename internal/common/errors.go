package common

import (
	"errors"
	"net/http"
)

// AppError is an error carrying a stable code and HTTP status for the
// canonical error envelope.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// codedError binds a sentinel to its envelope code and status. Handlers
// register their domain sentinels once; WriteError does the rest.
type codedError struct {
	sentinel error
	code     string
	status   int
}

var errorCatalog []codedError

// RegisterError maps a domain sentinel to an error code and HTTP status.
// Call from package init; not safe for concurrent registration.
func RegisterError(sentinel error, code string, status int) {
	errorCatalog = append(errorCatalog, codedError{sentinel: sentinel, code: code, status: status})
}

// WriteError renders err through the canonical envelope. AppErrors pass
// through as-is, registered sentinels get their mapped code, anything else
// becomes a 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	var app *AppError
	if errors.As(err, &app) {
		JSONError(w, app.HTTPStatus, app.Code, app.Message, app.Details)
		return
	}
	for _, c := range errorCatalog {
		if errors.Is(err, c.sentinel) {
			JSONError(w, c.status, c.code, c.sentinel.Error(), nil)
			return
		}
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
