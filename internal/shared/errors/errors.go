package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error taxonomy shared by every module.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("resource conflict")
	ErrValidation      = errors.New("validation failure")
	ErrExternalService = errors.New("external service failure")
	ErrInternal        = errors.New("internal error")
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// AppError represents an application error with HTTP status and error code.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, statusCode int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NotFound creates a not found error with a snake_case code.
func NotFound(code, message string) *AppError {
	return NewAppError(code, message, http.StatusNotFound, ErrNotFound)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(code, message string) *AppError {
	return NewAppError(code, message, http.StatusUnauthorized, ErrUnauthorized)
}

// Forbidden creates a forbidden error.
func Forbidden(code, message string) *AppError {
	return NewAppError(code, message, http.StatusForbidden, ErrForbidden)
}

// Conflict creates a conflict error.
func Conflict(code, message string) *AppError {
	return NewAppError(code, message, http.StatusConflict, ErrConflict)
}

// Validation creates a validation failure.
func Validation(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadRequest, ErrValidation)
}

// ExternalService creates an external service failure.
func ExternalService(code, message string) *AppError {
	return NewAppError(code, message, http.StatusBadGateway, ErrExternalService)
}

// Internal wraps an unexpected error.
func Internal(message string, err error) *AppError {
	return NewAppError("internal_error", message, http.StatusInternalServerError, err)
}

// Wrap returns target annotated with cause so both match errors.Is.
func Wrap(target *AppError, cause error) error {
	if cause == nil {
		return target
	}
	return &wrapped{target: target, cause: cause}
}

type wrapped struct {
	target *AppError
	cause  error
}

func (w *wrapped) Error() string   { return fmt.Sprintf("%s: %v", w.target.Message, w.cause) }
func (w *wrapped) Unwrap() []error { return []error{w.target, w.cause} }

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExternalService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the snake_case code of err, or "internal_error".
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "internal_error"
}
