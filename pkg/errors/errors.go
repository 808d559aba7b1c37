package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Each kind maps to exactly one
// HTTP status and error label.
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidationFailed
	KindNotFound
	KindBusinessRuleViolation
	KindUnauthenticated
	KindInvalidCredentials
)

// AppError represents an application error
type AppError struct {
	Kind        Kind
	Message     string
	FieldErrors []string
	Err         error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode is the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidationFailed, KindBusinessRuleViolation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated, KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Label is the short error name used in the response envelope.
func (e *AppError) Label() string {
	switch e.Kind {
	case KindValidationFailed:
		return "Validation Failed"
	case KindNotFound:
		return "Not Found"
	case KindBusinessRuleViolation:
		return "Business Error"
	case KindUnauthenticated, KindInvalidCredentials:
		return "Authentication Failed"
	default:
		return "Internal Server Error"
	}
}

// Error constructors
func ValidationFailed(fieldErrors []string) *AppError {
	return &AppError{
		Kind:        KindValidationFailed,
		Message:     "Invalid input data",
		FieldErrors: fieldErrors,
	}
}

func BadInput(message string, err error) *AppError {
	return &AppError{
		Kind:    KindValidationFailed,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: message,
	}
}

func BusinessRule(message string) *AppError {
	return &AppError{
		Kind:    KindBusinessRuleViolation,
		Message: message,
	}
}

func Unauthenticated(message string, err error) *AppError {
	return &AppError{
		Kind:    KindUnauthenticated,
		Message: message,
		Err:     err,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Kind:    KindInvalidCredentials,
		Message: "Invalid username or password",
	}
}

func Unexpected(message string, err error) *AppError {
	return &AppError{
		Kind:    KindUnexpected,
		Message: message,
		Err:     err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
