package errors

import (
	"fmt"
	"net/http"
)

// ErrorType represents the kind of application error.
type ErrorType string

const (
	ErrorTypeNotFound                ErrorType = "NOT_FOUND"
	ErrorTypeBadInput                ErrorType = "BAD_INPUT"
	ErrorTypeValidation              ErrorType = "VALIDATION_ERROR"
	ErrorTypeInsufficientStock       ErrorType = "INSUFFICIENT_STOCK"
	ErrorTypeInsufficientReservation ErrorType = "INSUFFICIENT_RESERVATION"
	ErrorTypeConflict                ErrorType = "CONFLICT"
	ErrorTypeInternal                ErrorType = "INTERNAL_ERROR"
)

// AppError is the single error shape the engine and adapters exchange.
type AppError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Details  string    `json:"details,omitempty"`
	Code     int       `json:"code"`
	Internal error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Internal
}

func NewAppError(errorType ErrorType, message string, internal error) *AppError {
	return &AppError{
		Type:     errorType,
		Message:  message,
		Code:     httpStatusCode(errorType),
		Internal: internal,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Code:    http.StatusNotFound,
	}
}

func NewBadInputError(message string, details string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadInput,
		Message: message,
		Details: details,
		Code:    http.StatusBadRequest,
	}
}

func NewValidationError(message string, details string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: details,
		Code:    http.StatusUnprocessableEntity,
	}
}

func NewInsufficientStockError(available, requested int) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientStock,
		Message: "insufficient stock",
		Details: fmt.Sprintf("available: %d, requested: %d", available, requested),
		Code:    http.StatusUnprocessableEntity,
	}
}

func NewInsufficientReservationError(reserved, requested int) *AppError {
	return &AppError{
		Type:    ErrorTypeInsufficientReservation,
		Message: "insufficient reservation",
		Details: fmt.Sprintf("reserved: %d, requested: %d", reserved, requested),
		Code:    http.StatusUnprocessableEntity,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
	}
}

func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:     ErrorTypeInternal,
		Message:  message,
		Code:     http.StatusInternalServerError,
		Internal: internal,
	}
}

func httpStatusCode(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeBadInput:
		return http.StatusBadRequest
	case ErrorTypeValidation, ErrorTypeInsufficientStock, ErrorTypeInsufficientReservation:
		return http.StatusUnprocessableEntity
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsAppError returns err as an *AppError if err itself is one. Wrapped
// errors are not unwrapped.
func IsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
