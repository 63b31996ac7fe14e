package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest   ErrorType = "INVALID_REQUEST"
	ErrAuthFailed       ErrorType = "AUTH_FAILED"
	ErrRateLimited      ErrorType = "RATE_LIMITED"
	ErrQuotaExceeded    ErrorType = "QUOTA_EXCEEDED"
	ErrModelUnavailable ErrorType = "MODEL_UNAVAILABLE"
	ErrModelTimeout     ErrorType = "MODEL_TIMEOUT"
	ErrUpstream         ErrorType = "UPSTREAM_ERROR"
	ErrNotFound         ErrorType = "NOT_FOUND"
	ErrInternal         ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewModelUnavailable(msg string, cause error) *AppError {
	return New(ErrModelUnavailable, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrRateLimited, ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrModelUnavailable:
		return http.StatusServiceUnavailable
	case ErrModelTimeout:
		return http.StatusGatewayTimeout
	case ErrUpstream:
		return http.StatusBadGateway
	case ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrAuthFailed:
		return "Check the X-API-Key header."
	case ErrRateLimited:
		return "Slow down and retry in about a second."
	case ErrQuotaExceeded:
		return "Daily quota reached; retry tomorrow or request a higher quota."
	case ErrModelUnavailable:
		return "Make sure the model server is running and reachable."
	case ErrModelTimeout:
		return "Retry with a shorter input or a smaller model."
	default:
		return ""
	}
}
