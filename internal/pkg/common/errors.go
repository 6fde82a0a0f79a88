package common

import (
	"net/http"
)

// ErrorResponse is the JSON error body returned by the API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError is an error carrying an API error code and HTTP status.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError creates a new CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError marks a client input validation failure.
type ValidationError struct {
	message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// Predefined error codes.
const (
	// Client errors (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeNotFound        = "NOT_FOUND"         // 404
	ErrCodeRequestTimeout  = "REQUEST_TIMEOUT"   // 408
	ErrCodeConflict        = "CONFLICT"          // 409
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// Server errors (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// Engine errors
	ErrCodeDetectionUnavailable    = "DETECTION_UNAVAILABLE"
	ErrCodeRecipeSourceUnavailable = "RECIPE_SOURCE_UNAVAILABLE"
	ErrCodeInvalidScoringWeights   = "INVALID_SCORING_WEIGHTS"
	ErrCodeStoreUnavailable        = "STORE_UNAVAILABLE"
)

// Predefined errors.
var (
	// Client errors
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrRequestTimeout  = NewError(ErrCodeRequestTimeout, "request timed out", http.StatusRequestTimeout, nil)
	ErrConflict        = NewError(ErrCodeConflict, "resource conflict", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)

	// Server errors
	ErrInternalError      = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "gateway timeout", http.StatusGatewayTimeout, nil)

	// Engine errors
	ErrDetectionUnavailable    = NewError(ErrCodeDetectionUnavailable, "ingredient detection unavailable", http.StatusServiceUnavailable, nil)
	ErrRecipeSourceUnavailable = NewError(ErrCodeRecipeSourceUnavailable, "recipe source unavailable", http.StatusServiceUnavailable, nil)
	ErrInvalidScoringWeights   = NewError(ErrCodeInvalidScoringWeights, "scoring weights must sum to 1.0", http.StatusInternalServerError, nil)
	ErrStoreUnavailable        = NewError(ErrCodeStoreUnavailable, "pantry store unavailable", http.StatusServiceUnavailable, nil)

	// Cache errors
	ErrCacheDisabled = NewError("CACHE_DISABLED", "cache is disabled", http.StatusServiceUnavailable, nil)
	ErrCacheMiss     = NewError("CACHE_MISS", "cache miss", http.StatusNotFound, nil)
)
