// Package dto holds the JSON shapes of the quote API and the helpers that
// write them.
package dto

import "net/http"

// ErrorResponse is the envelope of every non-2xx API response.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail describes what went wrong. Details maps a field path such as
// "quotes[2].text" to its problem, or carries the failed sync stage.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Machine-readable error codes.
const (
	ErrorCodeBadRequest      = "BAD_REQUEST"
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeUnauthorized    = "UNAUTHORIZED"
	ErrorCodeForbidden       = "FORBIDDEN"
	ErrorCodeNotFound        = "NOT_FOUND"
	ErrorCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrorCodeThrottled       = "THROTTLED"
	ErrorCodeInternal        = "INTERNAL_ERROR"
	ErrorCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout         = "TIMEOUT"
)

var codeStatus = map[string]int{
	ErrorCodeBadRequest:      http.StatusBadRequest,
	ErrorCodeValidation:      http.StatusBadRequest,
	ErrorCodeUnauthorized:    http.StatusUnauthorized,
	ErrorCodeForbidden:       http.StatusForbidden,
	ErrorCodeNotFound:        http.StatusNotFound,
	ErrorCodePayloadTooLarge: http.StatusRequestEntityTooLarge,
	ErrorCodeThrottled:       http.StatusTooManyRequests,
	ErrorCodeInternal:        http.StatusInternalServerError,
	ErrorCodeUnavailable:     http.StatusServiceUnavailable,
	ErrorCodeTimeout:         http.StatusGatewayTimeout,
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message string) *ErrorResponse {
	return NewErrorResponseWithDetails(code, message, nil)
}

// NewErrorResponseWithDetails creates an error envelope carrying details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Code: code, Message: message, Details: details}}
}

// WithTraceID sets the trace ID and returns e.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode returns the status for code, or 500 for unknown codes.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}
