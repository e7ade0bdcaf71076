package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	var tooLarge *http.MaxBytesError

	switch {
	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsThrottled(err):
		return http.StatusTooManyRequests, NewErrorResponse(ErrorCodeThrottled, err.Error())

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, err.Error())

	case domain.IsStorageUnavailable(err):
		// Store details stay in the logs.
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, "storage unavailable")

	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, NewErrorResponse(ErrorCodePayloadTooLarge, err.Error())

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// GetTraceID returns the OpenTelemetry trace ID of the request, or "".
func GetTraceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// HandleError writes the mapped error response. 5xx errors are logged.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			"status", status,
			"error", err.Error(),
			"trace_id", resp.TraceID,
		)
	}

	c.JSON(status, resp)
}

// AbortWithError aborts the handler chain with the mapped error response.
func AbortWithError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	c.AbortWithStatusJSON(status, resp.WithTraceID(GetTraceID(c)))
}

// AbortWithCode aborts the handler chain with a specific error code.
func AbortWithCode(c *gin.Context, code, message string) {
	resp := NewErrorResponse(code, message).WithTraceID(GetTraceID(c))
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), resp)
}

// RespondWithValidationErrors writes a 400 response with field-level validation errors.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	resp := NewErrorResponseWithDetails(ErrorCodeValidation, "request validation failed", fieldErrors)
	c.JSON(http.StatusBadRequest, resp.WithTraceID(GetTraceID(c)))
}
