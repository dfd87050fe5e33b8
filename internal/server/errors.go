package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	aggregationdomain "github.com/smallbiznis/pulseboard/internal/aggregation/domain"
	assistantdomain "github.com/smallbiznis/pulseboard/internal/assistant/domain"
	"github.com/smallbiznis/pulseboard/internal/authorization"
	dailymetricdomain "github.com/smallbiznis/pulseboard/internal/dailymetric/domain"
	forecastdomain "github.com/smallbiznis/pulseboard/internal/forecast/domain"
	obsmiddleware "github.com/smallbiznis/pulseboard/internal/observability/logger"
	"github.com/smallbiznis/pulseboard/internal/presentation"
	"gorm.io/gorm"
)

// FieldError is a request-level validation failure naming one input.
type FieldError struct {
	Field string
	Code  string
}

func (e *FieldError) Error() string { return e.Code }

func newFieldError(field, code string) error {
	return &FieldError{Field: field, Code: code}
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if field, code, ok := validationDetail(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: validationMessage(code),
			Code:    code,
			Field:   field,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// validationDetail reports the offending field and code for any input
// error the domain packages can return.
func validationDetail(err error) (string, string, bool) {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Field, fieldErr.Code, true
	}

	var rowErr *dailymetricdomain.FieldError
	if errors.As(err, &rowErr) {
		return rowErr.Field, codeOf(rowErr.Err), true
	}

	switch {
	case errors.Is(err, aggregationdomain.ErrInvalidUserID),
		errors.Is(err, dailymetricdomain.ErrInvalidUserID),
		errors.Is(err, forecastdomain.ErrInvalidUserID),
		errors.Is(err, assistantdomain.ErrInvalidUserID):
		return "userId", "invalid_user_id", true
	case errors.Is(err, aggregationdomain.ErrInvalidRange),
		errors.Is(err, dailymetricdomain.ErrInvalidRange):
		return "range", "invalid_range", true
	case errors.Is(err, aggregationdomain.ErrInvalidDate),
		errors.Is(err, dailymetricdomain.ErrInvalidDate):
		return "date", "invalid_date", true
	case errors.Is(err, aggregationdomain.ErrInvalidGranularity):
		return "granularity", "invalid_granularity", true
	case errors.Is(err, forecastdomain.ErrInvalidHorizon):
		return "horizon", "invalid_horizon", true
	case errors.Is(err, forecastdomain.ErrInvalidMonths):
		return "months", "invalid_months", true
	case errors.Is(err, forecastdomain.ErrInvalidAsOf):
		return "as_of", "invalid_as_of", true
	case errors.Is(err, assistantdomain.ErrInvalidQuestion):
		return "question", "invalid_question", true
	case errors.Is(err, presentation.ErrInvalidLocale):
		return "locale", "invalid_locale", true
	case errors.Is(err, presentation.ErrInvalidCurrency):
		return "currency", "invalid_currency", true
	case errors.Is(err, dailymetricdomain.ErrEmptyBatch),
		errors.Is(err, dailymetricdomain.ErrBatchTooLarge):
		return "rows", codeOf(err), true
	case errors.Is(err, ErrInvalidRequest):
		return "request", "invalid_request", true
	}
	return "", "", false
}

func codeOf(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func validationMessage(code string) string {
	switch code {
	case "invalid_user_id":
		return "userId is required"
	case "invalid_range":
		return "start must not be after end"
	case "invalid_date":
		return "dates must be YYYY-MM-DD"
	case "negative_value":
		return "value must not be negative"
	case "non_finite_value":
		return "value must be a finite number"
	case "duplicate_date":
		return "date appears more than once"
	default:
		return "invalid value"
	}
}

func classifyErrorForLog(err error) (string, string) {
	if _, code, ok := validationDetail(err); ok {
		return obsmiddleware.ErrorTypeValidation, code
	}
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return "client", payload.Type
}
