package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vitaltrack/health-tracker/internal/api/metrics"
	"github.com/vitaltrack/health-tracker/internal/core/domain"
	"github.com/vitaltrack/health-tracker/pkg/logger"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string                    `json:"error"`
	Code    domain.Code               `json:"code"`
	Field   string                    `json:"field,omitempty"`
	Details []*domain.ValidationError `json:"details,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status through their stable code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error", "code", "field", "details"}.
func NewHTTPErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, c)
		metrics.ErrorsTotal.WithLabelValues(string(body.Code)).Inc()

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Error: fmt.Sprintf("%v", he.Message),
			Code:  codeForStatus(he.Code),
		}
	}

	var failure *domain.ValidationFailure
	if errors.As(err, &failure) && len(failure.Errors) > 0 {
		first := failure.Errors[0]
		body := errorResponse{Error: first.Message, Code: first.Code, Field: first.Field}
		if len(failure.Errors) > 1 {
			body.Details = failure.Errors
		}
		return StatusOf(first.Code), body
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return StatusOf(ve.Code), errorResponse{Error: ve.Message, Code: ve.Code, Field: ve.Field}
	}

	code := domain.CodeOf(err)
	if code != domain.CodeInternal {
		return StatusOf(code), errorResponse{Error: err.Error(), Code: code}
	}

	// Unexpected error: log the real cause, return a generic message.
	log := logger.FromContext(c.Request().Context())
	ev := log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path())
	var se *domain.StorageError
	if errors.As(err, &se) {
		ev = ev.Str("op", se.Op)
	}
	ev.Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: domain.CodeInternal}
}

// StatusOf maps a stable error code onto its HTTP status.
func StatusOf(code domain.Code) int {
	switch code {
	case domain.CodeNoToken, domain.CodeInvalidToken, domain.CodeTokenExpired, domain.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case domain.CodeEmailExists, domain.CodeDuplicateDateForUser:
		return http.StatusConflict
	case domain.CodeAccessDenied, domain.CodeAdminRequired:
		return http.StatusForbidden
	case domain.CodeUserNotFound, domain.CodeRecordNotFound:
		return http.StatusNotFound
	case domain.CodeMissingField, domain.CodeOutOfRange, domain.CodeInvalidValue,
		domain.CodeInconsistentBMI, domain.CodeInconsistentBodyFat, domain.CodeComponentMassExceedsWeight:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// codeForStatus names echo's transport errors, e.g. 404 → NOT_FOUND.
func codeForStatus(status int) domain.Code {
	text := http.StatusText(status)
	if text == "" {
		return domain.CodeInternal
	}
	return domain.Code(strings.ToUpper(strings.ReplaceAll(text, " ", "_")))
}
