package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/api/metrics"
	"github.com/knowledgehub/workflow/internal/core/domain"
)

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler is the only place domain errors become status codes.
// Anything outside the taxonomy is logged and answered with a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, kind, msg := resolveError(err, log, c)
		metrics.APIErrorsTotal.WithLabelValues(kind).Inc()

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// bind failures, unknown routes
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, "http", fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, "invalid_id", "invalid knowledge id"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error()
	case errors.Is(err, domain.ErrPendingApproval):
		return http.StatusForbidden, "pending_approval", domain.ErrPendingApproval.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, "conflict", err.Error()
	}

	// Backend faults and anything unexpected: log the real cause, return a
	// generic message.
	kind := "internal"
	if domain.IsRetryable(err) {
		kind = "backend_unavailable"
	}
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("kind", kind).
		Msg("unhandled error")

	return http.StatusInternalServerError, kind, "internal server error"
}
