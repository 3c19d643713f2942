package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/konusmate/mate/internal/errs"
)

// errorResponse is the uniform error body: {"detail": "..."}.
type errorResponse struct {
	Detail string `json:"detail"`
}

// respondError maps an error kind to its HTTP status. Unclassified errors
// surface as 500 without leaking internals.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrUpstream), errors.Is(err, errs.ErrStorage), errors.Is(err, errs.ErrParse):
		status = http.StatusInternalServerError
	}

	detail := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		if !errors.Is(err, errs.ErrUpstream) {
			detail = "internal server error"
		}
	}
	return c.JSON(status, &errorResponse{Detail: detail})
}
