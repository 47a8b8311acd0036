package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly-project/bookly/internal/apperr"
	"github.com/bookly-project/bookly/internal/logging"
)

// ErrorHandler is the single place typed errors become HTTP responses.
// Anything that is not an *apperr.Error is logged and flattened to a
// generic internal error so internals never reach the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		_ = c.JSON(appErr.Status, appErr)
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, &apperr.Error{
			Code:    codeForStatus(httpErr.Code),
			Message: fmt.Sprintf("%v", httpErr.Message),
		})
		return
	}

	logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
	_ = c.JSON(apperr.ErrInternal.Status, apperr.ErrInternal)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusBadRequest:
		return "bad_request"
	default:
		return "error"
	}
}
