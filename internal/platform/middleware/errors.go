package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/pkg/models"
)

// ErrorHandler renders errors the way Django REST Framework does, as
// {"detail": "..."}.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		detail := "A server error occurred."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			detail = fmt.Sprintf("%v", he.Message)
		} else {
			rid, _ := c.Get(RequestIDKey).(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(code)
		} else {
			werr = c.JSON(code, models.ErrorResponse{Detail: detail})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}
