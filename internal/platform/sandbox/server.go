package sandbox

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/auth"
	"github.com/migrantcare/nexus/internal/platform/middleware"
)

const Version = "0.1.0"

// NewServer builds the echo instance serving h under /api plus the public
// health check.
func NewServer(h *Handler, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})

	jwtCfg := h.cfg.JWT
	jwtCfg.Skipper = auth.AuthSkipper
	api := e.Group("/api", auth.JWTMiddleware(jwtCfg))
	h.RegisterRoutes(api)

	return e
}
