package sandbox

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/auth"
	"github.com/migrantcare/nexus/pkg/models"
)

const (
	invalidCredentials = "Invalid credentials"
	notFound           = "Not found."
)

var validate = validator.New()

// ---------------------------------------------------------------------------
// Handler: Echo HTTP handlers
// ---------------------------------------------------------------------------

// HandlerConfig shapes the responses of a Handler.
type HandlerConfig struct {
	JWT      auth.JWTConfig
	TokenTTL time.Duration
	// VitalsEnvelope wraps vitals as {"vitals": [...]}.
	VitalsEnvelope bool
	Now            func() time.Time
}

// Handler serves the migrant-care API over a Seeder.
type Handler struct {
	seeder *Seeder
	cfg    HandlerConfig
	logger zerolog.Logger
}

func NewHandler(seeder *Seeder, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		seeder: seeder,
		cfg:    cfg,
		logger: logger.With().Str("component", "sandbox").Logger(),
	}
}

// RegisterRoutes registers the API on g, which must be mounted at /api
// behind auth.JWTMiddleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	clinician := auth.RequireRole(models.WireRoleDoctor)
	g.POST("/login/", h.handleLogin)
	g.GET("/authority_dashboard_metrics/", h.handleMetrics, auth.RequireRole(models.WireRoleAuthority))
	g.GET("/get_patient_vitals/:identifier", h.handleVitals, auth.RequireRole(models.WireRoleDoctor, models.WireRoleAuthority))
	g.GET("/get_full_patient_info_by_qr/:identifier", h.handlePatientInfo, clinician)
	g.PATCH("/medical-records/:id/", h.handleUpdateDiagnosis, clinician)
	g.GET("/migrant/dashboard/", h.handleMigrantDashboard, auth.RequireRole(models.WireRoleMigrant))
}

func (h *Handler) handleLogin(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request.")
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: invalidCredentials})
	}

	user, ok := h.seeder.Authenticate(strings.TrimSpace(req.Username), req.Password, req.Role)
	if !ok {
		h.logger.Info().Str("username", req.Username).Str("role", req.Role).Msg("login rejected")
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: invalidCredentials})
	}

	token, err := auth.IssueToken(h.cfg.JWT, user.Username, user.Role, h.cfg.TokenTTL, h.cfg.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, models.LoginResponse{
		Token:    token,
		Role:     user.Role,
		Username: user.Username,
	})
}

func (h *Handler) handleMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.seeder.Metrics())
}

func (h *Handler) handleVitals(c echo.Context) error {
	readings, ok := h.seeder.Vitals(c.Param("identifier"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	if h.cfg.VitalsEnvelope {
		return c.JSON(http.StatusOK, map[string]any{"vitals": readings})
	}
	return c.JSON(http.StatusOK, readings)
}

func (h *Handler) handlePatientInfo(c echo.Context) error {
	rec, ok := h.seeder.PatientRecord(c.Param("identifier"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) handleUpdateDiagnosis(c echo.Context) error {
	var body models.DiagnosisUpdate
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Malformed request.")
	}

	id := models.RecordID(c.Param("id"))
	rec, ok := h.seeder.UpdateDiagnosis(id, body.Diagnosis)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	h.logger.Info().
		Str("record_id", id.String()).
		Str("user", auth.UserIDFromContext(c.Request().Context())).
		Msg("diagnosis updated")
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) handleMigrantDashboard(c echo.Context) error {
	dash, ok := h.seeder.MigrantDashboard(auth.UserIDFromContext(c.Request().Context()))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return c.JSON(http.StatusOK, dash)
}
