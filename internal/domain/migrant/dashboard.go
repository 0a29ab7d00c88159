// Package migrant builds the migrant's own dashboard summary.
package migrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
	"github.com/migrantcare/nexus/pkg/models"
)

type Fetcher interface {
	MigrantDashboard(ctx context.Context) (*models.MigrantDashboard, error)
}

// Summary is what the dashboard's cards display.
type Summary struct {
	Appointments    int      `json:"appointments"`
	Alerts          int      `json:"alerts"`
	Schemes         int      `json:"schemes"`
	Age             string   `json:"age"`
	Gender          string   `json:"gender"`
	LatestDiagnosis string   `json:"latest_diagnosis"`
	Recommendations []string `json:"recommendations"`
}

type Dashboard struct {
	fetcher  Fetcher
	sessions *session.Context
	logger   zerolog.Logger
}

func New(fetcher Fetcher, sessions *session.Context, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		fetcher:  fetcher,
		sessions: sessions,
		logger:   logger.With().Str("component", "migrant").Logger(),
	}
}

// Load guards on the session, then fetches and summarizes the dashboard.
func (d *Dashboard) Load(ctx context.Context) (*Summary, error) {
	if err := router.Guard(ctx, d.sessions); err != nil {
		return nil, err
	}
	data, err := d.fetcher.MigrantDashboard(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to load dashboard")
		return nil, fmt.Errorf("migrant dashboard: %w", err)
	}
	return Summarize(data), nil
}

// Summarize fills in placeholders for whatever the backend left out.
func Summarize(data *models.MigrantDashboard) *Summary {
	s := &Summary{
		Age:             models.NotAvailable,
		Gender:          models.NotAvailable,
		LatestDiagnosis: models.NotAvailable,
		Recommendations: []string{},
	}
	if data == nil {
		return s
	}
	s.Appointments = data.Appointments
	s.Alerts = data.Alerts
	s.Schemes = len(data.Schemes)
	if data.Profile != nil {
		if data.Profile.Age != nil {
			s.Age = fmt.Sprintf("%d", *data.Profile.Age)
		}
		if g := strings.TrimSpace(data.Profile.Gender); g != "" {
			s.Gender = g
		}
	}
	if data.MedicalRecord != nil && strings.TrimSpace(data.MedicalRecord.Diagnosis) != "" {
		s.LatestDiagnosis = data.MedicalRecord.Diagnosis
	}
	if data.Recommendations != nil {
		s.Recommendations = data.Recommendations
	}
	return s
}
