// Package authority serves the oversight dashboard: aggregate metrics and
// read-only vitals lookups.
package authority

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
	"github.com/migrantcare/nexus/pkg/models"
)

type Fetcher interface {
	AuthorityMetrics(ctx context.Context) (*models.AuthorityMetrics, error)
	PatientVitals(ctx context.Context, identifier string) ([]models.VitalReading, error)
}

type Dashboard struct {
	fetcher    Fetcher
	sessions   *session.Context
	normalizer vitals.Normalizer
	logger     zerolog.Logger
}

func New(fetcher Fetcher, sessions *session.Context, normalizer vitals.Normalizer, logger zerolog.Logger) *Dashboard {
	return &Dashboard{
		fetcher:    fetcher,
		sessions:   sessions,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "authority").Logger(),
	}
}

func (d *Dashboard) Metrics(ctx context.Context) (*models.AuthorityMetrics, error) {
	if err := router.Guard(ctx, d.sessions); err != nil {
		return nil, err
	}
	m, err := d.fetcher.AuthorityMetrics(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to load metrics")
		return nil, fmt.Errorf("authority metrics: %w", err)
	}
	return m, nil
}

// Vitals returns the readings for identifier as table rows.
func (d *Dashboard) Vitals(ctx context.Context, identifier string) ([]vitals.Row, error) {
	if err := router.Guard(ctx, d.sessions); err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return []vitals.Row{}, nil
	}
	readings, err := d.fetcher.PatientVitals(ctx, identifier)
	if err != nil {
		d.logger.Error().Err(err).Str("identifier", identifier).Msg("failed to load vitals")
		return nil, fmt.Errorf("authority vitals: %w", err)
	}
	return d.normalizer.Rows(readings), nil
}
