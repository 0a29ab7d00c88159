// Package patient resolves a scanned identifier into the composite record
// and vitals the clinician dashboard shows.
package patient

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/pkg/models"
)

// Fetcher is the slice of the API client the resolver needs.
type Fetcher interface {
	FullPatientInfo(ctx context.Context, identifier string) (*models.PatientRecord, error)
	PatientVitals(ctx context.Context, identifier string) ([]models.VitalReading, error)
}

type Resolver struct {
	fetcher  Fetcher
	view     *View
	logger   zerolog.Logger
	onRecord func()
}

func NewResolver(fetcher Fetcher, logger zerolog.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		view:    &View{},
		logger:  logger.With().Str("component", "patient").Logger(),
	}
}

func (r *Resolver) View() *View { return r.view }

// OnRecordApplied registers fn to run each time a lookup's record section,
// loaded or failed, replaces the view's record. Superseded responses never
// trigger it. Set it before the first Resolve.
func (r *Resolver) OnRecordApplied(fn func()) { r.onRecord = fn }

// Result reports what one Resolve call fetched. Stale is set when a newer
// lookup started before a response arrived, in which case that response was
// not applied to the view.
type Result struct {
	Identifier string
	Generation uint64

	Record    *models.PatientRecord
	RecordErr error
	Vitals    []models.VitalReading
	VitalsErr error

	Stale bool
}

// Resolve fetches the record and the vitals concurrently. Each response is
// applied to the view as soon as it arrives, so a failure in one section
// never hides the other.
func (r *Resolver) Resolve(ctx context.Context, identifier string) Result {
	gen := r.view.begin(identifier)
	res := Result{Identifier: identifier, Generation: gen}
	log := r.logger.With().Str("identifier", identifier).Uint64("generation", gen).Logger()

	var (
		wg          sync.WaitGroup
		recordStale bool
		vitalsStale bool
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		rec, err := r.fetcher.FullPatientInfo(ctx, identifier)
		res.Record, res.RecordErr = rec, err
		if !r.view.applyRecord(gen, rec, err) {
			recordStale = true
			log.Debug().Msg("discarded superseded patient record")
			return
		}
		if r.onRecord != nil {
			r.onRecord()
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch patient record")
		}
	}()

	go func() {
		defer wg.Done()
		readings, err := r.fetcher.PatientVitals(ctx, identifier)
		res.Vitals, res.VitalsErr = readings, err
		if !r.view.applyVitals(gen, readings, err) {
			vitalsStale = true
			log.Debug().Msg("discarded superseded vitals")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to fetch vitals")
		}
	}()

	wg.Wait()
	res.Stale = recordStale || vitalsStale
	return res
}
