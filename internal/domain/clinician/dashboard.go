// Package clinician wires the scanner, the patient resolver, the vitals
// normalizer and the diagnosis editor into the clinician dashboard.
package clinician

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/domain/diagnosis"
	"github.com/migrantcare/nexus/internal/domain/patient"
	"github.com/migrantcare/nexus/internal/domain/scan"
	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/internal/platform/camera"
	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
)

// Client is the API surface the dashboard reads and writes through.
type Client interface {
	patient.Fetcher
	diagnosis.Updater
}

type Deps struct {
	Sessions   *session.Context
	Client     Client
	Camera     *camera.Guard
	Frames     camera.Source
	Decoder    scan.Decoder
	Normalizer vitals.Normalizer
	Logger     zerolog.Logger
}

type Dashboard struct {
	deps     Deps
	resolver *patient.Resolver
	editor   *diagnosis.Editor
	logger   zerolog.Logger

	mu      sync.Mutex
	mounted bool
	ctx     context.Context
	cancel  context.CancelFunc
	scanner *scan.Lifecycle
	pending sync.WaitGroup
}

func New(deps Deps) *Dashboard {
	if deps.Camera == nil {
		deps.Camera = camera.NewGuard()
	}
	if deps.Decoder == nil {
		deps.Decoder = scan.NewQRDecoder()
	}
	if deps.Normalizer.DateLayout == "" {
		deps.Normalizer = vitals.NewNormalizer(deps.Normalizer.DateLayout, deps.Normalizer.Location)
	}
	logger := deps.Logger.With().Str("component", "clinician").Logger()
	resolver := patient.NewResolver(deps.Client, deps.Logger)
	editor := diagnosis.NewEditor(deps.Client, resolver.View(), deps.Logger)
	// A new patient's record, or its failure, ends any edit of the previous one.
	resolver.OnRecordApplied(editor.Reset)
	return &Dashboard{
		deps:     deps,
		resolver: resolver,
		editor:   editor,
		logger:   logger,
	}
}

// Mount runs the session guard. Without a session it returns a
// *router.ErrRedirect to the login route and nothing else happens.
func (d *Dashboard) Mount(ctx context.Context) error {
	if err := router.Guard(ctx, d.deps.Sessions); err != nil {
		return err
	}
	if info := session.Inspect(d.deps.Sessions.Token(ctx)); info.Expired(time.Now()) {
		d.logger.Warn().Time("expires_at", *info.ExpiresAt).Msg("session token has expired; requests may be rejected")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted {
		d.ctx, d.cancel = context.WithCancel(ctx)
		d.mounted = true
	}
	return nil
}

// Lookup resolves an identifier typed by the user or decoded by the
// scanner. An empty identifier, or a call before Mount, is a no-op and
// reports false.
func (d *Dashboard) Lookup(ctx context.Context, identifier string) (patient.Result, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return patient.Result{}, false
	}
	d.mu.Lock()
	mounted := d.mounted
	d.mu.Unlock()
	if !mounted {
		d.logger.Warn().Str("identifier", identifier).Msg("lookup before mount ignored")
		return patient.Result{}, false
	}

	return d.resolver.Resolve(ctx, identifier), true
}

// StartScanning opens the camera and looks up every decoded identifier.
// onResult, when set, is called after each lookup completes.
func (d *Dashboard) StartScanning(cfg scan.Config, onResult func(patient.Result)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.mounted {
		return &router.ErrRedirect{To: router.PathLogin, Reason: "dashboard not mounted"}
	}
	if d.scanner != nil && d.scanner.State() != scan.StateDisposed {
		return scan.ErrRunning
	}

	ctx := d.ctx
	scanner := scan.New(d.deps.Camera, d.deps.Frames, d.deps.Decoder, d.deps.Logger)
	onDecode := func(identifier string) {
		d.pending.Add(1)
		go func() {
			defer d.pending.Done()
			res, ok := d.Lookup(ctx, identifier)
			if ok && onResult != nil {
				onResult(res)
			}
		}()
	}
	if err := scanner.Start(ctx, cfg, onDecode); err != nil {
		return err
	}
	d.scanner = scanner
	return nil
}

// Scanner returns the active scan lifecycle, if any.
func (d *Dashboard) Scanner() *scan.Lifecycle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanner
}

// StopScanning disposes the scanner and keeps the dashboard mounted.
func (d *Dashboard) StopScanning() {
	if s := d.Scanner(); s != nil {
		s.Dispose()
	}
}

func (d *Dashboard) Patient() patient.Snapshot {
	return d.resolver.View().Snapshot()
}

// Chart returns the current vitals as chart series.
func (d *Dashboard) Chart() vitals.Series {
	return d.deps.Normalizer.Normalize(d.Patient().Vitals)
}

// Table returns the current vitals as table rows.
func (d *Dashboard) Table() []vitals.Row {
	return d.deps.Normalizer.Rows(d.Patient().Vitals)
}

func (d *Dashboard) Editor() *diagnosis.Editor { return d.editor }

// WaitLookups blocks until lookups started by the scanner have finished.
// Call it once the scanner has stopped.
func (d *Dashboard) WaitLookups() { d.pending.Wait() }

// Unmount releases the camera and abandons lookups still in flight.
func (d *Dashboard) Unmount() {
	d.StopScanning()

	d.mu.Lock()
	cancel := d.cancel
	d.mounted = false
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.pending.Wait()
}
