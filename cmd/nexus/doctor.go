package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/migrantcare/nexus/internal/domain/clinician"
	"github.com/migrantcare/nexus/internal/domain/patient"
	"github.com/migrantcare/nexus/internal/domain/scan"
	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/internal/platform/camera"
	"github.com/migrantcare/nexus/internal/platform/render"
	"github.com/migrantcare/nexus/pkg/models"
)

func doctorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"clinician"},
		Short:   "Clinician dashboard",
	}
	cmd.AddCommand(doctorLookupCmd(a))
	cmd.AddCommand(doctorScanCmd(a))
	cmd.AddCommand(doctorDiagnosisCmd(a))
	return cmd
}

func (a *app) clinicianDashboard(frames camera.Source) *clinician.Dashboard {
	return clinician.New(clinician.Deps{
		Sessions:   a.sessions,
		Client:     a.client,
		Frames:     frames,
		Normalizer: a.normalizer,
		Logger:     a.logger,
	})
}

// patientView is the --json shape of a looked-up patient.
type patientView struct {
	Identifier  string                `json:"identifier"`
	Record      *models.PatientRecord `json:"record"`
	RecordError string                `json:"record_error,omitempty"`
	Diagnosis   string                `json:"diagnosis"`
	Vitals      []vitals.Row          `json:"vitals"`
	VitalsError string                `json:"vitals_error,omitempty"`
	Chart       vitals.Series         `json:"chart"`
}

func (a *app) showPatient(d *clinician.Dashboard, res patient.Result) error {
	snap := d.Patient()
	v := patientView{
		Identifier: res.Identifier,
		Record:     snap.Record,
		Diagnosis:  d.Editor().Display(),
		Vitals:     d.Table(),
		Chart:      d.Chart(),
	}
	if snap.RecordErr != nil {
		v.RecordError = reason(snap.RecordErr)
	}
	if snap.VitalsErr != nil {
		v.VitalsError = reason(snap.VitalsErr)
	}

	return a.emit(v, func(w io.Writer) {
		fmt.Fprintf(w, "Patient %s\n", v.Identifier)
		if v.RecordError != "" {
			fmt.Fprintf(w, "Could not load patient record: %s\n", v.RecordError)
		} else {
			render.Patient(w, v.Record, v.Diagnosis)
		}
		if v.VitalsError != "" {
			fmt.Fprintf(w, "Could not load vitals: %s\n", v.VitalsError)
			return
		}
		render.Chart(w, v.Chart)
		render.VitalsTable(w, v.Vitals)
	})
}

func doctorLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <identifier>",
		Short: "Load a patient by QR identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := a.clinicianDashboard(nil)
			if err := d.Mount(ctx); err != nil {
				return a.redirected(err)
			}
			defer d.Unmount()

			res, ok := d.Lookup(ctx, args[0])
			if !ok {
				return fmt.Errorf("identifier is required")
			}
			return a.showPatient(d, res)
		},
	}
}

func doctorScanCmd(a *app) *cobra.Command {
	var (
		framesDir string
		fps       int
		box       int
		loop      bool
		once      bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan QR codes from a frame source and load each patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := a.clinicianDashboard(camera.DirSource{Dir: framesDir, Loop: loop})
			if err := d.Mount(ctx); err != nil {
				return a.redirected(err)
			}
			defer d.Unmount()

			found := make(chan struct{})
			var (
				mu       sync.Mutex
				foundOne sync.Once
				showErr  error
			)
			onResult := func(res patient.Result) {
				if res.Stale {
					return
				}
				mu.Lock()
				if err := a.showPatient(d, res); err != nil && showErr == nil {
					showErr = err
				}
				mu.Unlock()
				foundOne.Do(func() { close(found) })
			}

			if err := d.StartScanning(scan.Config{FramesPerSecond: fps, BoxSize: box}, onResult); err != nil {
				return err
			}
			scanner := d.Scanner()

			ended := make(chan struct{})
			go func() {
				scanner.Wait()
				close(ended)
			}()

			select {
			case <-ended:
			case <-ctx.Done():
			case <-onceChan(once, found):
			}
			d.StopScanning()
			d.WaitLookups()

			mu.Lock()
			defer mu.Unlock()
			if showErr != nil {
				return showErr
			}
			if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("scanner reported an error")
			}
			if scanner.Last() == "" {
				fmt.Fprintln(a.out, "No QR code found.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&framesDir, "frames", "", "directory of PNG/JPEG frames to scan")
	cmd.Flags().IntVar(&fps, "fps", a.cfg.ScanFPS, "frames decoded per second")
	cmd.Flags().IntVar(&box, "box", a.cfg.ScanBoxSize, "side of the centred scan box in pixels (0 scans the whole frame)")
	cmd.Flags().BoolVar(&loop, "loop", false, "replay the frames until interrupted")
	cmd.Flags().BoolVar(&once, "once", false, "stop after the first patient is loaded")
	cmd.MarkFlagRequired("frames")
	return cmd
}

// onceChan returns found when once is set, and a nil channel otherwise.
func onceChan(once bool, found chan struct{}) <-chan struct{} {
	if !once {
		return nil
	}
	return found
}

func doctorDiagnosisCmd(a *app) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "diagnosis <identifier>",
		Short: "Show or update the active diagnosis of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := a.clinicianDashboard(nil)
			if err := d.Mount(ctx); err != nil {
				return a.redirected(err)
			}
			defer d.Unmount()

			res, ok := d.Lookup(ctx, args[0])
			if !ok {
				return fmt.Errorf("identifier is required")
			}
			if res.RecordErr != nil {
				return a.redirected(fmt.Errorf("load patient %s: %w", res.Identifier, res.RecordErr))
			}

			editor := d.Editor()
			if !cmd.Flags().Changed("set") {
				return a.emit(map[string]string{"diagnosis": editor.Display()}, func(w io.Writer) {
					fmt.Fprintln(w, editor.Display())
				})
			}

			if _, err := editor.StartEdit(); err != nil {
				return err
			}
			updated, err := editor.Save(ctx, text)
			if err != nil {
				return err
			}
			return a.emit(updated, func(w io.Writer) {
				fmt.Fprintf(w, "Diagnosis saved: %s\n", editor.Display())
			})
		},
	}
	cmd.Flags().StringVar(&text, "set", "", "new diagnosis text")
	return cmd
}
