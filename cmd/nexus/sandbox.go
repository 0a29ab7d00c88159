package main

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/spf13/cobra"

	"github.com/migrantcare/nexus/internal/platform/auth"
	"github.com/migrantcare/nexus/internal/platform/render"
	"github.com/migrantcare/nexus/internal/platform/sandbox"
)

func sandboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Local demo backend",
	}
	cmd.AddCommand(sandboxServeCmd(a))
	cmd.AddCommand(sandboxQRCmd(a))
	return cmd
}

// newSandbox seeds a dataset from config and returns its handler.
func (a *app) newSandbox() (*sandbox.Handler, *sandbox.SeedResult, error) {
	seed := sandbox.DefaultSeedConfig()
	seed.Seed = a.cfg.SandboxSeed
	seed.PatientCount = a.cfg.SandboxPatients

	seeder := sandbox.NewSeeder(seed)
	result, err := seeder.Generate()
	if err != nil {
		return nil, nil, fmt.Errorf("seed sandbox: %w", err)
	}
	h := sandbox.NewHandler(seeder, sandbox.HandlerConfig{
		JWT:            auth.JWTConfig{SigningKey: []byte(a.cfg.SandboxSigningKey), Issuer: "nexus-sandbox"},
		VitalsEnvelope: a.cfg.SandboxVitalsEnvelope,
	}, a.logger)
	return h, result, nil
}

func sandboxServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the sandbox backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, seeded, err := a.newSandbox()
			if err != nil {
				return err
			}
			e := sandbox.NewServer(h, a.logger)

			rows := make([][]string, 0, len(seeded.Identifiers))
			for i, id := range seeded.Identifiers {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), id})
			}
			render.Rows(a.out, []string{"#", "QR Identifier"}, rows)
			fmt.Fprintf(a.out, "Accounts: %s, %s, %s (password %q)\n",
				sandbox.MigrantUsername, sandbox.DoctorUsername, sandbox.AuthorityUsername, sandbox.DemoPassword)

			// Graceful shutdown
			go func() {
				addr := ":" + a.cfg.SandboxPort
				a.logger.Info().Str("addr", addr).Int("patients", seeded.Patients).Msg("starting sandbox")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					a.logger.Fatal().Err(err).Msg("sandbox server error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.logger.Info().Msg("shutting down sandbox")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := e.Shutdown(ctx); err != nil {
				return fmt.Errorf("sandbox shutdown: %w", err)
			}
			a.logger.Info().Msg("sandbox stopped")
			return nil
		},
	}
}

func sandboxQRCmd(a *app) *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "qr <identifier>",
		Short: "Write a QR code PNG for an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0] + ".png"
			}
			if err := writeQR(out, args[0], size); err != nil {
				return err
			}
			return a.emit(map[string]string{"file": out}, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s\n", out)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output PNG path (default <identifier>.png)")
	cmd.Flags().IntVar(&size, "size", 200, "image side in pixels")
	return cmd
}

func writeQR(path, text string, size int) error {
	matrix, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, matrix); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
