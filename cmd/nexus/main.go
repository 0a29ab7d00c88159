package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/migrantcare/nexus/internal/config"
	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/internal/platform/apiclient"
	"github.com/migrantcare/nexus/internal/platform/render"
	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := newLogger(cfg, os.Stderr)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("store", cfg.SessionStore).Msg("failed to open session store")
		os.Exit(1)
	}
	defer closeStore()

	a := newApp(cfg, store, logger, os.Stdout)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		closeStore()
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// openStore returns the configured session store and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.SessionStore {
	case config.StoreMemory:
		return session.NewMemoryStore(), noop, nil
	case config.StoreRedis:
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return session.NewRedisStore(client, "nexus:session", cfg.SessionKey), client.Close, nil
	default:
		return session.NewFileStore(cfg.SessionFile), noop, nil
	}
}

// app carries what every command needs.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	out        io.Writer
	sessions   *session.Context
	client     *apiclient.Client
	normalizer vitals.Normalizer
	jsonOut    bool
}

func newApp(cfg *config.Config, store session.Store, logger zerolog.Logger, out io.Writer) *app {
	sessions := session.NewContext(store, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		sessions: sessions,
		client: apiclient.New(apiclient.Config{
			BaseURL: cfg.APIBaseURL,
			Timeout: cfg.HTTPTimeout,
			Tokens:  sessions,
			Logger:  logger,
		}),
		normalizer: vitals.NewNormalizer(cfg.DateLayout, time.Local),
	}
}

// emit writes v as JSON under --json, otherwise calls text.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.jsonOut {
		return render.JSON(a.out, v)
	}
	text(a.out)
	return nil
}

// redirected reports a guard redirect and passes the error on, so the
// process exits non-zero.
func (a *app) redirected(err error) error {
	var redirect *router.ErrRedirect
	switch {
	case errors.As(err, &redirect):
		if a.jsonOut {
			render.JSON(a.out, map[string]string{"redirect": redirect.To})
		} else {
			fmt.Fprintf(a.out, "Not signed in. Redirecting to %s\n", redirect.To)
		}
	case apiclient.IsUnauthorized(err) && !a.jsonOut:
		fmt.Fprintln(a.out, "Session rejected by the server. Sign in again with the right role.")
	}
	return err
}

// reason is the user-facing text for a failed section load.
func reason(err error) string {
	switch {
	case apiclient.IsNotFound(err):
		return "patient not found"
	case apiclient.IsUnauthorized(err):
		return "session rejected by the server"
	}
	return err.Error()
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nexus",
		Short:         "Migrant health records client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "write machine-readable JSON")

	rootCmd.AddCommand(loginCmd(a))
	rootCmd.AddCommand(logoutCmd(a))
	rootCmd.AddCommand(whoamiCmd(a))
	rootCmd.AddCommand(navigateCmd(a))
	rootCmd.AddCommand(doctorCmd(a))
	rootCmd.AddCommand(migrantCmd(a))
	rootCmd.AddCommand(authorityCmd(a))
	rootCmd.AddCommand(sandboxCmd(a))
	return rootCmd
}
