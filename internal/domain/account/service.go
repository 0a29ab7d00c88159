// Package account implements login and logout against the session context.
package account

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/apiclient"
	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
	"github.com/migrantcare/nexus/pkg/models"
)

// DefaultLoginFailure is shown when the server gives no reason.
const DefaultLoginFailure = "Login failed. Please try again."

type Authenticator interface {
	Login(ctx context.Context, in models.LoginRequest) (*models.LoginResponse, error)
}

type Credentials struct {
	Username string
	Password string
	Role     session.Role
}

// LoginError is shown to the user in place of the form; it never redirects.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

type Service struct {
	auth     Authenticator
	sessions *session.Context
	logger   zerolog.Logger
}

func NewService(auth Authenticator, sessions *session.Context, logger zerolog.Logger) *Service {
	return &Service{
		auth:     auth,
		sessions: sessions,
		logger:   logger.With().Str("component", "account").Logger(),
	}
}

// Login authenticates, stores the session and returns the dashboard route
// for the role the server assigned.
func (s *Service) Login(ctx context.Context, c Credentials) (string, error) {
	resp, err := s.auth.Login(ctx, models.LoginRequest{
		Username: c.Username,
		Password: c.Password,
		Role:     c.Role.Wire(),
	})
	if err != nil {
		msg := apiclient.Message(err)
		if msg == "" {
			msg = DefaultLoginFailure
		}
		s.logger.Warn().Err(err).Str("username", c.Username).Msg("login failed")
		return "", &LoginError{Message: msg, Err: err}
	}

	role, err := session.ParseRole(resp.Role)
	if err != nil {
		role = c.Role
	}
	username := resp.Username
	if username == "" {
		username = c.Username
	}
	if err := s.sessions.Set(ctx, resp.Token, role, username); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}

	s.logger.Info().Str("username", username).Str("role", string(role)).Msg("logged in")
	return router.DashboardPath(role), nil
}

// Logout clears the whole session and returns the login route. The
// in-process session is gone even if the store reports an error.
func (s *Service) Logout(ctx context.Context) (string, error) {
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to remove stored session")
		return router.PathLogin, err
	}
	return router.PathLogin, nil
}
