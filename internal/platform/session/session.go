// Package session holds the authenticated user's token and role for the
// lifetime of a client process. A Context is built once at the application
// root, handed to every dashboard, and cleared on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/pkg/models"
)

// ErrNoSession is returned by stores that hold nothing.
var ErrNoSession = errors.New("no session")

type Role string

const (
	RoleMigrant   Role = "migrant"
	RoleClinician Role = "clinician"
	RoleAuthority Role = "authority"
)

// ParseRole accepts the user-facing role names plus the backend's "doctor".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "migrant":
		return RoleMigrant, nil
	case "clinician", "doctor":
		return RoleClinician, nil
	case "authority":
		return RoleAuthority, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Wire returns the role value the backend expects.
func (r Role) Wire() string {
	switch r {
	case RoleClinician:
		return models.WireRoleDoctor
	case RoleMigrant:
		return models.WireRoleMigrant
	case RoleAuthority:
		return models.WireRoleAuthority
	}
	return string(r)
}

type Session struct {
	Token    string `json:"token"`
	Role     Role   `json:"role"`
	Username string `json:"username,omitempty"`
}

// Store persists a single session.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context) error
}

// Context is the process-wide session holder. The store is consulted once;
// afterwards the cached value is authoritative for this process.
type Context struct {
	mu     sync.RWMutex
	store  Store
	logger zerolog.Logger

	loaded  bool
	current *Session
}

func NewContext(store Store, logger zerolog.Logger) *Context {
	return &Context{
		store:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

func (c *Context) Set(ctx context.Context, token string, role Role, username string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	s := &Session{Token: token, Role: role, Username: username}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.current = s
	c.loaded = true
	return nil
}

// Get returns a copy of the current session. The second result is false when
// no token is present.
func (c *Context) Get(ctx context.Context) (Session, bool) {
	c.mu.RLock()
	if c.loaded {
		defer c.mu.RUnlock()
		if c.current == nil {
			return Session{}, false
		}
		return *c.current, true
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		s, err := c.store.Load(ctx)
		switch {
		case errors.Is(err, ErrNoSession):
		case err != nil:
			c.logger.Warn().Err(err).Msg("failed to load stored session")
		case s != nil && s.Token != "":
			c.current = s
		}
		c.loaded = true
	}
	if c.current == nil {
		return Session{}, false
	}
	return *c.current, true
}

func (c *Context) IsAuthenticated(ctx context.Context) bool {
	_, ok := c.Get(ctx)
	return ok
}

// Clear drops the session from memory and from the store under one lock.
// The in-process session is gone even when the store delete fails.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
	c.loaded = true
	if err := c.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete stored session: %w", err)
	}
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (c *Context) Token(ctx context.Context) string {
	s, ok := c.Get(ctx)
	if !ok {
		return ""
	}
	return s.Token
}
