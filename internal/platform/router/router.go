// Package router maps navigation targets to dashboards and applies the
// session guard every dashboard runs on mount.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/migrantcare/nexus/internal/platform/session"
)

const (
	PathLogin     = "/"
	PathMigrant   = "/migrant/dashboard"
	PathDoctor    = "/doctor/dashboard"
	PathAuthority = "/authority/dashboard"
)

// ErrRedirect tells the caller to navigate elsewhere instead of rendering.
type ErrRedirect struct {
	To     string
	Reason string
}

func (e *ErrRedirect) Error() string {
	return fmt.Sprintf("redirect to %s: %s", e.To, e.Reason)
}

var dashboards = map[string]session.Role{
	PathMigrant:   session.RoleMigrant,
	PathDoctor:    session.RoleClinician,
	PathAuthority: session.RoleAuthority,
}

// DashboardPath returns the landing route for a role.
func DashboardPath(role session.Role) string {
	switch role {
	case session.RoleMigrant:
		return PathMigrant
	case session.RoleClinician:
		return PathDoctor
	case session.RoleAuthority:
		return PathAuthority
	}
	return PathLogin
}

// IsDashboard reports whether path is one of the guarded dashboard routes.
func IsDashboard(path string) bool {
	_, ok := dashboards[normalize(path)]
	return ok
}

// Guard returns a redirect to the login route when no token is present.
// Only presence is checked: an expired token still passes.
func Guard(ctx context.Context, sc *session.Context) error {
	if !sc.IsAuthenticated(ctx) {
		return &ErrRedirect{To: PathLogin, Reason: "no session"}
	}
	return nil
}

// Resolve returns where a navigation to path ends up.
func Resolve(ctx context.Context, sc *session.Context, path string) (string, error) {
	p := normalize(path)
	if p == PathLogin {
		return PathLogin, nil
	}
	if _, ok := dashboards[p]; !ok {
		return "", fmt.Errorf("unknown route %q", path)
	}
	if err := Guard(ctx, sc); err != nil {
		return PathLogin, nil
	}
	return p, nil
}

func normalize(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return PathLogin
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
