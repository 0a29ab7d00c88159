package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/migrantcare/nexus/internal/domain/account"
	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
)

func loginCmd(a *app) *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and open the dashboard for your role",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := session.ParseRole(role)
			if err != nil {
				return err
			}
			svc := account.NewService(a.client, a.sessions, a.logger)
			path, err := svc.Login(cmd.Context(), account.Credentials{
				Username: username,
				Password: password,
				Role:     r,
			})
			if err != nil {
				return err
			}
			return a.emit(map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintf(w, "Signed in. Opening %s\n", path)
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(session.RoleMigrant), "migrant, clinician or authority")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and return to the login page",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := account.NewService(a.client, a.sessions, a.logger)
			path, err := svc.Logout(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintf(w, "Signed out. Opening %s\n", path)
			})
		},
	}
}

type whoami struct {
	SignedIn  bool       `json:"signed_in"`
	Username  string     `json:"username,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired,omitempty"`
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := whoami{}
			if s, ok := a.sessions.Get(cmd.Context()); ok {
				info := session.Inspect(s.Token)
				out = whoami{
					SignedIn:  true,
					Username:  s.Username,
					Role:      string(s.Role),
					ExpiresAt: info.ExpiresAt,
					Expired:   info.Expired(time.Now()),
				}
			}
			return a.emit(out, func(w io.Writer) {
				if !out.SignedIn {
					fmt.Fprintln(w, "Not signed in.")
					return
				}
				fmt.Fprintf(w, "%s (%s)\n", out.Username, out.Role)
				if out.Expired {
					fmt.Fprintln(w, "Token has expired; sign in again if requests are rejected.")
				}
			})
		},
	}
}

func navigateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <path>",
		Short: "Resolve where a navigation ends up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := router.Resolve(cmd.Context(), a.sessions, args[0])
			if err != nil {
				return err
			}
			return a.emit(map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintln(w, path)
			})
		},
	}
}
