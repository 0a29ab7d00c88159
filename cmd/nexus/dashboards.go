package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/migrantcare/nexus/internal/domain/authority"
	"github.com/migrantcare/nexus/internal/domain/migrant"
	"github.com/migrantcare/nexus/internal/platform/render"
)

func migrantCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrant",
		Short: "Migrant dashboard",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Show appointments, alerts, schemes and the latest diagnosis",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := migrant.New(a.client, a.sessions, a.logger).Load(cmd.Context())
			if err != nil {
				return a.redirected(err)
			}
			return a.emit(summary, func(w io.Writer) {
				render.StatCards(w, []render.Card{
					{Title: "Appointments", Value: strconv.Itoa(summary.Appointments)},
					{Title: "Alerts", Value: strconv.Itoa(summary.Alerts)},
					{Title: "Schemes", Value: strconv.Itoa(summary.Schemes)},
				})
				render.StatCards(w, []render.Card{
					{Title: "Age", Value: summary.Age},
					{Title: "Gender", Value: summary.Gender},
					{Title: "Latest Diagnosis", Value: summary.LatestDiagnosis},
				})
				if len(summary.Recommendations) == 0 {
					fmt.Fprintln(w, "No recommendations.")
					return
				}
				fmt.Fprintln(w, "Recommendations:")
				for _, r := range summary.Recommendations {
					fmt.Fprintf(w, "  - %s\n", r)
				}
			})
		},
	})
	return cmd
}

func authorityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authority",
		Short: "Health authority dashboard",
	}
	dashboard := func() *authority.Dashboard {
		return authority.New(a.client, a.sessions, a.normalizer, a.logger)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Show migrant, eligibility and alert counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := dashboard().Metrics(cmd.Context())
			if err != nil {
				return a.redirected(err)
			}
			return a.emit(m, func(w io.Writer) {
				render.StatCards(w, render.MetricCards(m))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "vitals <identifier>",
		Short: "Show a patient's vitals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := dashboard().Vitals(cmd.Context(), args[0])
			if err != nil {
				return a.redirected(err)
			}
			return a.emit(rows, func(w io.Writer) {
				render.VitalsTable(w, rows)
			})
		},
	})
	return cmd
}
