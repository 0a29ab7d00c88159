// Package render draws dashboard data as terminal tables.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"

	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/pkg/models"
)

// Card is one stat card: a title over a value.
type Card struct {
	Title string
	Value string
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

// Rows renders a plain table.
func Rows(w io.Writer, header []string, rows [][]string) {
	t := newTable(w, header)
	t.AppendBulk(rows)
	t.Render()
}

// StatCards renders the cards side by side.
func StatCards(w io.Writer, cards []Card) {
	header := make([]string, len(cards))
	values := make([]string, len(cards))
	for i, c := range cards {
		header[i] = c.Title
		values[i] = c.Value
	}
	t := newTable(w, header)
	t.Append(values)
	t.Render()
}

func MetricCards(m *models.AuthorityMetrics) []Card {
	return []Card{
		{Title: "Total Migrants", Value: strconv.Itoa(m.TotalMigrants)},
		{Title: "Eligible for Schemes", Value: strconv.Itoa(m.EligibleCount)},
		{Title: "AI Alerts", Value: strconv.Itoa(m.AIAlerts)},
	}
}

// Patient renders the profile, the active diagnosis and the recommendations.
func Patient(w io.Writer, rec *models.PatientRecord, diagnosis string) {
	if rec == nil {
		fmt.Fprintln(w, "No patient loaded.")
		return
	}
	name, age, gender := models.NotAvailable, models.NotAvailable, models.NotAvailable
	if rec.Profile != nil {
		if rec.Profile.Name != "" {
			name = rec.Profile.Name
		}
		if rec.Profile.Age != nil {
			age = strconv.Itoa(*rec.Profile.Age)
		}
		if rec.Profile.Gender != "" {
			gender = rec.Profile.Gender
		}
	}

	t := newTable(w, []string{"Field", "Value"})
	t.AppendBulk([][]string{
		{"Name", name},
		{"Age", age},
		{"Gender", gender},
		{"Diagnosis", diagnosis},
	})
	t.Render()

	if len(rec.Recommendations) == 0 {
		return
	}
	fmt.Fprintln(w, "Recommendations:")
	for _, r := range rec.Recommendations {
		fmt.Fprintf(w, "  - %s\n", r.Title)
	}
}

// VitalsTable renders readings with placeholders for missing values.
func VitalsTable(w io.Writer, rows []vitals.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No vitals recorded.")
		return
	}
	t := newTable(w, []string{"Date", "Temperature", "Blood Pressure", "Heart Rate"})
	for _, r := range rows {
		t.Append([]string{r.Date, r.Temperature, r.BloodPressure, r.HeartRate})
	}
	t.Render()
}

// Chart renders the plotted series: one column per line of the chart, one
// row per label.
func Chart(w io.Writer, s vitals.Series) {
	if s.Len() == 0 {
		fmt.Fprintln(w, "No vitals to chart.")
		return
	}
	t := newTable(w, []string{"Date", "Temperature", "Heart Rate", "Systolic", "Diastolic"})
	for i := range s.Labels {
		t.Append([]string{
			s.Labels[i],
			formatPoint(s.Temperature[i]),
			formatPoint(s.HeartRate[i]),
			formatPoint(s.Systolic[i]),
			formatPoint(s.Diastolic[i]),
		})
	}
	t.Render()
}

func formatPoint(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// JSON writes v indented, for machine-readable output.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
