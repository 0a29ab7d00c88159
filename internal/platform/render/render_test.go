package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/pkg/models"
)

func TestStatCards(t *testing.T) {
	var buf bytes.Buffer
	StatCards(&buf, MetricCards(&models.AuthorityMetrics{TotalMigrants: 1200, EligibleCount: 830, AIAlerts: 14}))
	out := buf.String()
	for _, want := range []string{"TOTAL MIGRANTS", "1200", "830", "14"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPatient(t *testing.T) {
	var buf bytes.Buffer
	age := 34
	Patient(&buf, &models.PatientRecord{
		Profile:         &models.Profile{Name: "Ravi Kumar", Age: &age},
		Recommendations: []models.Recommendation{{Title: "Reduce salt intake"}},
	}, "Hypertension")
	out := buf.String()
	for _, want := range []string{"Ravi Kumar", "34", "Hypertension", models.NotAvailable, "- Reduce salt intake"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	Patient(&buf, nil, "")
	if !strings.Contains(buf.String(), "No patient loaded") {
		t.Errorf("unexpected output for nil record: %s", buf.String())
	}
}

func TestVitalsTableAndChart(t *testing.T) {
	var buf bytes.Buffer
	VitalsTable(&buf, []vitals.Row{{Date: "3/1/2024", Temperature: "37.2", BloodPressure: models.NotAvailable, HeartRate: "72"}})
	if !strings.Contains(buf.String(), "3/1/2024") || !strings.Contains(buf.String(), models.NotAvailable) {
		t.Errorf("unexpected table:\n%s", buf.String())
	}

	buf.Reset()
	Chart(&buf, vitals.Series{
		Labels:      []string{"3/1/2024"},
		Temperature: []float64{37.2},
		HeartRate:   []float64{0},
		Systolic:    []float64{120},
		Diastolic:   []float64{80},
	})
	if !strings.Contains(buf.String(), "120") || !strings.Contains(buf.String(), "37.2") {
		t.Errorf("unexpected chart:\n%s", buf.String())
	}

	buf.Reset()
	Chart(&buf, vitals.Series{})
	if !strings.Contains(buf.String(), "No vitals") {
		t.Errorf("unexpected empty chart output: %s", buf.String())
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, map[string]int{"alerts": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"alerts": 2`) {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
}
