package migrant

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/internal/platform/router"
	"github.com/migrantcare/nexus/internal/platform/session"
	"github.com/migrantcare/nexus/pkg/models"
)

type fakeFetcher struct {
	data  *models.MigrantDashboard
	err   error
	calls int
}

func (f *fakeFetcher) MigrantDashboard(context.Context) (*models.MigrantDashboard, error) {
	f.calls++
	return f.data, f.err
}

func TestSummarize_Defaults(t *testing.T) {
	s := Summarize(&models.MigrantDashboard{})
	if s.Appointments != 0 || s.Alerts != 0 || s.Schemes != 0 {
		t.Errorf("expected zero counts, got %+v", s)
	}
	if s.LatestDiagnosis != models.NotAvailable || s.Age != models.NotAvailable || s.Gender != models.NotAvailable {
		t.Errorf("expected placeholders, got %+v", s)
	}
	if s.Recommendations == nil {
		t.Error("expected an empty recommendation list")
	}
	if Summarize(nil).LatestDiagnosis != models.NotAvailable {
		t.Error("expected placeholders for a nil payload")
	}
}

func TestSummarize_Values(t *testing.T) {
	age := 29
	s := Summarize(&models.MigrantDashboard{
		Appointments:    2,
		Alerts:          1,
		Schemes:         []any{"PM-JAY", map[string]any{"name": "ESIC"}},
		Profile:         &models.Profile{Age: &age, Gender: "female"},
		MedicalRecord:   &models.MedicalRecord{Diagnosis: "Anemia"},
		Recommendations: []string{"Iron supplements"},
	})
	if s.Appointments != 2 || s.Alerts != 1 || s.Schemes != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Age != "29" || s.Gender != "female" || s.LatestDiagnosis != "Anemia" {
		t.Errorf("unexpected profile fields: %+v", s)
	}
	if len(s.Recommendations) != 1 {
		t.Errorf("unexpected recommendations: %v", s.Recommendations)
	}
}

func TestLoad_GuardsOnSession(t *testing.T) {
	f := &fakeFetcher{data: &models.MigrantDashboard{}}
	d := New(f, session.NewContext(session.NewMemoryStore(), zerolog.Nop()), zerolog.Nop())

	_, err := d.Load(context.Background())
	var redirect *router.ErrRedirect
	if !errors.As(err, &redirect) || redirect.To != router.PathLogin {
		t.Fatalf("expected redirect to login, got %v", err)
	}
	if f.calls != 0 {
		t.Error("dashboard must not fetch without a session")
	}
}

func TestLoad_FetchError(t *testing.T) {
	sc := session.NewContext(session.NewMemoryStore(), zerolog.Nop())
	sc.Set(context.Background(), "tok", session.RoleMigrant, "m1")
	d := New(&fakeFetcher{err: errors.New("boom")}, sc, zerolog.Nop())
	if _, err := d.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
