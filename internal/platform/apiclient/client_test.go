package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/pkg/models"
)

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Tokens: staticToken("tok-1"), Logger: zerolog.Nop()})
}

func TestLogin_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a bearer token")
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
		var body models.LoginRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Username != "dr.amara" || body.Role != "doctor" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.Write([]byte(`{"token":"abc","role":"doctor","username":"dr.amara"}`))
	})

	resp, err := c.Login(context.Background(), models.LoginRequest{Username: "dr.amara", Password: "pw", Role: "doctor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "abc" || resp.Role != "doctor" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestLogin_FailureCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := c.Login(context.Background(), models.LoginRequest{Username: "x", Password: "y", Role: "migrant"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if Message(err) != "Invalid credentials" {
		t.Errorf("expected server message, got %q", Message(err))
	}
}

func TestLogin_ResponseWithoutTokenIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"role":"doctor"}`))
	})
	if _, err := c.Login(context.Background(), models.LoginRequest{Username: "x", Password: "y", Role: "doctor"}); err == nil {
		t.Fatal("expected validation error for missing token")
	}
}

func TestLogin_RejectsUnknownRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	if _, err := c.Login(context.Background(), models.LoginRequest{Username: "x", Password: "y", Role: "admin"}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestFullPatientInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.EscapedPath() != "/api/get_full_patient_info_by_qr/a%2Fb" {
			t.Errorf("expected escaped identifier, got %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{
			"profile": {"name": "Ravi Kumar", "age": 34, "gender": "male"},
			"medical_records": [{"id": 7, "diagnosis": "Hypertension"}, {"id": "legacy-3", "diagnosis": ""}],
			"recommendations": [{"title": "Reduce salt intake"}]
		}`))
	})

	rec, err := c.FullPatientInfo(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Profile.Name != "Ravi Kumar" || rec.Profile.Age == nil || *rec.Profile.Age != 34 {
		t.Errorf("unexpected profile: %+v", rec.Profile)
	}
	if len(rec.MedicalRecords) != 2 || rec.MedicalRecords[0].ID != "7" || rec.MedicalRecords[1].ID != "legacy-3" {
		t.Errorf("unexpected records: %+v", rec.MedicalRecords)
	}
	if len(rec.Recommendations) != 1 || rec.Recommendations[0].Title != "Reduce salt intake" {
		t.Errorf("unexpected recommendations: %+v", rec.Recommendations)
	}
}

func TestFullPatientInfo_MissingProfileIsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"medical_records": [], "recommendations": []}`))
	})
	if _, err := c.FullPatientInfo(context.Background(), "qr-1"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFullPatientInfo_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found."}`))
	})
	_, err := c.FullPatientInfo(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Not found." {
		t.Errorf("expected detail to be used as message, got %v", err)
	}
}

func TestPatientVitals_BothShapes(t *testing.T) {
	payloads := map[string]string{
		"bare":     `[{"temperature": 37.2, "blood_pressure": "120/80", "heart_rate": 72, "timestamp": "2024-03-01T10:00:00Z"}]`,
		"envelope": `{"vitals": [{"temperature": 37.2, "blood_pressure": "120/80", "heart_rate": 72, "timestamp": "2024-03-01T10:00:00Z"}]}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/get_patient_vitals/qr-9" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				io.WriteString(w, payload)
			})
			got, err := c.PatientVitals(context.Background(), "qr-9")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 1 || *got[0].BloodPressure != "120/80" || *got[0].HeartRate != 72 {
				t.Errorf("unexpected readings: %+v", got)
			}
		})
	}
}

func TestUpdateDiagnosis(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/medical-records/7/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			t.Errorf("expected JSON content type, got %s", r.Header.Get("Content-Type"))
		}
		var body models.DiagnosisUpdate
		json.NewDecoder(r.Body).Decode(&body)
		if body.Diagnosis != "Stage 1 hypertension" {
			t.Errorf("unexpected diagnosis %q", body.Diagnosis)
		}
		w.Write([]byte(`{"id": 7, "diagnosis": "Stage 1 hypertension"}`))
	})

	rec, err := c.UpdateDiagnosis(context.Background(), "7", "Stage 1 hypertension")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "7" || rec.Diagnosis != "Stage 1 hypertension" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestUpdateDiagnosis_RequiresID(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Logger: zerolog.Nop()})
	if _, err := c.UpdateDiagnosis(context.Background(), "", "x"); err == nil {
		t.Fatal("expected error for empty record id")
	}
}

func TestAuthorityMetricsAndMigrantDashboard(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/authority_dashboard_metrics/":
			w.Write([]byte(`{"total_migrants": 1200, "eligible_count": 830, "ai_alerts": 14}`))
		case "/api/migrant/dashboard/":
			w.Write([]byte(`{"appointments": 2, "alerts": 1, "schemes": [{"name": "PM-JAY"}, "ESIC"],
				"profile": {"age": 29, "gender": "female"}, "medical_record": {"diagnosis": "Anemia"},
				"recommendations": ["Iron supplements"]}`))
		default:
			http.NotFound(w, r)
		}
	})

	m, err := c.AuthorityMetrics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TotalMigrants != 1200 || m.EligibleCount != 830 || m.AIAlerts != 14 {
		t.Errorf("unexpected metrics: %+v", m)
	}

	d, err := c.MigrantDashboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Schemes) != 2 || d.MedicalRecord == nil || d.MedicalRecord.Diagnosis != "Anemia" {
		t.Errorf("unexpected dashboard: %+v", d)
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(Config{BaseURL: srv.URL, Logger: zerolog.Nop()})
	_, err := c.AuthorityMetrics(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if StatusCode(err) != 0 {
		t.Errorf("transport errors carry no status, got %d", StatusCode(err))
	}
}
