package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/migrantcare/nexus/pkg/models"
)

func (c *Client) Login(ctx context.Context, in models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	data, err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/api/login/", body: in})
	if err != nil {
		return nil, err
	}
	out := &models.LoginResponse{}
	if err := decodeInto("login", data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AuthorityMetrics(ctx context.Context) (*models.AuthorityMetrics, error) {
	data, err := c.do(ctx, request{op: "authority metrics", method: http.MethodGet, path: "/api/authority_dashboard_metrics/", auth: true})
	if err != nil {
		return nil, err
	}
	out := &models.AuthorityMetrics{}
	if err := decodeInto("authority metrics", data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PatientVitals accepts both the bare array and the {"vitals": [...]} shape.
func (c *Client) PatientVitals(ctx context.Context, identifier string) ([]models.VitalReading, error) {
	data, err := c.do(ctx, request{op: "patient vitals", method: http.MethodGet, path: "/api/get_patient_vitals/" + url.PathEscape(identifier), auth: true})
	if err != nil {
		return nil, err
	}
	readings, err := DecodeVitals(data)
	if err != nil {
		return nil, fmt.Errorf("patient vitals: %w", err)
	}
	return readings, nil
}

func (c *Client) FullPatientInfo(ctx context.Context, identifier string) (*models.PatientRecord, error) {
	data, err := c.do(ctx, request{op: "patient info", method: http.MethodGet, path: "/api/get_full_patient_info_by_qr/" + url.PathEscape(identifier), auth: true})
	if err != nil {
		return nil, err
	}
	out := &models.PatientRecord{}
	if err := decodeInto("patient info", data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateDiagnosis(ctx context.Context, recordID models.RecordID, diagnosis string) (*models.MedicalRecord, error) {
	if recordID == "" {
		return nil, fmt.Errorf("update diagnosis: record id is required")
	}
	data, err := c.do(ctx, request{
		op:     "update diagnosis",
		method: http.MethodPatch,
		path:   "/api/medical-records/" + url.PathEscape(recordID.String()) + "/",
		body:   models.DiagnosisUpdate{Diagnosis: diagnosis},
		auth:   true,
	})
	if err != nil {
		return nil, err
	}
	out := &models.MedicalRecord{}
	if err := decodeInto("update diagnosis", data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MigrantDashboard(ctx context.Context) (*models.MigrantDashboard, error) {
	data, err := c.do(ctx, request{op: "migrant dashboard", method: http.MethodGet, path: "/api/migrant/dashboard/", auth: true})
	if err != nil {
		return nil, err
	}
	// The embedded medical record may be a summary without an id, so only
	// the shape is checked here.
	out := &models.MigrantDashboard{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("migrant dashboard: decode response: %w", err)
	}
	return out, nil
}
