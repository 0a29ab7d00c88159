package models

import (
	"bytes"
	"fmt"
	"strconv"
)

// Wire values shared by the client, the sandbox backend and the CLI.

// Role values as the backend spells them.
const (
	WireRoleMigrant   = "migrant"
	WireRoleDoctor    = "doctor"
	WireRoleAuthority = "authority"
)

// NotAvailable is the placeholder tabular views show for absent values.
const NotAvailable = "N/A"

// InvalidDate is what a label becomes when a reading has no usable timestamp.
const InvalidDate = "Invalid Date"

// -- Login --

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role" validate:"required,oneof=migrant doctor clinician authority"`
}

type LoginResponse struct {
	Token    string `json:"token" validate:"required"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// ErrorResponse is the body the backend sends with non-2xx statuses. Django
// REST Framework uses "detail", the login view uses "message".
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// -- Patient --

// RecordID is a medical record primary key. The backend sends integers, but
// string keys are accepted as well.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	if _, err := strconv.ParseInt(string(data), 10, 64); err != nil {
		return fmt.Errorf("record id %s is neither a string nor an integer", data)
	}
	*id = RecordID(data)
	return nil
}

func (id RecordID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return []byte(strconv.Quote(string(id))), nil
}

func (id RecordID) String() string { return string(id) }

type Profile struct {
	Name   string `json:"name"`
	Age    *int   `json:"age"`
	Gender string `json:"gender"`
}

type MedicalRecord struct {
	ID        RecordID `json:"id" validate:"required"`
	Diagnosis string   `json:"diagnosis"`
}

type Recommendation struct {
	Title string `json:"title"`
}

// PatientRecord is the composite view returned by the QR lookup endpoint.
// MedicalRecords[0] is the active record.
type PatientRecord struct {
	Profile         *Profile         `json:"profile" validate:"required"`
	MedicalRecords  []MedicalRecord  `json:"medical_records" validate:"dive"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Clone returns a deep copy.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	out := &PatientRecord{}
	if p.Profile != nil {
		prof := *p.Profile
		if p.Profile.Age != nil {
			age := *p.Profile.Age
			prof.Age = &age
		}
		out.Profile = &prof
	}
	out.MedicalRecords = append([]MedicalRecord(nil), p.MedicalRecords...)
	out.Recommendations = append([]Recommendation(nil), p.Recommendations...)
	return out
}

// VitalReading is one timestamped measurement. Every field is optional.
type VitalReading struct {
	Temperature   *float64 `json:"temperature,omitempty"`
	BloodPressure *string  `json:"blood_pressure,omitempty"`
	HeartRate     *float64 `json:"heart_rate,omitempty"`
	Timestamp     *string  `json:"timestamp,omitempty"`
}

type DiagnosisUpdate struct {
	Diagnosis string `json:"diagnosis"`
}

// -- Dashboards --

type AuthorityMetrics struct {
	TotalMigrants int `json:"total_migrants"`
	EligibleCount int `json:"eligible_count"`
	AIAlerts      int `json:"ai_alerts"`
}

// MigrantDashboard is shown count-only for schemes, so their shape is left open.
type MigrantDashboard struct {
	Appointments    int            `json:"appointments"`
	Alerts          int            `json:"alerts"`
	Schemes         []any          `json:"schemes"`
	Profile         *Profile       `json:"profile"`
	MedicalRecord   *MedicalRecord `json:"medical_record"`
	Recommendations []string       `json:"recommendations"`
}
