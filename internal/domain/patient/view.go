package patient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/migrantcare/nexus/pkg/models"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ErrRecordChanged is returned when the active record is no longer the one
// the caller expected to replace.
var ErrRecordChanged = errors.New("patient: active record changed")

// View is the state the clinician dashboard renders. The record and vitals
// sections load and fail independently.
type View struct {
	mu         sync.RWMutex
	generation uint64
	identifier string

	record       *models.PatientRecord
	recordStatus Status
	recordErr    error

	vitals       []models.VitalReading
	vitalsStatus Status
	vitalsErr    error
}

// Snapshot is a deep copy of a View.
type Snapshot struct {
	Identifier string
	Generation uint64

	Record       *models.PatientRecord
	RecordStatus Status
	RecordErr    error

	Vitals       []models.VitalReading
	VitalsStatus Status
	VitalsErr    error
}

func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return Snapshot{
		Identifier:   v.identifier,
		Generation:   v.generation,
		Record:       v.record.Clone(),
		RecordStatus: v.recordStatus,
		RecordErr:    v.recordErr,
		Vitals:       append([]models.VitalReading(nil), v.vitals...),
		VitalsStatus: v.vitalsStatus,
		VitalsErr:    v.vitalsErr,
	}
}

// begin starts a new lookup. Data from the previous lookup stays visible
// until the new responses arrive.
func (v *View) begin(identifier string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	v.identifier = identifier
	v.recordStatus = StatusLoading
	v.recordErr = nil
	v.vitalsStatus = StatusLoading
	v.vitalsErr = nil
	return v.generation
}

func (v *View) applyRecord(gen uint64, rec *models.PatientRecord, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return false
	}
	if err != nil {
		v.record = nil
		v.recordStatus = StatusFailed
		v.recordErr = err
		return true
	}
	v.record = rec.Clone()
	v.recordStatus = StatusLoaded
	return true
}

func (v *View) applyVitals(gen uint64, readings []models.VitalReading, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		return false
	}
	if err != nil {
		v.vitals = nil
		v.vitalsStatus = StatusFailed
		v.vitalsErr = err
		return true
	}
	v.vitals = append([]models.VitalReading(nil), readings...)
	v.vitalsStatus = StatusLoaded
	return true
}

// ActiveRecord returns medical_records[0] of the loaded patient.
func (v *View) ActiveRecord() (models.MedicalRecord, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil || len(v.record.MedicalRecords) == 0 {
		return models.MedicalRecord{}, false
	}
	return v.record.MedicalRecords[0], true
}

// ReplaceActiveRecord swaps medical_records[0] for rec, provided it still
// has expectedID. The rest of the record is untouched.
func (v *View) ReplaceActiveRecord(expectedID models.RecordID, rec models.MedicalRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil || len(v.record.MedicalRecords) == 0 {
		return ErrRecordChanged
	}
	if v.record.MedicalRecords[0].ID != expectedID {
		return fmt.Errorf("%w: expected %s, found %s", ErrRecordChanged, expectedID, v.record.MedicalRecords[0].ID)
	}
	next := v.record.Clone()
	next.MedicalRecords[0] = rec
	v.record = next
	return nil
}
