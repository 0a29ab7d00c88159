// Package diagnosis implements the view/edit/save workflow for the active
// medical record's diagnosis.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/migrantcare/nexus/pkg/models"
)

var (
	ErrNoRecord      = errors.New("diagnosis: no active medical record")
	ErrNotEditing    = errors.New("diagnosis: not in edit mode")
	// ErrRecordChanged is returned by Save when the active record is no
	// longer the one the edit started on.
	ErrRecordChanged = errors.New("diagnosis: active record changed since edit started")
)

type Mode int

const (
	ModeViewing Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	if m == ModeEditing {
		return "editing"
	}
	return "viewing"
}

// Updater persists a diagnosis and returns the server's copy of the record.
type Updater interface {
	UpdateDiagnosis(ctx context.Context, id models.RecordID, diagnosis string) (*models.MedicalRecord, error)
}

// RecordHolder owns the record being edited.
type RecordHolder interface {
	ActiveRecord() (models.MedicalRecord, bool)
	ReplaceActiveRecord(expectedID models.RecordID, rec models.MedicalRecord) error
}

type Editor struct {
	updater Updater
	holder  RecordHolder
	logger  zerolog.Logger

	mu       sync.Mutex
	mode     Mode
	draft    string
	recordID models.RecordID
	session  uint64
}

func NewEditor(updater Updater, holder RecordHolder, logger zerolog.Logger) *Editor {
	return &Editor{
		updater: updater,
		holder:  holder,
		logger:  logger.With().Str("component", "diagnosis").Logger(),
	}
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Display is the diagnosis shown in view mode.
func (e *Editor) Display() string {
	rec, ok := e.holder.ActiveRecord()
	if !ok || strings.TrimSpace(rec.Diagnosis) == "" {
		return models.NotAvailable
	}
	return rec.Diagnosis
}

// StartEdit enters edit mode with the current diagnosis as the draft.
func (e *Editor) StartEdit() (string, error) {
	rec, ok := e.holder.ActiveRecord()
	if !ok {
		return "", ErrNoRecord
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = ModeEditing
	e.draft = rec.Diagnosis
	e.recordID = rec.ID
	e.session++
	return e.draft, nil
}

func (e *Editor) SetDraft(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != ModeEditing {
		return ErrNotEditing
	}
	e.draft = text
	return nil
}

// Save persists draft for the record being edited. On success the record is
// replaced with the server's copy and the editor returns to view mode. On
// failure it stays in edit mode with the draft kept so the user can retry.
// If the active record is no longer the edited one, nothing is sent, the
// edit is discarded and ErrRecordChanged is returned.
func (e *Editor) Save(ctx context.Context, draft string) (*models.MedicalRecord, error) {
	e.mu.Lock()
	if e.mode != ModeEditing {
		e.mu.Unlock()
		return nil, ErrNotEditing
	}
	e.draft = draft
	id, session := e.recordID, e.session
	e.mu.Unlock()

	log := e.logger.With().Str("record_id", id.String()).Logger()

	if active, ok := e.holder.ActiveRecord(); !ok || active.ID != id {
		e.mu.Lock()
		if e.session == session {
			e.mode = ModeViewing
			e.draft = ""
			e.recordID = ""
			e.session++
		}
		e.mu.Unlock()
		log.Warn().Msg("refused to save diagnosis for a record no longer displayed")
		return nil, ErrRecordChanged
	}

	updated, err := e.updater.UpdateDiagnosis(ctx, id, draft)
	if err != nil {
		log.Error().Err(err).Msg("failed to save diagnosis")
		return nil, fmt.Errorf("save diagnosis: %w", err)
	}

	if err := e.holder.ReplaceActiveRecord(id, *updated); err != nil {
		log.Warn().Err(err).Msg("saved diagnosis not applied to the current view")
	}

	e.mu.Lock()
	if e.session == session && e.mode == ModeEditing {
		e.mode = ModeViewing
		e.draft = ""
	}
	e.mu.Unlock()

	log.Info().Msg("diagnosis saved")
	return updated, nil
}

// CancelEdit discards the draft.
func (e *Editor) CancelEdit() {
	e.Reset()
}

// Reset returns to view mode without touching the server.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = ModeViewing
	e.draft = ""
	e.recordID = ""
	e.session++
}
