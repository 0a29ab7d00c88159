// Package vitals turns raw readings into chart series and table rows.
//
// Absent values are treated differently by the two views: chart series plot
// them as 0, table rows show models.NotAvailable.
package vitals

import (
	"strconv"
	"strings"
	"time"

	"github.com/migrantcare/nexus/pkg/models"
)

// Series holds parallel sequences aligned by index with Labels.
type Series struct {
	Labels      []string  `json:"labels"`
	Temperature []float64 `json:"temperature"`
	HeartRate   []float64 `json:"heart_rate"`
	Systolic    []float64 `json:"systolic"`
	Diastolic   []float64 `json:"diastolic"`
}

func (s Series) Len() int { return len(s.Labels) }

// Row is one line of the tabular view.
type Row struct {
	Date          string `json:"date"`
	Temperature   string `json:"temperature"`
	BloodPressure string `json:"blood_pressure"`
	HeartRate     string `json:"heart_rate"`
}

type Normalizer struct {
	// DateLayout formats labels; the default mirrors en-US toLocaleDateString.
	DateLayout string
	// Location is used for display and for timestamps without a zone.
	Location *time.Location
}

const DefaultDateLayout = "1/2/2006"

func NewNormalizer(layout string, loc *time.Location) Normalizer {
	if layout == "" {
		layout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return Normalizer{DateLayout: layout, Location: loc}
}

// Normalize keeps the backend's ordering; readings are not sorted.
func (n Normalizer) Normalize(readings []models.VitalReading) Series {
	s := Series{
		Labels:      make([]string, len(readings)),
		Temperature: make([]float64, len(readings)),
		HeartRate:   make([]float64, len(readings)),
		Systolic:    make([]float64, len(readings)),
		Diastolic:   make([]float64, len(readings)),
	}
	for i, r := range readings {
		s.Labels[i] = n.Label(r.Timestamp)
		if r.Temperature != nil {
			s.Temperature[i] = *r.Temperature
		}
		if r.HeartRate != nil {
			s.HeartRate[i] = *r.HeartRate
		}
		sys, dia := ParseBloodPressure(r.BloodPressure)
		s.Systolic[i] = float64(sys)
		s.Diastolic[i] = float64(dia)
	}
	return s
}

// Rows renders the readings for a table, with placeholders for absences.
func (n Normalizer) Rows(readings []models.VitalReading) []Row {
	rows := make([]Row, len(readings))
	for i, r := range readings {
		rows[i] = Row{
			Date:          n.Label(r.Timestamp),
			Temperature:   formatNumber(r.Temperature),
			BloodPressure: models.NotAvailable,
			HeartRate:     formatNumber(r.HeartRate),
		}
		if r.BloodPressure != nil {
			rows[i].BloodPressure = *r.BloodPressure
		}
	}
	return rows
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Label formats a timestamp, or returns models.InvalidDate when there is
// none to format.
func (n Normalizer) Label(ts *string) string {
	if ts == nil {
		return models.InvalidDate
	}
	t, ok := n.parseTimestamp(strings.TrimSpace(*ts))
	if !ok {
		return models.InvalidDate
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	layout := n.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.In(loc).Format(layout)
}

func (n Normalizer) parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatNumber(v *float64) string {
	if v == nil {
		return models.NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
