package apiclient

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/migrantcare/nexus/pkg/models"
)

type vitalsEnvelope struct {
	Vitals *[]models.VitalReading `json:"vitals"`
}

// DecodeVitals accepts exactly two payload shapes: a JSON array of readings,
// or an object whose "vitals" field is that array. Anything else is an error.
func DecodeVitals(data []byte) ([]models.VitalReading, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty vitals payload")
	}

	switch data[0] {
	case '[':
		var readings []models.VitalReading
		if err := json.Unmarshal(data, &readings); err != nil {
			return nil, fmt.Errorf("decode vitals array: %w", err)
		}
		return nonNil(readings), nil
	case '{':
		var env vitalsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode vitals envelope: %w", err)
		}
		if env.Vitals == nil {
			return nil, errors.New("vitals object has no \"vitals\" array")
		}
		return nonNil(*env.Vitals), nil
	}
	return nil, fmt.Errorf("vitals payload must be an array or an object, got %.20q", data)
}

func nonNil(r []models.VitalReading) []models.VitalReading {
	if r == nil {
		return []models.VitalReading{}
	}
	return r
}
