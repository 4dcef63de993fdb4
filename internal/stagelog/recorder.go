package stagelog

import (
	"encoding/json"
	"fmt"
)

// Recorder accumulates the ordered stage records of one run. A run owns its
// recorder exclusively; nothing is shared across runs.
type Recorder struct {
	records []Record
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: nil}
}

// Append adds a terminal record to the run log.
func (rec *Recorder) Append(record Record) {
	rec.records = append(rec.records, record)
}

// Records returns a copy of the run log in append order.
func (rec *Recorder) Records() []Record {
	out := make([]Record, len(rec.records))
	copy(out, rec.records)

	return out
}

// MarshalLog serializes the run log as an indented JSON array, the shape
// persisted once at run end.
func (rec *Recorder) MarshalLog() ([]byte, error) {
	data, err := json.MarshalIndent(rec.records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stage log: %w", err)
	}

	return data, nil
}
