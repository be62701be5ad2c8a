package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// The monitoring API serializes datetimes either as ISO 8601 with or
// without a zone, or as HTTP dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	time.RFC1123,
}

// Timestamp is a time.Time that accepts every layout the API emits.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Display formats the timestamp for tables.
func (t Timestamp) Display() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006 15:04:05")
}
