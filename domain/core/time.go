package core

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// Before returns true if t is before u
func (t Timestamp) Before(u Timestamp) bool {
	return time.Time(t).Before(time.Time(u))
}

// After returns true if t is after u
func (t Timestamp) After(u Timestamp) bool {
	return time.Time(t).After(time.Time(u))
}

// Day truncates the timestamp to its calendar day in UTC.
// Temporal consistency buckets sessions by this value.
func (t Timestamp) Day() time.Time {
	y, m, d := time.Time(t).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// JSON marshaling for Timestamp
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tm)
	return nil
}

// YAML marshaling for Timestamp: manifests may use either a bare date
// or a full RFC3339 instant.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.Time().Format(time.RFC3339), nil
}

func (t *Timestamp) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if tm, err := time.Parse(layout, raw); err == nil {
			*t = Timestamp(tm)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

// String returns the RFC3339 representation
func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }
