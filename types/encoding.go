package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// GuardianID is the opaque guardian identifier. The guardian service may send
// it either as a JSON string or as a JSON number; both decode into the same
// textual form, and it is always encoded back as a string.
type GuardianID string

func (id GuardianID) String() string {
	return string(id)
}

func (id *GuardianID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = GuardianID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid guardian id %q: %w", data, err)
	}
	*id = GuardianID(n.String())
	return nil
}

// Timestamp is a time.Time encoded in JSON as an ISO-8601 UTC string with
// millisecond precision, such as "2024-03-01T10:20:30.123Z".
type Timestamp time.Time

// NewTimestamp returns t as a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) String() string {
	return time.Time(t).UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	*t = Timestamp(parsed)
	return nil
}
