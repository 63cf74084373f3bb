package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Time accepts the timestamp shapes producers actually send: RFC 3339 with
// or without fractional seconds, zone-less local date-times (read as UTC),
// bare dates and null. It always encodes as RFC 3339 in UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewTime wraps t.
func NewTime(t time.Time) Time { return Time{Time: t.UTC()} }

// Ptr returns nil for the zero value, the wrapped time otherwise.
func (t Time) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// OrNow returns the wrapped time, or now when unset.
func (t Time) OrNow(now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
