package enumeration

import (
	"fmt"
	"time"
)

// CursorLayout is the wire format of a cursor: ISO-8601 with millisecond
// precision and an explicit offset.
const CursorLayout = "2006-01-02T15:04:05.000Z07:00"

// Cursor is a value object holding the exclusive lower bound used to request
// the next page of a listing. The listing endpoint only orders by upload time
// at millisecond granularity, so a cursor never carries sub-millisecond
// precision and keeps the offset it was parsed with.
type Cursor struct {
	t time.Time
}

// NewCursor creates a Cursor from t truncated to millisecond precision.
func NewCursor(t time.Time) Cursor {
	return Cursor{t: t.Truncate(time.Millisecond)}
}

// EpochCursor returns the sentinel cursor that predates every real record.
func EpochCursor() Cursor {
	return NewCursor(time.Date(1970, time.January, 1, 12, 0, 0, 0, time.UTC))
}

// ParseCursor parses an RFC 3339 timestamp, with or without fractional
// seconds, into a Cursor. The offset of the input is preserved.
func ParseCursor(s string) (Cursor, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor timestamp %q: %w", s, err)
	}
	return NewCursor(t), nil
}

// Prev returns the cursor one millisecond earlier. This is the overlap
// correction applied after every page: the since filter is exclusive and
// records sharing the last observed timestamp must be fetched again.
func (c Cursor) Prev() Cursor { return Cursor{t: c.t.Add(-time.Millisecond)} }

// After reports whether c is strictly later than other.
func (c Cursor) After(other Cursor) bool { return c.t.After(other.t) }

// Equal reports whether c and other denote the same instant.
func (c Cursor) Equal(other Cursor) bool { return c.t.Equal(other.t) }

// Time returns the underlying timestamp.
func (c Cursor) Time() time.Time { return c.t }

// IsZero reports whether the cursor was never set.
func (c Cursor) IsZero() bool { return c.t.IsZero() }

// String formats the cursor for use as the since query parameter.
func (c Cursor) String() string { return c.t.Format(CursorLayout) }

// MarshalText implements encoding.TextMarshaler.
func (c Cursor) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cursor) UnmarshalText(b []byte) error {
	parsed, err := ParseCursor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
