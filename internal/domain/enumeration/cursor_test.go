package enumeration_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

func TestParseCursor(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "utc with millis",
			input: "2023-04-05T10:11:12.345Z",
			want:  "2023-04-05T10:11:12.345Z",
		},
		{
			name:  "no fractional seconds",
			input: "2023-04-05T10:11:12Z",
			want:  "2023-04-05T10:11:12.000Z",
		},
		{
			name:  "offset is preserved",
			input: "2023-04-05T10:11:12.345+01:00",
			want:  "2023-04-05T10:11:12.345+01:00",
		},
		{
			name:  "sub millisecond precision is truncated",
			input: "2023-04-05T10:11:12.345999Z",
			want:  "2023-04-05T10:11:12.345Z",
		},
		{
			name:    "garbage",
			input:   "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := enumeration.ParseCursor(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestCursorPrev(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "simple rollback",
			input: "2023-04-05T10:11:12.345Z",
			want:  "2023-04-05T10:11:12.344Z",
		},
		{
			name:  "borrows across the second boundary",
			input: "2023-04-05T10:11:12.000Z",
			want:  "2023-04-05T10:11:11.999Z",
		},
		{
			name:  "borrows across the day boundary with offset",
			input: "2023-01-01T00:00:00.000+02:00",
			want:  "2022-12-31T23:59:59.999+02:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := enumeration.ParseCursor(tt.input)
			require.NoError(t, err)

			prev := c.Prev()
			assert.Equal(t, tt.want, prev.String())
			assert.True(t, c.After(prev))
			assert.Equal(t, time.Millisecond, c.Time().Sub(prev.Time()))
		})
	}
}

func TestEpochCursor(t *testing.T) {
	c := enumeration.EpochCursor()
	assert.Equal(t, "1970-01-01T12:00:00.000Z", c.String())
	assert.False(t, c.IsZero())
}

func TestCursorText(t *testing.T) {
	c, err := enumeration.ParseCursor("2021-06-01T08:00:00.123Z")
	require.NoError(t, err)

	b, err := c.MarshalText()
	require.NoError(t, err)

	var decoded enumeration.Cursor
	require.NoError(t, decoded.UnmarshalText(b))
	assert.True(t, c.Equal(decoded))

	assert.Error(t, decoded.UnmarshalText([]byte("nope")))
}

func TestSeenSet(t *testing.T) {
	s := enumeration.NewSeenSet()
	assert.Equal(t, 0, s.Len())

	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.False(t, s.Add("a"))
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.Equal(t, 2, s.Len())
}

func TestNewRecord(t *testing.T) {
	ts := enumeration.EpochCursor()

	_, err := enumeration.NewRecord("", ts, nil)
	assert.Error(t, err)

	_, err = enumeration.NewRecord("id", enumeration.Cursor{}, nil)
	assert.Error(t, err)

	r, err := enumeration.NewRecord("id", ts, []byte(`{"id":"id"}`))
	require.NoError(t, err)
	assert.Equal(t, "id", r.ID)
	assert.True(t, ts.Equal(r.UploadTime))
}

func TestErrorsMatchSentinels(t *testing.T) {
	fetchErr := &enumeration.FetchError{Op: "list images", URL: "http://x", StatusCode: 500, Body: "boom"}
	wrapped := errors.Join(errors.New("context"), fetchErr)
	assert.ErrorIs(t, wrapped, enumeration.ErrFetchFailed)
	assert.NotErrorIs(t, wrapped, enumeration.ErrPaginationStalled)
	assert.Contains(t, fetchErr.Error(), "500")
	assert.Contains(t, fetchErr.Error(), "boom")

	stalled := &enumeration.StalledError{Page: 3, Since: enumeration.EpochCursor(), Remaining: 7}
	assert.ErrorIs(t, stalled, enumeration.ErrPaginationStalled)
	assert.NotErrorIs(t, stalled, enumeration.ErrFetchFailed)

	var se *enumeration.StalledError
	require.ErrorAs(t, fmt.Errorf("enumerate: %w", stalled), &se)
	assert.Equal(t, 7, se.Remaining)
}

func TestDeliveryPolicyString(t *testing.T) {
	assert.Equal(t, "deliver_unique", enumeration.DeliverUnique.String())
	assert.Equal(t, "deliver_all", enumeration.DeliverAll.String())
	assert.Equal(t, "unknown", enumeration.DeliveryPolicy(42).String())
}
