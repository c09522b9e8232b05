package enumeration

import (
	"encoding/json"
	"errors"
)

// Record is a single item returned by the listing endpoint. The engine only
// interprets the identifier and the upload time; the payload is handed to
// the record handler untouched.
type Record struct {
	ID         string
	UploadTime Cursor
	Payload    json.RawMessage
}

// NewRecord creates a Record, rejecting records without an identifier since
// they cannot be deduplicated.
func NewRecord(id string, uploadTime Cursor, payload json.RawMessage) (Record, error) {
	if id == "" {
		return Record{}, errors.New("record id is required")
	}
	if uploadTime.IsZero() {
		return Record{}, errors.New("record upload time is required")
	}
	return Record{ID: id, UploadTime: uploadTime, Payload: payload}, nil
}

// PageRequest carries the query for a single page fetch.
type PageRequest struct {
	Since   Cursor
	OrderBy string
	Length  int
}

// Page is one response from the listing endpoint. Remaining is the server's
// total count as reported at fetch time; it must strictly decrease between
// consecutive pages for a run to make progress.
type Page struct {
	Records   []Record
	Remaining int
}
