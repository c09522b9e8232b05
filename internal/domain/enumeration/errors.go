package enumeration

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed is matched by every FetchError.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrPaginationStalled is matched by every StalledError.
	ErrPaginationStalled = errors.New("pagination stalled")
)

// FetchError reports a request that did not complete successfully: either a
// non-success response, a transport failure, or a body that could not be
// decoded. Both the listing fetch and every request a record handler makes
// use it.
type FetchError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: non-200 response (status: %d): %s", e.Op, e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetchFailed) hold for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// StalledError reports that the server's remaining count did not decrease
// across a page fetch. That happens when an entire page shares the boundary
// timestamp: rolling the cursor back re-fetches the same block forever.
type StalledError struct {
	Page      int
	Since     Cursor
	Remaining int
}

func (e *StalledError) Error() string {
	return fmt.Sprintf(
		"pagination is stuck in a block of records with the same upload time "+
			"(page: %d, since: %s, remaining: %d); increasing the page size may help",
		e.Page, e.Since, e.Remaining,
	)
}

// Is makes errors.Is(err, ErrPaginationStalled) hold for any StalledError.
func (e *StalledError) Is(target error) bool { return target == ErrPaginationStalled }
