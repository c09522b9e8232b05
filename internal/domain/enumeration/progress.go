package enumeration

import "time"

// DeliveryPolicy decides whether records seen again because of overlap
// correction reach the handler a second time.
type DeliveryPolicy int

const (
	// DeliverUnique invokes the handler at most once per record id.
	DeliverUnique DeliveryPolicy = iota
	// DeliverAll invokes the handler for every observed record, including
	// ones re-fetched after the cursor rolls back. Only safe with idempotent
	// handlers.
	DeliverAll
)

// String returns the string representation of a DeliveryPolicy.
func (p DeliveryPolicy) String() string {
	switch p {
	case DeliverUnique:
		return "deliver_unique"
	case DeliverAll:
		return "deliver_all"
	default:
		return "unknown"
	}
}

// Progress is a snapshot emitted after every page.
type Progress struct {
	Page       int    // 1-based page number within the run
	Since      Cursor // cursor used to fetch the page
	NextSince  Cursor // cursor for the following fetch
	Remaining  int    // server reported remaining count
	ToDo       int    // Remaining less the records observed on the page
	Observed   int    // records on the page
	Admitted   int    // records on the page not seen before
	Duplicates int    // records on the page already in the seen set
	Delivered  int    // records on the page handed to the handler
	Unique     int    // distinct records seen so far in the run
}

// Summary describes a completed run.
type Summary struct {
	Unique     int
	Pages      int
	Observed   int
	Delivered  int
	Duplicates int
	Duration   time.Duration
}
