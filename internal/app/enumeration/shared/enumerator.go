package shared

import (
	"context"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

// RecordHandler consumes records produced by an enumeration run. The engine
// depends only on this interface; listing and migration are two independent
// implementations.
type RecordHandler interface {
	// Handle processes a single record. Any error aborts the run.
	Handle(ctx context.Context, record enumeration.Record) error
}

// RecordHandlerFunc adapts a function to the RecordHandler interface.
type RecordHandlerFunc func(ctx context.Context, record enumeration.Record) error

// Handle calls f(ctx, record).
func (f RecordHandlerFunc) Handle(ctx context.Context, record enumeration.Record) error {
	return f(ctx, record)
}

// PageFetcher retrieves one page of the listing.
type PageFetcher interface {
	// FetchPage returns the records strictly after req.Since, in server order.
	// A non-success response must be reported as *enumeration.FetchError.
	FetchPage(ctx context.Context, req enumeration.PageRequest) (*enumeration.Page, error)
}

// ProgressReporter receives progress after every page and a summary once the
// run completes.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, p enumeration.Progress) error
	ReportSummary(ctx context.Context, s enumeration.Summary) error
}

// EnumerationMetrics defines metrics operations needed by the enumerator.
type EnumerationMetrics interface {
	IncPagesFetched(ctx context.Context)
	IncFetchErrors(ctx context.Context)
	IncPaginationStalls(ctx context.Context)
	ObservePageFetchTime(ctx context.Context, seconds float64)
	ObservePageSize(ctx context.Context, size int)
	AddRecordsObserved(ctx context.Context, n int)
	AddRecordsDelivered(ctx context.Context, n int)
	AddDuplicatesSuppressed(ctx context.Context, n int)
	IncHandlerErrors(ctx context.Context)
	SetRemaining(ctx context.Context, remaining int)
}
