package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

const (
	// DefaultPageSize is used when Options.PageSize is not positive.
	DefaultPageSize = 100
	// DefaultOrderBy is the upload time field the listing is sorted by.
	DefaultOrderBy = "uploadTime"
)

// Options configures an Enumerator.
type Options struct {
	// PageSize is the number of records requested per page.
	PageSize int
	// InitialSince is the first exclusive lower bound.
	InitialSince enumeration.Cursor
	// OrderBy is the field the server is asked to sort by.
	OrderBy string
	// Delivery decides whether re-fetched records reach the handler again.
	Delivery enumeration.DeliveryPolicy
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.InitialSince.IsZero() {
		o.InitialSince = enumeration.EpochCursor()
	}
	if o.OrderBy == "" {
		o.OrderBy = DefaultOrderBy
	}
	return o
}

// Enumerator walks a media listing ordered by upload time and hands every
// record to a RecordHandler. The only ordering key has millisecond
// granularity and may contain ties, so after each page the cursor is rolled
// back one millisecond from the latest upload time observed. Records
// re-fetched this way are suppressed by a run-scoped seen set, and a
// remaining count that fails to decrease aborts the run instead of looping.
//
// An Enumerator is sequential; Enumerate must not be called concurrently.
type Enumerator struct {
	fetcher  shared.PageFetcher
	opts     Options
	reporter shared.ProgressReporter
	metrics  shared.EnumerationMetrics

	logger *logger.Logger
	tracer trace.Tracer
}

// NewEnumerator creates a new Enumerator with the provided options and
// dependencies.
func NewEnumerator(
	fetcher shared.PageFetcher,
	opts Options,
	reporter shared.ProgressReporter,
	metrics shared.EnumerationMetrics,
	logger *logger.Logger,
	tracer trace.Tracer,
) *Enumerator {
	return &Enumerator{
		fetcher:  fetcher,
		opts:     opts.withDefaults(),
		reporter: reporter,
		metrics:  metrics,
		logger:   logger.With("component", "media_enumerator"),
		tracer:   tracer,
	}
}

// Enumerate fetches pages until the server reports nothing remaining and
// invokes handler for each admitted record, in server order within a page.
// It returns the number of distinct records seen. On failure the count
// covers the records seen before the error.
//
// Errors are fatal and never retried: a failed fetch or handler call yields
// an error matching enumeration.ErrFetchFailed (or whatever the handler
// returned), a remaining count that does not decrease between two pages
// yields one matching enumeration.ErrPaginationStalled.
func (e *Enumerator) Enumerate(ctx context.Context, handler shared.RecordHandler) (int, error) {
	runID := uuid.New()
	logger := logger.NewLoggerContext(e.logger.With(
		"operation", "enumerate",
		"run_id", runID.String(),
	))
	ctx, span := e.tracer.Start(ctx, "media_enumerator.enumerate",
		trace.WithAttributes(
			attribute.String("run_id", runID.String()),
			attribute.Int("page_size", e.opts.PageSize),
			attribute.String("order_by", e.opts.OrderBy),
			attribute.String("initial_since", e.opts.InitialSince.String()),
			attribute.String("delivery", e.opts.Delivery.String()),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		since         = e.opts.InitialSince
		seen          = enumeration.NewSeenSet()
		lastRemaining = 0
		remaining     = -1
		summary       enumeration.Summary
	)

	logger.Info(ctx, "Starting enumeration",
		"page_size", e.opts.PageSize,
		"since", since.String(),
		"delivery", e.opts.Delivery.String(),
	)

	for remaining != 0 {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "enumeration cancelled")
			return seen.Len(), fmt.Errorf("enumeration cancelled after %d pages: %w", summary.Pages, err)
		}

		page, err := e.fetchPage(ctx, since)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch page")
			logger.Error(ctx, "Failed to fetch page", "page", summary.Pages+1, "since", since.String(), "error", err)
			return seen.Len(), err
		}
		summary.Pages++
		remaining = page.Remaining
		e.metrics.SetRemaining(ctx, remaining)

		// The remaining count must strictly change between pages. When it does
		// not, the page was made up entirely of records sharing the boundary
		// timestamp and rolling the cursor back returns the same block again.
		if summary.Pages > 1 && remaining == lastRemaining {
			stallErr := &enumeration.StalledError{Page: summary.Pages, Since: since, Remaining: remaining}
			e.metrics.IncPaginationStalls(ctx)
			span.AddEvent("pagination_stalled", trace.WithAttributes(
				attribute.Int("page", summary.Pages),
				attribute.Int("remaining", remaining),
				attribute.String("since", since.String()),
			))
			span.RecordError(stallErr)
			span.SetStatus(codes.Error, "pagination stalled")
			logger.Error(ctx, "Pagination stalled", "page", summary.Pages, "remaining", remaining, "since", since.String())
			return seen.Len(), stallErr
		}
		lastRemaining = remaining

		progress, err := e.processPage(ctx, summary.Pages, since, page, seen, handler)
		summary.Observed += progress.Observed
		summary.Delivered += progress.Delivered
		summary.Duplicates += progress.Duplicates
		if err != nil {
			e.metrics.IncHandlerErrors(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "record handler failed")
			logger.Error(ctx, "Record handler failed", "page", summary.Pages, "error", err)
			return seen.Len(), err
		}

		since = progress.NextSince
		e.reportProgress(ctx, logger, progress)
	}

	summary.Unique = seen.Len()
	summary.Duration = time.Since(start)
	if err := e.reporter.ReportSummary(ctx, summary); err != nil {
		logger.Warn(ctx, "Failed to report summary", "error", err)
	}

	span.SetAttributes(
		attribute.Int("pages", summary.Pages),
		attribute.Int("unique", summary.Unique),
		attribute.Int("observed", summary.Observed),
		attribute.Int("duplicates", summary.Duplicates),
	)
	span.SetStatus(codes.Ok, "enumeration completed")
	logger.Info(ctx, "Enumeration completed",
		"pages", summary.Pages,
		"unique", summary.Unique,
		"observed", summary.Observed,
		"delivered", summary.Delivered,
		"duplicates", summary.Duplicates,
		"duration", summary.Duration.String(),
	)

	return summary.Unique, nil
}

// fetchPage retrieves a single page of the listing strictly after since.
func (e *Enumerator) fetchPage(ctx context.Context, since enumeration.Cursor) (*enumeration.Page, error) {
	ctx, span := e.tracer.Start(ctx, "media_enumerator.fetch_page",
		trace.WithAttributes(
			attribute.String("since", since.String()),
			attribute.Int("length", e.opts.PageSize),
		),
	)
	defer span.End()

	start := time.Now()
	page, err := e.fetcher.FetchPage(ctx, enumeration.PageRequest{
		Since:   since,
		OrderBy: e.opts.OrderBy,
		Length:  e.opts.PageSize,
	})
	e.metrics.ObservePageFetchTime(ctx, time.Since(start).Seconds())
	if err != nil {
		e.metrics.IncFetchErrors(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, fmt.Errorf("failed to fetch page since %s: %w", since, err)
	}

	e.metrics.IncPagesFetched(ctx)
	e.metrics.ObservePageSize(ctx, len(page.Records))
	span.AddEvent("page_fetched", trace.WithAttributes(
		attribute.Int("count", len(page.Records)),
		attribute.Int("remaining", page.Remaining),
	))

	return page, nil
}

// processPage feeds a page to the handler and computes the next cursor. Every
// observed record moves the cursor, whether or not it was delivered, so a
// page of duplicates still makes progress.
func (e *Enumerator) processPage(
	ctx context.Context,
	pageNum int,
	since enumeration.Cursor,
	page *enumeration.Page,
	seen *enumeration.SeenSet,
	handler shared.RecordHandler,
) (enumeration.Progress, error) {
	progress := enumeration.Progress{
		Page:      pageNum,
		Since:     since,
		NextSince: since,
		Remaining: page.Remaining,
		ToDo:      page.Remaining,
	}

	var latest enumeration.Cursor
	for _, rec := range page.Records {
		progress.Observed++
		progress.ToDo--
		e.metrics.AddRecordsObserved(ctx, 1)

		admitted := seen.Add(rec.ID)
		if admitted {
			progress.Admitted++
		} else {
			progress.Duplicates++
			e.metrics.AddDuplicatesSuppressed(ctx, 1)
		}

		if admitted || e.opts.Delivery == enumeration.DeliverAll {
			if err := handler.Handle(ctx, rec); err != nil {
				progress.Unique = seen.Len()
				return progress, fmt.Errorf("failed to handle record %s: %w", rec.ID, err)
			}
			progress.Delivered++
			e.metrics.AddRecordsDelivered(ctx, 1)
		}

		if latest.IsZero() || rec.UploadTime.After(latest) {
			latest = rec.UploadTime
		}
	}

	// The since filter is exclusive and there is no secondary sort key, so
	// siblings sharing the latest upload time may still be unread. Rolling
	// back one millisecond re-fetches them at the cost of re-seeing records.
	if !latest.IsZero() {
		progress.NextSince = latest.Prev()
	}
	progress.Unique = seen.Len()

	return progress, nil
}

func (e *Enumerator) reportProgress(ctx context.Context, logger *logger.LoggerContext, p enumeration.Progress) {
	logger.Debug(ctx, "Processed page",
		"page", p.Page,
		"observed", p.Observed,
		"admitted", p.Admitted,
		"duplicates", p.Duplicates,
		"remaining", p.Remaining,
		"to_do", p.ToDo,
		"next_since", p.NextSince.String(),
	)
	if err := e.reporter.ReportProgress(ctx, p); err != nil {
		logger.Warn(ctx, "Failed to report progress", "page", p.Page, "error", err)
	}
}
