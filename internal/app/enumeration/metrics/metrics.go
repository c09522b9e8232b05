package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
)

var _ shared.EnumerationMetrics = (*enumerationMetrics)(nil)

// enumerationMetrics implements shared.EnumerationMetrics.
type enumerationMetrics struct {
	// Page metrics.
	pagesFetched  metric.Int64Counter
	fetchErrors   metric.Int64Counter
	stalls        metric.Int64Counter
	pageFetchTime metric.Float64Histogram
	pageSize      metric.Int64Histogram

	// Record metrics.
	recordsObserved  metric.Int64Counter
	recordsDelivered metric.Int64Counter
	duplicates       metric.Int64Counter
	handlerErrors    metric.Int64Counter
	remaining        metric.Int64Gauge
}

const namespace = "enumerator"

// NewEnumerationMetrics creates a new enumeration metrics instance.
func NewEnumerationMetrics(mp metric.MeterProvider) (*enumerationMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(enumerationMetrics)
	var err error

	if m.pagesFetched, err = meter.Int64Counter(
		"pages_fetched_total",
		metric.WithDescription("Total number of listing pages fetched"),
	); err != nil {
		return nil, err
	}

	if m.fetchErrors, err = meter.Int64Counter(
		"fetch_errors_total",
		metric.WithDescription("Total number of failed listing page fetches"),
	); err != nil {
		return nil, err
	}

	if m.stalls, err = meter.Int64Counter(
		"pagination_stalls_total",
		metric.WithDescription("Total number of runs aborted because the remaining count did not decrease"),
	); err != nil {
		return nil, err
	}

	if m.pageFetchTime, err = meter.Float64Histogram(
		"page_fetch_time_seconds",
		metric.WithDescription("Time taken to fetch a listing page"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.pageSize, err = meter.Int64Histogram(
		"page_size",
		metric.WithDescription("Number of records returned per page"),
	); err != nil {
		return nil, err
	}

	if m.recordsObserved, err = meter.Int64Counter(
		"records_observed_total",
		metric.WithDescription("Total number of records returned by the listing, including re-fetched ones"),
	); err != nil {
		return nil, err
	}

	if m.recordsDelivered, err = meter.Int64Counter(
		"records_delivered_total",
		metric.WithDescription("Total number of records handed to the record handler"),
	); err != nil {
		return nil, err
	}

	if m.duplicates, err = meter.Int64Counter(
		"duplicates_suppressed_total",
		metric.WithDescription("Total number of re-fetched records not delivered again"),
	); err != nil {
		return nil, err
	}

	if m.handlerErrors, err = meter.Int64Counter(
		"handler_errors_total",
		metric.WithDescription("Total number of record handler failures"),
	); err != nil {
		return nil, err
	}

	if m.remaining, err = meter.Int64Gauge(
		"records_remaining",
		metric.WithDescription("Remaining record count reported by the listing endpoint"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *enumerationMetrics) IncPagesFetched(ctx context.Context) { m.pagesFetched.Add(ctx, 1) }

func (m *enumerationMetrics) IncFetchErrors(ctx context.Context) { m.fetchErrors.Add(ctx, 1) }

func (m *enumerationMetrics) IncPaginationStalls(ctx context.Context) { m.stalls.Add(ctx, 1) }

func (m *enumerationMetrics) ObservePageFetchTime(ctx context.Context, seconds float64) {
	m.pageFetchTime.Record(ctx, seconds)
}

func (m *enumerationMetrics) ObservePageSize(ctx context.Context, size int) {
	m.pageSize.Record(ctx, int64(size))
}

func (m *enumerationMetrics) AddRecordsObserved(ctx context.Context, n int) {
	m.recordsObserved.Add(ctx, int64(n))
}

func (m *enumerationMetrics) AddRecordsDelivered(ctx context.Context, n int) {
	m.recordsDelivered.Add(ctx, int64(n))
}

func (m *enumerationMetrics) AddDuplicatesSuppressed(ctx context.Context, n int) {
	m.duplicates.Add(ctx, int64(n))
}

func (m *enumerationMetrics) IncHandlerErrors(ctx context.Context) { m.handlerErrors.Add(ctx, 1) }

func (m *enumerationMetrics) SetRemaining(ctx context.Context, remaining int) {
	m.remaining.Record(ctx, int64(remaining))
}
