// Package progressreporter provides infrastructure for reporting the progress
// of an enumeration run. It implements the shared.ProgressReporter interface
// by writing plain text lines to an io.Writer, which is how operators follow
// a run from a terminal.
package progressreporter

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

var _ shared.ProgressReporter = (*WriterProgressReporter)(nil)

// WriterProgressReporter writes "<n> remaining" after every page and a
// "Found: <n> unique records" line at the end of the run. The count is the
// server total less the records consumed from that page, so it goes negative
// when a final page holds more records than the server still reports.
// It is driven by a single enumeration loop and does no locking.
type WriterProgressReporter struct {
	out io.Writer

	tracer trace.Tracer
}

// New creates a new WriterProgressReporter writing to out.
func New(out io.Writer, tracer trace.Tracer) *WriterProgressReporter {
	return &WriterProgressReporter{out: out, tracer: tracer}
}

// ReportProgress writes the to-do count left after a page.
func (r *WriterProgressReporter) ReportProgress(ctx context.Context, p enumeration.Progress) error {
	_, span := r.tracer.Start(
		ctx,
		"progress_reporter.report_progress",
		trace.WithAttributes(
			attribute.Int("page", p.Page),
			attribute.Int("remaining", p.Remaining),
			attribute.Int("to_do", p.ToDo),
		),
	)
	defer span.End()

	if err := r.writeLine("%d remaining\n", p.ToDo); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write progress")
		return fmt.Errorf("failed to write progress: %w", err)
	}
	return nil
}

// ReportSummary writes the final unique record count.
func (r *WriterProgressReporter) ReportSummary(ctx context.Context, s enumeration.Summary) error {
	_, span := r.tracer.Start(
		ctx,
		"progress_reporter.report_summary",
		trace.WithAttributes(attribute.Int("unique", s.Unique)),
	)
	defer span.End()

	if err := r.writeLine("Found: %d unique records\n", s.Unique); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write summary")
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (r *WriterProgressReporter) writeLine(format string, args ...any) error {
	_, err := fmt.Fprintf(r.out, format, args...)
	return err
}
