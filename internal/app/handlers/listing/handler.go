// Package listing provides the record handler used for dry runs: it writes
// each record id on its own line.
package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

var _ shared.RecordHandler = (*Handler)(nil)

// Handler writes "<id>\n" for every record it receives. It is not safe for
// concurrent use.
type Handler struct {
	out io.Writer
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer) *Handler { return &Handler{out: out} }

// Handle implements shared.RecordHandler.
func (h *Handler) Handle(_ context.Context, record enumeration.Record) error {
	if _, err := fmt.Fprintln(h.out, record.ID); err != nil {
		return fmt.Errorf("failed to write record id: %w", err)
	}
	return nil
}
