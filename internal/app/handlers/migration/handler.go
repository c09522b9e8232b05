// Package migration provides the record handler that copies an image from
// the source media API to a destination: the original file, its user
// metadata, its archived flag and its labels.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	"github.com/ahrav/grid-enumerator/internal/infra/gridapi"
	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

var _ shared.RecordHandler = (*Handler)(nil)

// Transferer moves original files between the two systems.
type Transferer interface {
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
	Upload(ctx context.Context, body io.Reader, params gridapi.UploadParams) error
}

// MetadataWriter applies user metadata on the destination.
type MetadataWriter interface {
	PutMetadata(ctx context.Context, imageID string, metadata json.RawMessage) error
	PutArchived(ctx context.Context, imageID string, archived bool) error
	PostLabels(ctx context.Context, imageID string, labels []string) error
}

// Options configures where originals are staged between download and upload.
type Options struct {
	StagingDir    string
	KeepOriginals bool
}

// image is the subset of a source image the migration reads.
type image struct {
	ID         string `json:"id"`
	UploadTime string `json:"uploadTime"`
	UploadedBy string `json:"uploadedBy"`
	Source     struct {
		SecureURL string `json:"secureUrl"`
	} `json:"source"`
	UploadInfo struct {
		Filename string `json:"filename"`
	} `json:"uploadInfo"`
	UserMetadata struct {
		Data struct {
			Metadata json.RawMessage `json:"metadata"`
			Archived bool            `json:"archived"`
			Labels   struct {
				Data []struct {
					Data string `json:"data"`
				} `json:"data"`
			} `json:"labels"`
		} `json:"data"`
	} `json:"userMetadata"`
}

func (img *image) labels() []string {
	names := make([]string, 0, len(img.UserMetadata.Data.Labels.Data))
	for _, l := range img.UserMetadata.Data.Labels.Data {
		names = append(names, l.Data)
	}
	return names
}

// Handler migrates one image per call. Any failing step aborts the run and
// nothing already written to the destination is rolled back.
type Handler struct {
	transfer Transferer
	metadata MetadataWriter
	opts     Options
	out      io.Writer

	logger *logger.Logger
	tracer trace.Tracer
}

// NewHandler creates a Handler and ensures the staging directory exists.
// out receives one "<id> <uploadedBy>" line per migrated image.
func NewHandler(
	transfer Transferer,
	metadata MetadataWriter,
	opts Options,
	out io.Writer,
	logger *logger.Logger,
	tracer trace.Tracer,
) (*Handler, error) {
	if opts.StagingDir == "" {
		return nil, errors.New("staging directory is required")
	}
	if err := os.MkdirAll(opts.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory %s: %w", opts.StagingDir, err)
	}

	return &Handler{
		transfer: transfer,
		metadata: metadata,
		opts:     opts,
		out:      out,
		logger:   logger.With("component", "migration_handler"),
		tracer:   tracer,
	}, nil
}

// Handle implements shared.RecordHandler.
func (h *Handler) Handle(ctx context.Context, record enumeration.Record) error {
	ctx, span := h.tracer.Start(ctx, "migration_handler.handle",
		trace.WithAttributes(attribute.String("image_id", record.ID)))
	defer span.End()

	fail := func(msg string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return fmt.Errorf("%s: %w", msg, err)
	}

	var img image
	if err := json.Unmarshal(record.Payload, &img); err != nil {
		return fail("failed to decode image", err)
	}
	if img.Source.SecureURL == "" {
		return fail("invalid image", errors.New("missing source secure url"))
	}

	if _, err := fmt.Fprintf(h.out, "%s %s\n", record.ID, img.UploadedBy); err != nil {
		return fail("failed to write progress line", err)
	}
	h.logger.Info(ctx, "Migrating image", "image_id", record.ID, "uploaded_by", img.UploadedBy)

	staged, err := h.stagingPath(record.ID)
	if err != nil {
		return fail("invalid image", err)
	}

	if err := h.download(ctx, img.Source.SecureURL, staged); err != nil {
		return fail("failed to download original", err)
	}
	if !h.opts.KeepOriginals {
		defer func() {
			if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
				h.logger.Warn(ctx, "Failed to remove staged original", "path", staged, "error", err)
			}
		}()
	}

	if err := h.upload(ctx, staged, gridapi.UploadParams{
		UploadTime: img.UploadTime,
		UploadedBy: img.UploadedBy,
		Filename:   img.UploadInfo.Filename,
	}); err != nil {
		return fail("failed to upload", err)
	}

	if err := h.metadata.PutMetadata(ctx, record.ID, img.UserMetadata.Data.Metadata); err != nil {
		return fail("failed to set metadata", err)
	}
	if err := h.metadata.PutArchived(ctx, record.ID, img.UserMetadata.Data.Archived); err != nil {
		return fail("failed to set archived", err)
	}
	if labels := img.labels(); len(labels) > 0 {
		if err := h.metadata.PostLabels(ctx, record.ID, labels); err != nil {
			return fail("failed to set labels", err)
		}
		span.SetAttributes(attribute.Int("labels", len(labels)))
	}

	span.SetStatus(codes.Ok, "image migrated")
	h.logger.Debug(ctx, "Image migrated", "image_id", record.ID)
	return nil
}

// stagingPath returns where the original of id is written. Ids become file
// names, so anything that is not a plain name is rejected.
func (h *Handler) stagingPath(id string) (string, error) {
	if id == "." || id == ".." || filepath.Base(id) != id {
		return "", fmt.Errorf("image id %q is not usable as a file name", id)
	}
	return filepath.Join(h.opts.StagingDir, id), nil
}

func (h *Handler) download(ctx context.Context, url, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := h.transfer.Download(ctx, url, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	h.logger.Debug(ctx, "Original downloaded", "path", path, "bytes", n)
	return nil
}

func (h *Handler) upload(ctx context.Context, path string, params gridapi.UploadParams) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	params.Size = info.Size()

	return h.transfer.Upload(ctx, f, params)
}
