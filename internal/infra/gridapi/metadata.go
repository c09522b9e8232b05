package gridapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

const (
	opPutMetadata = "set metadata"
	opPutArchived = "set archived"
	opPostLabels  = "set labels"
)

// MetadataEditor replicates user metadata onto images in the destination.
type MetadataEditor struct {
	client   *Client
	endpoint string
}

// NewMetadataEditor creates a MetadataEditor rooted at endpoint, e.g.
// https://example.hostedgrid.app/metadata-editor/metadata/.
func NewMetadataEditor(client *Client, endpoint string) *MetadataEditor {
	return &MetadataEditor{client: client, endpoint: endpoint}
}

// PutMetadata replaces the image's metadata object.
func (m *MetadataEditor) PutMetadata(ctx context.Context, imageID string, metadata json.RawMessage) error {
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}
	return m.send(ctx, opPutMetadata, http.MethodPut, imageID, "metadata", metadata)
}

// PutArchived sets the archived flag.
func (m *MetadataEditor) PutArchived(ctx context.Context, imageID string, archived bool) error {
	return m.send(ctx, opPutArchived, http.MethodPut, imageID, "archived", archived)
}

// PostLabels adds labels to the image.
func (m *MetadataEditor) PostLabels(ctx context.Context, imageID string, labels []string) error {
	payload := struct {
		Data []string `json:"data"`
	}{Data: labels}
	return m.send(ctx, opPostLabels, http.MethodPost, imageID, "labels", payload)
}

func (m *MetadataEditor) send(ctx context.Context, op, method, imageID, field string, payload any) error {
	ctx, span := m.client.tracer.Start(ctx, "grid_api_client.metadata",
		trace.WithAttributes(
			attribute.String("op", op),
			attribute.String("image_id", imageID),
		))
	defer span.End()

	target, err := url.JoinPath(m.endpoint, imageID, field)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid endpoint")
		return &enumeration.FetchError{Op: op, URL: m.endpoint, Err: err}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal payload")
		return &enumeration.FetchError{Op: op, URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return &enumeration.FetchError{Op: op, URL: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.do(ctx, op, req, true)
	if err != nil {
		return err
	}
	discard(resp)

	span.SetStatus(codes.Ok, "metadata updated")
	return nil
}
