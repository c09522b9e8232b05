package gridapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/app/enumeration/shared"
	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

var _ shared.PageFetcher = (*ImageLister)(nil)

const opListImages = "list images"

// ImageLister fetches pages from the image listing endpoint.
type ImageLister struct {
	client   *Client
	endpoint string
}

// NewImageLister creates an ImageLister for the listing endpoint.
func NewImageLister(client *Client, endpoint string) *ImageLister {
	return &ImageLister{client: client, endpoint: endpoint}
}

// imagesResponse represents the structure of the listing response. Each
// element wraps the image under its own "data" key; that inner object is
// what the record handler receives.
type imagesResponse struct {
	Data []struct {
		Data json.RawMessage `json:"data"`
	} `json:"data"`
	Total *int `json:"total"`
}

// imageKey holds the two fields the engine needs out of an image.
type imageKey struct {
	ID         string `json:"id"`
	UploadTime string `json:"uploadTime"`
}

// FetchPage implements shared.PageFetcher.
func (l *ImageLister) FetchPage(ctx context.Context, req enumeration.PageRequest) (*enumeration.Page, error) {
	ctx, span := l.client.tracer.Start(ctx, "grid_api_client.list_images",
		trace.WithAttributes(
			attribute.String("since", req.Since.String()),
			attribute.String("order_by", req.OrderBy),
			attribute.Int("length", req.Length),
		))
	defer span.End()

	u, err := url.Parse(l.endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid endpoint")
		return nil, &enumeration.FetchError{Op: opListImages, URL: l.endpoint, Err: err}
	}
	q := u.Query()
	q.Set("orderBy", req.OrderBy)
	q.Set("length", strconv.Itoa(req.Length))
	q.Set("since", req.Since.String())
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, &enumeration.FetchError{Op: opListImages, URL: u.Redacted(), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := l.client.do(ctx, opListImages, httpReq, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	page, err := decodeImages(resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode response")
		return nil, &enumeration.FetchError{
			Op:         opListImages,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	span.SetAttributes(
		attribute.Int("records", len(page.Records)),
		attribute.Int("remaining", page.Remaining),
	)
	span.SetStatus(codes.Ok, "images listed successfully")
	return page, nil
}

func decodeImages(resp *http.Response) (*enumeration.Page, error) {
	var body imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode listing response: %w", err)
	}
	if body.Total == nil {
		return nil, errors.New("listing response has no total")
	}

	records := make([]enumeration.Record, 0, len(body.Data))
	for i, item := range body.Data {
		var key imageKey
		if err := json.Unmarshal(item.Data, &key); err != nil {
			return nil, fmt.Errorf("failed to decode image %d: %w", i, err)
		}
		uploadTime, err := enumeration.ParseCursor(key.UploadTime)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", key.ID, err)
		}
		rec, err := enumeration.NewRecord(key.ID, uploadTime, item.Data)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		records = append(records, rec)
	}

	return &enumeration.Page{Records: records, Remaining: *body.Total}, nil
}
