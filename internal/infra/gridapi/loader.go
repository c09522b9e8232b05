package gridapi

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
)

const (
	opDownload = "download original"
	opUpload   = "upload image"
)

// UploadParams preserves the upload information of the original image.
type UploadParams struct {
	UploadTime string
	UploadedBy string
	Filename   string
	// Size is the body length in bytes. When positive it is sent as
	// Content-Length; otherwise the body goes chunked unless its length is
	// known from its type.
	Size int64
}

// ImageLoader posts originals to the destination ingest endpoint and fetches
// originals from their secure URLs.
type ImageLoader struct {
	client   *Client
	endpoint string
}

// NewImageLoader creates an ImageLoader posting to endpoint.
func NewImageLoader(client *Client, endpoint string) *ImageLoader {
	return &ImageLoader{client: client, endpoint: endpoint}
}

// Download streams the file at rawURL into w and returns the number of bytes
// copied. Secure URLs are pre-signed, so no API key is sent.
func (l *ImageLoader) Download(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	ctx, span := l.client.tracer.Start(ctx, "grid_api_client.download")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return 0, &enumeration.FetchError{Op: opDownload, URL: rawURL, Err: err}
	}

	resp, err := l.client.do(ctx, opDownload, req, false)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy body")
		return n, &enumeration.FetchError{Op: opDownload, URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Err: err}
	}

	span.SetAttributes(attribute.Int64("bytes", n))
	span.SetStatus(codes.Ok, "download completed")
	return n, nil
}

// Upload posts body to the loader endpoint with the original upload time,
// uploader and filename as query parameters.
func (l *ImageLoader) Upload(ctx context.Context, body io.Reader, params UploadParams) error {
	ctx, span := l.client.tracer.Start(ctx, "grid_api_client.upload",
		trace.WithAttributes(
			attribute.String("upload_time", params.UploadTime),
			attribute.String("uploaded_by", params.UploadedBy),
			attribute.String("filename", params.Filename),
		))
	defer span.End()

	u, err := url.Parse(l.endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid endpoint")
		return &enumeration.FetchError{Op: opUpload, URL: l.endpoint, Err: err}
	}
	q := u.Query()
	q.Set("uploadTime", params.UploadTime)
	q.Set("uploadedBy", params.UploadedBy)
	q.Set("filename", params.Filename)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return &enumeration.FetchError{Op: opUpload, URL: u.Redacted(), Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if params.Size > 0 {
		req.ContentLength = params.Size
	}

	resp, err := l.client.do(ctx, opUpload, req, true)
	if err != nil {
		return err
	}
	discard(resp)

	span.SetStatus(codes.Ok, "upload completed")
	return nil
}
