// Package gridapi implements the HTTP calls made against a media API: the
// upload-time ordered image listing on the source side and the image loader
// and metadata editor on the destination side.
package gridapi

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/grid-enumerator/internal/domain/enumeration"
	"github.com/ahrav/grid-enumerator/pkg/common"
	"github.com/ahrav/grid-enumerator/pkg/common/logger"
)

// MediaKeyHeader carries the API key on authenticated requests.
const MediaKeyHeader = "X-Gu-Media-Key"

// maxErrorBody caps how much of a failed response body is kept for
// diagnostics.
const maxErrorBody = 64 << 10

// NewHTTPClient returns an http.Client instrumented with otelhttp. A zero
// timeout means requests never time out.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Client is the shared core of every media API call: authentication, rate
// limiting, tracing and mapping of non-200 responses to FetchError.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	rateLimiter *common.RateLimiter

	logger *logger.Logger
	tracer trace.Tracer
}

// NewClient creates a new Client. rateLimiter may be nil for no limiting.
func NewClient(
	httpClient *http.Client,
	apiKey string,
	rateLimiter *common.RateLimiter,
	logger *logger.Logger,
	tracer trace.Tracer,
) *Client {
	if rateLimiter == nil {
		rateLimiter = common.NewRateLimiter(0, 1)
	}
	return &Client{
		httpClient:  httpClient,
		apiKey:      apiKey,
		rateLimiter: rateLimiter,
		logger:      logger.With("component", "grid_api_client"),
		tracer:      tracer,
	}
}

// do executes req and returns the response when the status is 200. The
// caller owns the returned body. Any other outcome is a *FetchError and the
// body has already been consumed and closed.
func (c *Client) do(ctx context.Context, op string, req *http.Request, authenticated bool) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "grid_api_client.do_request",
		trace.WithAttributes(
			attribute.String("op", op),
			attribute.String("method", req.Method),
			attribute.String("url", req.URL.Redacted()),
		))
	defer span.End()

	target := req.URL.Redacted()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait failed")
		return nil, &enumeration.FetchError{Op: op, URL: target, Err: err}
	}

	if authenticated && c.apiKey != "" {
		req.Header.Set(MediaKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &enumeration.FetchError{Op: op, URL: target, Err: err}
	}

	span.SetAttributes(
		attribute.Int("status_code", resp.StatusCode),
		attribute.String("status", resp.Status),
	)

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		fetchErr := &enumeration.FetchError{
			Op:         op,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		span.RecordError(fetchErr)
		span.SetStatus(codes.Error, "non-200 response")
		c.logger.Debug(ctx, "Non-200 response",
			"op", op,
			"url", target,
			"status_code", resp.StatusCode,
		)
		return nil, fetchErr
	}

	span.SetStatus(codes.Ok, "request completed successfully")
	return resp, nil
}

// discard drains and closes a response body so the connection can be reused.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
