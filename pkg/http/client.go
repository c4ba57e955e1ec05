// Package http wraps the standard client with the resilience stack every
// remote call goes through: retry with backoff, a circuit breaker, request
// signing, and per-request tracing and metrics.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "botfarm/pkg/errors"
	"botfarm/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// APIError is returned for any non-2xx response that survived the retry
// pipeline, carrying the raw body for callers that need to inspect it.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Unwrap maps HTTP status classes onto the standardized platform errors
// so callers can classify failures without parsing bodies.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return apperrors.ErrAccessDenied
	case e.StatusCode >= 500:
		return apperrors.ErrNetwork
	default:
		return nil
	}
}

// Signer adds whatever authentication a request needs before it is sent.
type Signer interface {
	SignRequest(req *http.Request) error
}

// Client issues signed JSON requests against a single base URL.
type Client struct {
	client   *http.Client
	baseURL  string
	signer   Signer
	pipeline failsafe.Executor[*http.Response]

	tracer      trace.Tracer
	reqCounter  metric.Int64Counter
	errCounter  metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// newPipeline builds the shared resilience chain: up to three retries with
// exponential backoff on transport errors, 5xx, and 429, behind a breaker
// that opens after 5 failures out of 10 and probes again after 10s.
func newPipeline() failsafe.Executor[*http.Response] {
	retry := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	return failsafe.With[*http.Response](retry, breaker)
}

// NewClient builds a client for baseURL with the default resilience
// pipeline. A nil signer sends requests unsigned.
func NewClient(baseURL string, timeout time.Duration, signer Signer) *Client {
	meter := telemetry.GetMeter("http-client")
	reqCounter, _ := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errCounter, _ := meter.Int64Counter("http_errors_total",
		metric.WithDescription("Total number of HTTP errors"))
	latencyHist, _ := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"))

	return &Client{
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		signer:      signer,
		pipeline:    newPipeline(),
		tracer:      telemetry.GetTracer("http-client"),
		reqCounter:  reqCounter,
		errCounter:  errCounter,
		latencyHist: latencyHist,
	}
}

// Get issues a GET with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	req.URL.RawQuery = q.Encode()

	return c.do(req)
}

// Post issues a POST with body marshaled as JSON. A nil body sends an
// empty request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		// bytes.Reader gives the request a GetBody, which the retry
		// pipeline needs to replay the payload.
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

func (c *Client) reqAttrs(req *http.Request) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("path", req.URL.Path),
	)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()

	ctx, span := c.tracer.Start(req.Context(), fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)

	if c.signer != nil {
		if err := c.signer.SignRequest(req); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	resp, err := c.send(req)

	c.reqCounter.Add(ctx, 1, c.reqAttrs(req))
	c.latencyHist.Record(ctx, time.Since(start).Seconds(), c.reqAttrs(req))

	if err != nil {
		span.RecordError(err)
		c.errCounter.Add(ctx, 1, c.reqAttrs(req),
			metric.WithAttributes(attribute.String("error", "pipeline_failed")))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s %s", apperrors.ErrTimeout, req.Method, req.URL.Path)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.errCounter.Add(ctx, 1, c.reqAttrs(req),
			metric.WithAttributes(attribute.Int("status", resp.StatusCode)))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

// send runs the request through the resilience pipeline.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	return c.pipeline.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		// The body is consumed on each attempt; rewind it before a retry
		// or every POST retry would go out empty.
		if exec.Attempts() > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req.Body = body
		}
		return c.client.Do(req)
	})
}
