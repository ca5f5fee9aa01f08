// Package transport performs the physical carrier calls produced by adapter
// pipelines.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

const instrumentation = "github.com/tournevent/carrierbridge/pkg/shipper/transport"

// ErrBadRequest wraps failures to build a request. They are never retried.
var ErrBadRequest = errors.New("transport: cannot build request")

// Call describes one HTTP request. URL may be absolute or a path relative to
// the client's base URL. A nil Body sends no payload.
type Call struct {
	Operation string
	Method    string
	URL       string
	Headers   map[string]string
	Body      pipeline.Request

	// Once marks a call that is not safe to repeat, such as a shipment
	// creation. It is retried only when the carrier rejected it with 429.
	Once bool
}

// Doer executes calls and returns the raw response text.
type Doer interface {
	Execute(ctx context.Context, call Call) (string, error)
}

// Func adapts a function to Doer.
type Func func(ctx context.Context, call Call) (string, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, call Call) (string, error) {
	return f(ctx, call)
}

// Router maps a pipeline job to the call that performs it.
type Router func(job pipeline.Job) (Call, error)

// Observer is told about every call a Doer completes.
type Observer interface {
	ObserveJob(carrier, operation string, duration time.Duration, err error)
}

// Observed reports every call made through d to o. It returns d unchanged
// when o is nil.
func Observed(carrier string, d Doer, o Observer) Doer {
	if o == nil {
		return d
	}
	return Func(func(ctx context.Context, call Call) (string, error) {
		start := time.Now()
		body, err := d.Execute(ctx, call)
		o.ObserveJob(carrier, call.Operation, time.Since(start), err)
		return body, err
	})
}

// Executor adapts a Doer to a pipeline executor.
func Executor(d Doer, route Router) pipeline.Executor {
	return func(ctx context.Context, job pipeline.Job) (string, error) {
		call, err := route(job)
		if err != nil {
			return "", err
		}
		if call.Body == nil {
			call.Body = job.Data
		}
		if call.Operation == "" {
			call.Operation = job.ID
		}
		return d.Execute(ctx, call)
	}
}

// Config holds transport configuration for one carrier.
type Config struct {
	Carrier  string
	BaseURL  string
	Username string
	Password string
	// APIKey is sent in APIKeyHeader when both are set.
	APIKey       string
	APIKeyHeader string
	Headers      map[string]string

	Timeout         time.Duration
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client is the HTTP implementation of Doer.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *otelzap.Logger
	tracer     trace.Tracer
}

// New creates a new transport client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		tracer:     otel.Tracer(instrumentation),
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Executor adapts the client to a pipeline executor.
func (c *Client) Executor(route Router) pipeline.Executor {
	return Executor(c, route)
}

// Execute sends the call, retrying connection failures, 408, 429 and 502-504
// with exponential backoff. Calls marked Once are retried on 429 only. The
// body is serialized again on every attempt.
// Other HTTP error statuses return their body so adapters can parse carrier
// error payloads; an empty error body becomes a TransportError.
func (c *Client) Execute(ctx context.Context, call Call) (string, error) {
	ctx, span := c.tracer.Start(ctx, "carrier.call", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("carrier.name", c.config.Carrier),
		attribute.String("carrier.operation", call.Operation),
		attribute.String("http.request.method", call.method()),
	)

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.InitialInterval
	exp.MaxInterval = c.config.MaxInterval

	attempt := 0
	body, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		body, err := c.attempt(ctx, call, attempt)
		if err != nil && call.Once && !rejected(err) {
			return "", permanent(err)
		}
		return body, err
	},
		backoff.WithBackOff(exp),
		backoff.WithMaxTries(c.config.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Ctx(ctx).Warn("Retrying carrier call",
				zap.String("carrier", c.config.Carrier),
				zap.String("operation", call.Operation),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
	span.SetAttributes(attribute.Int("carrier.attempts", attempt))

	if err != nil {
		err = c.wrap(call, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return body, nil
}

func (c *Client) attempt(ctx context.Context, call Call, n int) (string, error) {
	var payload io.Reader
	if call.Body != nil {
		data, err := call.Body.Serialize()
		if err != nil {
			return "", backoff.Permanent(fmt.Errorf("%w: serialize %s: %w", ErrBadRequest, call.Operation, err))
		}
		if len(data) > 0 {
			payload = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequestWithContext(ctx, call.method(), c.resolve(call.URL), payload)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("%w: %w", ErrBadRequest, err))
	}
	c.authorize(req)
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range call.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	c.logger.Ctx(ctx).Debug("Carrier call completed",
		zap.String("carrier", c.config.Carrier),
		zap.String("operation", call.Operation),
		zap.Int("status", resp.StatusCode),
		zap.Int("attempt", n),
		zap.Duration("duration", time.Since(start)),
	)

	return classify(c.config.Carrier, call.Operation, resp.StatusCode, string(data))
}

func classify(carrier, operation string, status int, body string) (string, error) {
	switch {
	case status < 400:
		return body, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", backoff.Permanent(&shipper.TransportError{
			Carrier: carrier, Operation: operation, StatusCode: status,
			Cause: shipper.ErrAuthenticationFailed,
		})
	case retryableStatus(status):
		cause := shipper.ErrServiceUnavailable
		if status == http.StatusTooManyRequests {
			cause = shipper.ErrRateLimitExceeded
		}
		return "", &shipper.TransportError{
			Carrier: carrier, Operation: operation, StatusCode: status,
			Retryable: true, Cause: cause,
		}
	case strings.TrimSpace(body) == "":
		return "", backoff.Permanent(&shipper.TransportError{
			Carrier: carrier, Operation: operation, StatusCode: status,
		})
	default:
		return body, nil
	}
}

// rejected reports whether the carrier refused the call before processing
// it.
func rejected(err error) bool {
	var transportErr *shipper.TransportError
	return errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusTooManyRequests
}

func permanent(err error) error {
	var p *backoff.PermanentError
	if errors.As(err, &p) {
		return err
	}
	return backoff.Permanent(err)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) wrap(call Call, err error) error {
	var transportErr *shipper.TransportError
	if errors.As(err, &transportErr) || errors.Is(err, ErrBadRequest) {
		return err
	}
	te := &shipper.TransportError{
		Carrier:   c.config.Carrier,
		Operation: call.Operation,
		Retryable: true,
		Cause:     err,
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		te.Timeout = true
	}
	if errors.Is(err, context.Canceled) {
		te.Retryable = false
	}
	return te
}

func (c *Client) authorize(req *http.Request) {
	if c.config.Username != "" || c.config.Password != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}
}

func (c *Client) resolve(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

func (call Call) method() string {
	if call.Method == "" {
		return http.MethodPost
	}
	return call.Method
}

var _ Doer = (*Client)(nil)
