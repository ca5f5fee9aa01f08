// Package freightcom provides integration with the Freightcom shipping API.
package freightcom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

const carrierName = "freightcom"

// Config holds Freightcom configuration.
type Config struct {
	CarrierID       string
	APIKey          string
	BaseURL         string
	PaymentMethodID string
	UseMock         bool
	Timeout         time.Duration
	MaxAttempts     uint
	Observer        transport.Observer
	// PollInterval and PollTimeout bound the wait for asynchronous rating.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (c Config) carrierID() string {
	if c.CarrierID == "" {
		return carrierName
	}
	return c.CarrierID
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval == 0 {
		return 500 * time.Millisecond
	}
	return c.PollInterval
}

func (c Config) pollTimeout() time.Duration {
	if c.PollTimeout == 0 {
		return 30 * time.Second
	}
	return c.PollTimeout
}

func (c Config) message(severity shipper.Severity, code, text string) shipper.Message {
	return shipper.Message{
		CarrierName: carrierName,
		CarrierID:   c.carrierID(),
		Severity:    severity,
		Code:        code,
		Message:     text,
	}
}

// errRatesPending keeps the rate poll loop going.
var errRatesPending = errors.New("freightcom: rates still pending")

// Client is the Freightcom shipper client.
type Client struct {
	config Config
	doer   transport.Doer
	logger *otelzap.Logger
}

// New creates a new Freightcom client. A mock endpoint is used when
// cfg.UseMock is set.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var doer transport.Doer
	if cfg.UseMock {
		doer = NewMockAPI()
	} else {
		doer = transport.New(transport.Config{
			Carrier:      carrierName,
			BaseURL:      cfg.BaseURL,
			APIKey:       cfg.APIKey,
			APIKeyHeader: "X-API-Key",
			Headers:      map[string]string{"Accept": "application/json"},
			Timeout:      cfg.Timeout,
			MaxAttempts:  cfg.MaxAttempts,
		}, logger)
	}
	return NewWithDoer(cfg, transport.Observed(carrierName, doer, cfg.Observer), logger)
}

// NewWithDoer creates a new Freightcom client over a custom transport.
func NewWithDoer(cfg Config, doer transport.Doer, logger *otelzap.Logger) *Client {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &Client{
		config: cfg,
		doer:   doer,
		logger: logger,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// FetchRates submits a rate request then polls until Freightcom has
// collected the quotes of its partner carriers.
func (c *Client) FetchRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Getting Freightcom quotes",
		zap.String("origin_city", req.Shipper.City),
		zap.String("destination_city", req.Recipient.City),
		zap.Int("package_count", len(req.Parcels)),
	)

	p, err := RateRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Freightcom API error", zap.Error(err))
		return nil, nil, err
	}

	quotes := res.Response(jobRatePoll)
	if res.State(jobRatePoll) == pipeline.Executed && ratesPending(quotes) {
		quotes, err = c.awaitRates(ctx, requestID(res.Response(jobRateSubmit)))
		if err != nil {
			c.logger.Ctx(ctx).Error("Freightcom rating did not complete", zap.Error(err))
			return nil, nil, err
		}
	}

	msgs := parseMessages(c.config, res.Response(jobRateSubmit))
	rates, rateMsgs := parseRates(quotes, c.config)
	msgs = append(msgs, rateMsgs...)
	if len(rates) == 0 {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
	}
	return rates, msgs, nil
}

// awaitRates polls GET /rate/{id} at a constant interval until the quote
// set is complete or the poll timeout elapses.
func (c *Client) awaitRates(ctx context.Context, id string) (string, error) {
	exec := c.executor()
	poll := pipeline.Job{ID: jobRatePoll, Data: pipeline.Text("").WithContext(contextRequestID, id)}

	body, err := backoff.Retry(ctx, func() (string, error) {
		body, err := exec(ctx, poll)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if ratesPending(body) {
			return "", errRatesPending
		}
		return body, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.config.pollInterval())),
		backoff.WithMaxElapsedTime(c.config.pollTimeout()),
	)
	if errors.Is(err, errRatesPending) {
		return "", &shipper.TransportError{
			Carrier:   carrierName,
			Operation: jobRatePoll,
			Timeout:   true,
			Retryable: true,
			Cause:     err,
		}
	}
	return body, err
}

// CreateShipment books a shipment, reads back its details and downloads
// the label.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Creating Freightcom shipment",
		zap.String("service", req.Service),
		zap.String("recipient", req.Recipient.PersonName),
	)

	p, err := ShipmentRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	// A created shipment is returned even when a follow-up call fails.
	res, runErr := p.Run(ctx, c.executor())
	if runErr != nil && res.State(jobShipment) != pipeline.Executed {
		c.logger.Ctx(ctx).Error("Freightcom API error", zap.Error(runErr))
		return nil, nil, runErr
	}

	details, msgs := parseShipment(res, c.config, labelType(req.LabelType))
	if details == nil {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
		if runErr != nil {
			return nil, msgs, runErr
		}
		return nil, msgs, shipper.NewCarrierResponseError(carrierName, "NO_SHIPMENT", "no shipment in response")
	}
	if runErr != nil {
		c.logger.Ctx(ctx).Warn("Freightcom shipment created but follow-up call failed",
			zap.String("shipment_id", details.ShipmentIdentifier),
			zap.Error(runErr),
		)
		msgs = append(msgs, shipper.WarningFromError(carrierName, runErr))
	}
	return details, msgs, nil
}

// GetTracking reads the tracking events of every shipment id.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) ([]shipper.TrackingDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Tracking Freightcom shipments", zap.Strings("shipment_ids", req.TrackingNumbers))

	p, err := TrackingRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Freightcom API error", zap.Error(err))
		return nil, nil, err
	}

	details, msgs := parseTracking(res, c.config)
	if len(details) == 0 {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
	}
	return details, msgs, nil
}

// CancelShipment cancels a booked shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelRequest) (*shipper.ConfirmationDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Cancelling Freightcom shipment", zap.String("shipment_id", req.ShipmentIdentifier))

	p, err := CancelRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Freightcom API error", zap.Error(err))
		return nil, nil, err
	}

	confirmation, msgs := parseCancel(res.Response(jobCancel), c.config)
	if confirmation == nil {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
		return nil, msgs, shipper.NewCarrierResponseError(carrierName, "NOT_CANCELLED", "shipment was not cancelled")
	}
	return confirmation, msgs, nil
}

func (c *Client) executor() pipeline.Executor {
	return transport.Executor(c.doer, c.route)
}

func (c *Client) route(job pipeline.Job) (transport.Call, error) {
	jsonHeaders := map[string]string{"Content-Type": "application/json"}
	switch {
	case job.ID == jobRateSubmit:
		return transport.Call{Method: http.MethodPost, URL: "/rate", Headers: jsonHeaders}, nil
	case job.ID == jobRatePoll:
		return transport.Call{
			Method: http.MethodGet,
			URL:    "/rate/" + pipeline.ContextOf(job.Data, contextRequestID),
		}, nil
	case job.ID == jobShipment:
		return transport.Call{Method: http.MethodPost, URL: "/shipment", Headers: jsonHeaders, Once: true}, nil
	case job.ID == jobDetails:
		return transport.Call{
			Method: http.MethodGet,
			URL:    "/shipment/" + pipeline.ContextOf(job.Data, contextShipmentID),
		}, nil
	case job.ID == jobLabel:
		return transport.Call{
			Method:  http.MethodGet,
			URL:     pipeline.ContextOf(job.Data, contextHref),
			Headers: map[string]string{"Accept": "*/*"},
		}, nil
	case strings.HasPrefix(job.ID, trackJobPrefix):
		return transport.Call{
			Operation: "tracking",
			Method:    http.MethodGet,
			URL:       fmt.Sprintf("/shipment/%s/tracking-events", pipeline.ContextOf(job.Data, contextShipmentID)),
		}, nil
	case job.ID == jobCancel:
		return transport.Call{
			Method: http.MethodDelete,
			URL:    "/shipment/" + pipeline.ContextOf(job.Data, contextShipmentID),
		}, nil
	}
	return transport.Call{}, fmt.Errorf("freightcom: no route for job %q", job.ID)
}

// parseMessages extracts the error payload of a Freightcom response:
// {"code": "...", "message": "...", "errors": {"field": "reason"}}.
func parseMessages(cfg Config, raw string) []shipper.Message {
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}
	doc := gjson.Parse(raw)
	text := doc.Get("message")
	if !text.Exists() {
		return nil
	}

	code := doc.Get("code").String()
	if code == "" {
		code = "ERROR"
	}
	m := cfg.message(shipper.SeverityError, code, text.String())
	if fields := doc.Get("errors"); fields.IsObject() {
		m.Details = make(map[string]string)
		fields.ForEach(func(key, value gjson.Result) bool {
			m.Details[key.String()] = value.String()
			return true
		})
	}
	return []shipper.Message{m}
}

var _ shipper.Shipper = (*Client)(nil)
