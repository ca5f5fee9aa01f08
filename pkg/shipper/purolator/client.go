// Package purolator provides integration with the Purolator shipping API.
package purolator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

const carrierName = "purolator"

// Config holds Purolator configuration.
type Config struct {
	CarrierID     string
	Username      string
	Password      string
	AccountNumber string
	UserToken     string
	BaseURL       string
	Language      string
	UseMock       bool
	Timeout       time.Duration
	MaxAttempts   uint
	Observer      transport.Observer
}

func (c Config) carrierID() string {
	if c.CarrierID == "" {
		return carrierName
	}
	return c.CarrierID
}

func (c Config) language() string {
	if c.Language == "" {
		return "en"
	}
	return c.Language
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

// Client is the Purolator shipper client.
type Client struct {
	config Config
	doer   transport.Doer
	logger *otelzap.Logger
}

// New creates a new Purolator client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var doer transport.Doer
	if cfg.UseMock {
		doer = NewMockAPI()
	} else {
		doer = transport.New(transport.Config{
			Carrier:     carrierName,
			BaseURL:     cfg.BaseURL,
			Username:    cfg.Username,
			Password:    cfg.Password,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}, logger)
	}
	return NewWithDoer(cfg, transport.Observed(carrierName, doer, cfg.Observer), logger)
}

// NewWithDoer creates a new Purolator client over a custom transport.
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

// FetchRates returns Purolator estimates for every available service.
func (c *Client) FetchRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Getting Purolator rates",
		zap.String("origin_postal", req.Shipper.PostalCode),
		zap.String("destination_postal", req.Recipient.PostalCode),
		zap.Int("package_count", len(req.Parcels)),
	)

	p, err := RateRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Purolator API error", zap.Error(err))
		return nil, nil, err
	}

	rates, msgs := parseRates(res.Response(jobRates), req.Services, c.config)
	if len(rates) == 0 {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
	}
	return rates, msgs, nil
}

// CreateShipment creates a shipment then fetches its documents.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Creating Purolator shipment",
		zap.String("service", req.Service),
		zap.String("recipient", req.Recipient.PersonName),
	)

	p, err := ShipmentRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	// A created shipment is returned even when a follow-up call fails.
	res, runErr := p.Run(ctx, c.executor())
	if runErr != nil && res.State(jobCreate) != pipeline.Executed {
		c.logger.Ctx(ctx).Error("Purolator API error", zap.Error(runErr))
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
		c.logger.Ctx(ctx).Warn("Purolator documents not retrieved after shipment creation",
			zap.String("pin", details.TrackingNumber),
			zap.Error(runErr),
		)
		msgs = append(msgs, shipper.WarningFromError(carrierName, runErr))
	}
	return details, msgs, nil
}

// GetTracking retrieves the scans of every PIN in one call.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) ([]shipper.TrackingDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Tracking Purolator shipments", zap.Strings("pins", req.TrackingNumbers))

	p, err := TrackingRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Purolator API error", zap.Error(err))
		return nil, nil, err
	}

	details, msgs := parseTracking(res.Response(jobTracking), c.config)
	if len(details) == 0 {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
	}
	return details, msgs, nil
}

// CancelShipment voids a shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelRequest) (*shipper.ConfirmationDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Voiding Purolator shipment", zap.String("pin", req.ShipmentIdentifier))

	p, err := CancelRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Purolator API error", zap.Error(err))
		return nil, nil, err
	}

	confirmation, msgs := parseCancel(res.Response(jobVoid), c.config)
	if confirmation == nil {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
		return nil, msgs, shipper.NewCarrierResponseError(carrierName, "NOT_VOIDED", "shipment was not voided")
	}
	return confirmation, msgs, nil
}

func (c *Client) executor() pipeline.Executor {
	return transport.Executor(c.doer, c.route)
}

func (c *Client) route(job pipeline.Job) (transport.Call, error) {
	op, ok := operations[job.ID]
	if !ok {
		return transport.Call{}, fmt.Errorf("purolator: no route for job %q", job.ID)
	}
	return transport.Call{
		Operation: job.ID,
		Method:    http.MethodPost,
		URL:       op.Path,
		Headers: map[string]string{
			"Content-Type": "text/xml; charset=utf-8",
			"SOAPAction":   op.Action,
		},
		Once: job.ID == jobCreate,
	}, nil
}

// parseMessages extracts faults, errors and informational messages of a
// SOAP response.
func parseMessages(cfg Config, env *soapEnvelope) []shipper.Message {
	if env == nil {
		return nil
	}
	var msgs []shipper.Message
	if f := env.Body.Fault; f != nil {
		msgs = append(msgs, cfg.message(shipper.SeverityError, f.Code, f.String))
	}
	info := env.Body.information()
	if info == nil {
		return msgs
	}
	for _, e := range info.Errors {
		m := cfg.message(shipper.SeverityError, e.Code, e.Description)
		if e.AdditionalInfo != "" {
			m.Details = map[string]string{"additional_information": e.AdditionalInfo}
		}
		msgs = append(msgs, m)
	}
	for _, i := range info.Messages {
		msgs = append(msgs, cfg.message(shipper.SeverityInfo, i.Code, i.Message))
	}
	return msgs
}

// parseResponse decodes a raw response. Unreadable bodies become a
// PARSE_ERROR message.
func parseResponse(cfg Config, raw string) (*soapEnvelope, []shipper.Message) {
	if raw == "" {
		return nil, nil
	}
	env, err := parseEnvelope(raw)
	if err != nil {
		return nil, []shipper.Message{cfg.message(shipper.SeverityError, "PARSE_ERROR", err.Error())}
	}
	return env, parseMessages(cfg, env)
}

var _ shipper.Shipper = (*Client)(nil)
