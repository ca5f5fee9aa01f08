// Package canadapost provides integration with the Canada Post shipping API.
package canadapost

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

const carrierName = "canadapost"

// Config holds Canada Post configuration.
type Config struct {
	CarrierID      string
	Username       string
	Password       string
	CustomerNumber string
	ContractID     string
	BaseURL        string
	Language       string
	UseMock        bool
	Timeout        time.Duration
	MaxAttempts    uint
	Observer       transport.Observer
}

func (c Config) carrierID() string {
	if c.CarrierID == "" {
		return carrierName
	}
	return c.CarrierID
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

// Client is the Canada Post shipper client.
type Client struct {
	config Config
	doer   transport.Doer
	logger *otelzap.Logger
}

// New creates a new Canada Post client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var doer transport.Doer
	if cfg.UseMock {
		doer = NewMockAPI()
	} else {
		language := cfg.Language
		if language == "" {
			language = "en-CA"
		}
		doer = transport.New(transport.Config{
			Carrier:     carrierName,
			BaseURL:     cfg.BaseURL,
			Username:    cfg.Username,
			Password:    cfg.Password,
			Headers:     map[string]string{"Accept-Language": language},
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}, logger)
	}
	return NewWithDoer(cfg, transport.Observed(carrierName, doer, cfg.Observer), logger)
}

// NewWithDoer creates a new Canada Post client over a custom transport.
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

// FetchRates returns Canada Post rates. Each parcel is rated separately and
// the quotes are summed per service.
func (c *Client) FetchRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Getting Canada Post rates",
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
		c.logger.Ctx(ctx).Error("Canada Post API error", zap.Error(err))
		// Totals over a subset of the parcels would be wrong; only the
		// messages of the answered calls are kept.
		_, msgs := parseRates(res, c.config)
		return nil, msgs, err
	}

	rates, msgs := parseRates(res, c.config)
	if len(rates) == 0 {
		if err := shipper.ErrorFromMessages(carrierName, msgs); err != nil {
			return nil, msgs, err
		}
	}
	return rates, msgs, nil
}

// CreateShipment creates a shipment and fetches its label.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Creating Canada Post shipment",
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
		c.logger.Ctx(ctx).Error("Canada Post API error", zap.Error(runErr))
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
		c.logger.Ctx(ctx).Warn("Canada Post label not retrieved after shipment creation",
			zap.String("shipment_id", details.ShipmentIdentifier),
			zap.Error(runErr),
		)
		msgs = append(msgs, shipper.WarningFromError(carrierName, runErr))
	}
	return details, msgs, nil
}

// GetTracking retrieves tracking details for every tracking PIN.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) ([]shipper.TrackingDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Tracking Canada Post parcels", zap.Strings("pins", req.TrackingNumbers))

	p, err := TrackingRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Canada Post API error", zap.Error(err))
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

// CancelShipment voids a shipment that has not been transmitted yet.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelRequest) (*shipper.ConfirmationDetails, []shipper.Message, error) {
	c.logger.Ctx(ctx).Info("Cancelling Canada Post shipment", zap.String("shipment_id", req.ShipmentIdentifier))

	p, err := CancelRequest(req, c.config)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Run(ctx, c.executor())
	if err != nil {
		c.logger.Ctx(ctx).Error("Canada Post API error", zap.Error(err))
		return nil, nil, err
	}

	confirmation, msgs := parseCancel(res, c.config)
	if confirmation == nil {
		return nil, msgs, shipper.ErrorFromMessages(carrierName, msgs)
	}
	return confirmation, msgs, nil
}

func (c *Client) executor() pipeline.Executor {
	return transport.Executor(c.doer, c.route)
}

func (c *Client) route(job pipeline.Job) (transport.Call, error) {
	customer := c.config.CustomerNumber
	switch {
	case strings.HasPrefix(job.ID, rateJobPrefix):
		return transport.Call{
			Operation: "rates",
			Method:    http.MethodPost,
			URL:       "/rs/ship/price",
			Headers:   map[string]string{"Content-Type": rateMediaType, "Accept": rateMediaType},
		}, nil
	case job.ID == jobCreate:
		return transport.Call{
			Operation: "create",
			Method:    http.MethodPost,
			URL:       fmt.Sprintf("/rs/%s/%s/shipment", customer, customer),
			Headers:   map[string]string{"Content-Type": shipmentMediaType, "Accept": shipmentMediaType},
			Once:      true,
		}, nil
	case job.ID == jobLabel:
		return transport.Call{
			Operation: "label",
			Method:    http.MethodGet,
			URL:       pipeline.ContextOf(job.Data, contextHref),
			Headers:   map[string]string{"Accept": pipeline.ContextOf(job.Data, contextMediaType)},
		}, nil
	case strings.HasPrefix(job.ID, trackJobPrefix):
		return transport.Call{
			Operation: "tracking",
			Method:    http.MethodGet,
			URL:       fmt.Sprintf("/vis/track/pin/%s/detail", pipeline.ContextOf(job.Data, contextPIN)),
			Headers:   map[string]string{"Accept": trackMediaType},
		}, nil
	case job.ID == jobCancel:
		return transport.Call{
			Operation: "cancel",
			Method:    http.MethodDelete,
			URL:       fmt.Sprintf("/rs/%s/%s/shipment/%s", customer, customer, pipeline.ContextOf(job.Data, contextShipmentID)),
			Headers:   map[string]string{"Accept": shipmentMediaType},
		}, nil
	}
	return transport.Call{}, fmt.Errorf("canadapost: no route for job %q", job.ID)
}

// parseMessages extracts the error messages of a Canada Post response.
func parseMessages(cfg Config, body string) []shipper.Message {
	if !strings.Contains(body, "<messages") {
		return nil
	}
	var msgs messages
	if err := xml.Unmarshal([]byte(body), &msgs); err != nil {
		return nil
	}
	out := make([]shipper.Message, 0, len(msgs.Message))
	for _, m := range msgs.Message {
		out = append(out, cfg.message(shipper.SeverityError, m.Code, m.Description))
	}
	return out
}

func serializeXML[T any](v T) ([]byte, error) {
	out, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// normalizePostalCode removes spaces from postal codes
func normalizePostalCode(pc string) string {
	return strings.ReplaceAll(strings.ToUpper(pc), " ", "")
}

var _ shipper.Shipper = (*Client)(nil)
