// Package mock provides a deterministic in-memory shipper for tests and
// local development.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Option configures a mock Client.
type Option func(*Client)

// WithDelay makes every call wait d, or until the context is done.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(c *Client) { c.err = err }
}

// WithMessages attaches msgs to every response.
func WithMessages(msgs ...shipper.Message) Option {
	return func(c *Client) { c.messages = msgs }
}

// WithPanic makes every call panic.
func WithPanic() Option {
	return func(c *Client) { c.panics = true }
}

// Client is a mock shipper for testing.
type Client struct {
	name     string
	delay    time.Duration
	err      error
	messages []shipper.Message
	panics   bool
	calls    atomic.Int64
}

// New creates a new mock shipper.
func New(name string, opts ...Option) *Client {
	c := &Client{name: name}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Calls returns how many operations were invoked.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

func (c *Client) begin(ctx context.Context) error {
	c.calls.Add(1)
	if c.panics {
		panic(c.name + " mock panic")
	}
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
	}
	return c.err
}

// FetchRates returns two mock rates.
func (c *Client) FetchRates(ctx context.Context, req *shipper.RateRequest) ([]shipper.RateDetails, []shipper.Message, error) {
	if err := c.begin(ctx); err != nil {
		return nil, c.messages, err
	}

	now := time.Now()
	standard := now.Add(5 * 24 * time.Hour)
	express := now.Add(2 * 24 * time.Hour)

	return []shipper.RateDetails{
		{
			CarrierName: c.name,
			CarrierID:   c.name,
			Service:     c.name + "_standard",
			Currency:    "CAD",
			BaseCharge:  12.50,
			TotalCharge: 15.82,
			Charges: []shipper.ChargeDetails{
				{Name: "Fuel Surcharge", Amount: 1.50, Currency: "CAD"},
				{Name: "Taxes", Amount: 1.82, Currency: "CAD"},
			},
			TransitDays:       5,
			EstimatedDelivery: &standard,
		},
		{
			CarrierName: c.name,
			CarrierID:   c.name,
			Service:     c.name + "_express",
			Currency:    "CAD",
			BaseCharge:  24.00,
			TotalCharge: 29.95,
			Charges: []shipper.ChargeDetails{
				{Name: "Fuel Surcharge", Amount: 2.50, Currency: "CAD"},
				{Name: "Taxes", Amount: 3.45, Currency: "CAD"},
			},
			TransitDays:       2,
			EstimatedDelivery: &express,
		},
	}, c.messages, nil
}

// CreateShipment creates a mock shipment.
func (c *Client) CreateShipment(ctx context.Context, req *shipper.ShipmentRequest) (*shipper.ShipmentDetails, []shipper.Message, error) {
	if err := c.begin(ctx); err != nil {
		return nil, c.messages, err
	}

	now := time.Now()
	prefix := strings.ToUpper(c.name)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	trackingNumber := fmt.Sprintf("1Z%s%d", prefix, now.UnixNano()%1000000000)
	labelType := req.LabelType
	if labelType == "" {
		labelType = shipper.LabelPDF
	}

	return &shipper.ShipmentDetails{
		CarrierName:        c.name,
		CarrierID:          c.name,
		TrackingNumber:     trackingNumber,
		ShipmentIdentifier: fmt.Sprintf("%s-shipment-%d", c.name, now.UnixNano()),
		LabelType:          labelType,
		Docs:               shipper.Documents{Label: "JVBERi0xLjQKJcfsj6IK"},
	}, c.messages, nil
}

// GetTracking returns one delivered history per tracking number.
func (c *Client) GetTracking(ctx context.Context, req *shipper.TrackingRequest) ([]shipper.TrackingDetails, []shipper.Message, error) {
	if err := c.begin(ctx); err != nil {
		return nil, c.messages, err
	}

	now := time.Now()
	details := make([]shipper.TrackingDetails, 0, len(req.TrackingNumbers))
	for _, number := range req.TrackingNumbers {
		details = append(details, shipper.TrackingDetails{
			CarrierName:    c.name,
			CarrierID:      c.name,
			TrackingNumber: number,
			Status:         shipper.StatusDelivered,
			Delivered:      true,
			Events: []shipper.TrackingEvent{
				{Date: now, Description: "Delivered", Code: "DEL"},
				{Date: now.Add(-24 * time.Hour), Description: "Picked up", Code: "PU"},
			},
		})
	}
	return details, c.messages, nil
}

// CancelShipment cancels a mock shipment.
func (c *Client) CancelShipment(ctx context.Context, req *shipper.CancelRequest) (*shipper.ConfirmationDetails, []shipper.Message, error) {
	if err := c.begin(ctx); err != nil {
		return nil, c.messages, err
	}

	return &shipper.ConfirmationDetails{
		CarrierName: c.name,
		CarrierID:   c.name,
		Operation:   "Cancel Shipment",
		Success:     true,
	}, c.messages, nil
}

var _ shipper.Shipper = (*Client)(nil)
