// Package shipper provides an abstraction layer for shipping carriers.
package shipper

//go:generate mockgen -source=shipper.go -destination=mocks/shipper_mock.go -package=mocks Shipper

import (
	"context"
)

// Shipper defines the interface that all shipping carriers must implement.
//
// Every operation returns the canonical result together with the carrier
// messages found in the response. A non-nil error means the operation
// produced no usable result.
type Shipper interface {
	// Name returns the carrier identifier (e.g., "freightcom", "canadapost", "purolator").
	Name() string

	// FetchRates returns shipping rates for a shipment.
	FetchRates(ctx context.Context, req *RateRequest) ([]RateDetails, []Message, error)

	// CreateShipment creates a shipment and retrieves its label.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentDetails, []Message, error)

	// GetTracking returns tracking details for one or more tracking numbers.
	GetTracking(ctx context.Context, req *TrackingRequest) ([]TrackingDetails, []Message, error)

	// CancelShipment voids an existing shipment.
	CancelShipment(ctx context.Context, req *CancelRequest) (*ConfirmationDetails, []Message, error)
}
