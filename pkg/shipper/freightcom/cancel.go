package freightcom

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

const jobCancel = "cancel"

// CancelRequest builds a DELETE /shipment/{id} call.
func CancelRequest(payload *shipper.CancelRequest, cfg Config) (*pipeline.Pipeline, error) {
	if payload.ShipmentIdentifier == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "shipment_identifier", Reason: "is required"})
	}
	req := pipeline.Text("").WithContext(contextShipmentID, payload.ShipmentIdentifier)
	return pipeline.Single(jobCancel, req), nil
}

// parseCancel accepts an empty body (204) or a cancelled status.
func parseCancel(raw string, cfg Config) (*shipper.ConfirmationDetails, []shipper.Message) {
	msgs := parseMessages(cfg, raw)
	if shipper.HasErrors(msgs) {
		return nil, msgs
	}
	if strings.TrimSpace(raw) != "" {
		if status := gjson.Get(raw, "status").String(); status != "" && status != "cancelled" {
			return nil, msgs
		}
	}
	return &shipper.ConfirmationDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Operation:   "Cancel Shipment",
		Success:     true,
	}, msgs
}
