package canadapost

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

const (
	jobCancel         = "cancel"
	contextShipmentID = "shipment-id"
)

// CancelRequest voids a shipment by id.
func CancelRequest(payload *shipper.CancelRequest, _ Config) (*pipeline.Pipeline, error) {
	if payload.ShipmentIdentifier == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "shipment_identifier", Reason: "is required"})
	}
	return pipeline.Single(jobCancel, pipeline.Text("").WithContext(contextShipmentID, payload.ShipmentIdentifier)), nil
}

// parseCancel treats any response without error messages as a success;
// Canada Post answers a void with an empty 204.
func parseCancel(res *pipeline.Result, cfg Config) (*shipper.ConfirmationDetails, []shipper.Message) {
	msgs := parseMessages(cfg, res.Response(jobCancel))
	if shipper.HasErrors(msgs) {
		return nil, msgs
	}
	return &shipper.ConfirmationDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Operation:   "Cancel Shipment",
		Success:     true,
	}, msgs
}
