package purolator

import (
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

// CancelRequest builds a VoidShipment call.
func CancelRequest(payload *shipper.CancelRequest, cfg Config) (*pipeline.Pipeline, error) {
	if payload.ShipmentIdentifier == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "shipment_identifier", Reason: "is required"})
	}
	env := cfg.envelope(jobVoid, "VoidShipment", "", pinData{PIN: payload.ShipmentIdentifier})
	return pipeline.Single(jobVoid, pipeline.New(env, serializeEnvelope)), nil
}

func parseCancel(raw string, cfg Config) (*shipper.ConfirmationDetails, []shipper.Message) {
	env, msgs := parseResponse(cfg, raw)
	if env == nil || env.Body.Void == nil || shipper.HasErrors(msgs) || !env.Body.Void.ShipmentVoided {
		return nil, msgs
	}
	return &shipper.ConfirmationDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Operation:   "Cancel Shipment",
		Success:     true,
	}, msgs
}
