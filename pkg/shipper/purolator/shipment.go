package purolator

import (
	"strings"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

func labelType(t shipper.LabelType) shipper.LabelType {
	if t == "" {
		return shipper.LabelPDF
	}
	return t
}

// ShipmentRequest builds the create then document pipeline. The document
// stage reads the shipment PIN from the creation response and is skipped,
// with an empty fallback, when the creation reported errors.
func ShipmentRequest(payload *shipper.ShipmentRequest, cfg Config) (*pipeline.Pipeline, error) {
	if payload.Service == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "service", Reason: "is required"})
	}
	printer, err := LabelTypes.Resolve(string(labelType(payload.LabelType)))
	if err != nil {
		return nil, err
	}

	options, err := units.NormalizeOptions(initializeOptions(payload), Options)
	if err != nil {
		return nil, err
	}
	packages, err := units.NormalizePackages(payload.Parcels, Vocabulary.PackageSpec(options))
	if err != nil {
		return nil, err
	}
	merged, err := options.Merge(packages.CommonOptions())
	if err != nil {
		return nil, err
	}

	pay := payment{Type: "Sender", Account: cfg.AccountNumber}
	if p := payload.Payment; p != nil {
		if t, ok := paymentTypes[p.PaidBy]; ok {
			pay.Type = t
		}
		if p.AccountNumber != "" {
			pay.Account = p.AccountNumber
		}
	}

	international := !strings.EqualFold(payload.Shipper.CountryCode, payload.Recipient.CountryCode)
	data := shipmentData{
		Sender:            toParty(payload.Shipper),
		Receiver:          toParty(payload.Recipient),
		ShipmentDate:      options.Get(units.OptionShipmentDate).String(),
		Package:           toPackageInfo(packages, Services.ValueOrKey(payload.Service), merged),
		Payment:           pay,
		NotificationEmail: options.Get(units.OptionEmailNotificationTo).String(),
		Reference:         payload.Reference,
		PrinterType:       printer,
	}
	if international {
		currency := options.Get(units.OptionCurrency).String()
		if currency == "" {
			currency = "CAD"
		}
		data.International = &internationalInfo{
			DocumentsOnly: packages.IsDocument(),
			DutyParty:     "Sender",
			Currency:      currency,
		}
	}

	types := documentTypes(international, printer)
	return pipeline.NewPipeline().
		Require(jobCreate, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.New(cfg.envelope(jobCreate, "CreateShipment", payload.Reference, data), serializeEnvelope)}
		}).
		Then(jobDocument, func(created string) pipeline.Job {
			pin, ok := shipmentPIN(cfg, created)
			if !ok {
				return pipeline.Job{Fallback: ""}
			}
			docs := documentsData{PIN: pin, DocumentTypes: types}
			return pipeline.Job{Data: pipeline.New(cfg.envelope(jobDocument, "GetDocuments", "", docs), serializeEnvelope)}
		}), nil
}

// initializeOptions fills email_notification_to from the recipient when
// email notification is requested without an address. An explicit false
// email_notification drops the address.
func initializeOptions(payload *shipper.ShipmentRequest) map[string]any {
	raw := make(map[string]any, len(payload.Options)+1)
	for k, v := range payload.Options {
		raw[k] = v
	}
	_, set := raw[units.OptionEmailNotification]
	on := units.Flagged(raw, units.OptionEmailNotification)
	delete(raw, units.OptionEmailNotification)
	switch to, _ := raw[units.OptionEmailNotificationTo].(string); {
	case set && !on:
		delete(raw, units.OptionEmailNotificationTo)
	case on && to == "" && payload.Recipient.Email != "":
		raw[units.OptionEmailNotificationTo] = payload.Recipient.Email
	}
	return raw
}

func documentTypes(international bool, printer string) []string {
	suffix := ""
	if printer == "Thermal" {
		suffix = "Thermal"
	}
	if !international {
		return []string{"DomesticBillOfLading" + suffix}
	}
	return []string{"InternationalBillOfLading" + suffix, "CustomsInvoice" + suffix}
}

// shipmentPIN returns the PIN of a creation response that holds no error.
func shipmentPIN(cfg Config, created string) (string, bool) {
	env, msgs := parseResponse(cfg, created)
	if env == nil || shipper.HasErrors(msgs) || env.Body.Create == nil {
		return "", false
	}
	pin := env.Body.Create.ShipmentPIN.Value
	return pin, pin != ""
}

func parseShipment(res *pipeline.Result, cfg Config, label shipper.LabelType) (*shipper.ShipmentDetails, []shipper.Message) {
	env, msgs := parseResponse(cfg, res.Response(jobCreate))
	if env == nil || env.Body.Create == nil || env.Body.Create.ShipmentPIN.Value == "" {
		return nil, msgs
	}
	created := env.Body.Create

	details := &shipper.ShipmentDetails{
		CarrierName:        carrierName,
		CarrierID:          cfg.carrierID(),
		TrackingNumber:     created.ShipmentPIN.Value,
		ShipmentIdentifier: created.ShipmentPIN.Value,
		LabelType:          label,
	}
	if len(created.PiecePINs) > 0 {
		pins := make([]string, len(created.PiecePINs))
		for i, p := range created.PiecePINs {
			pins[i] = p.Value
		}
		details.Meta = map[string]any{"piece_pins": pins}
	}

	docs, docMsgs := parseResponse(cfg, res.Response(jobDocument))
	msgs = append(msgs, docMsgs...)
	if docs == nil || docs.Body.Documents == nil {
		msgs = append(msgs, cfg.message(shipper.SeverityWarning, "NO_DOCUMENTS", "shipping documents not retrieved"))
		return details, msgs
	}
	for _, doc := range docs.Body.Documents.Documents {
		for _, d := range doc.DocumentDetails {
			switch {
			case strings.Contains(d.DocumentType, "BillOfLading") && details.Docs.Label == "":
				details.Docs.Label = d.Data
			case strings.Contains(d.DocumentType, "Invoice") && details.Docs.Invoice == "":
				details.Docs.Invoice = d.Data
			}
		}
	}
	return details, msgs
}
