package freightcom

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

const (
	jobShipment = "shipment"
	jobDetails  = "details"
	jobLabel    = "label"

	contextShipmentID = "shipment-id"
	contextHref       = "href"
)

func labelType(t shipper.LabelType) shipper.LabelType {
	if t == "" {
		return shipper.LabelPDF
	}
	return t
}

// ShipmentRequest builds the create, details and label pipeline. Each stage
// reads what it needs from the previous response and falls back to an empty
// response when it is missing.
func ShipmentRequest(payload *shipper.ShipmentRequest, cfg Config) (*pipeline.Pipeline, error) {
	if payload.Service == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "service", Reason: "is required"})
	}
	format, err := LabelTypes.Resolve(string(labelType(payload.LabelType)))
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

	uniqueID := payload.Reference
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}
	body := CreateShipmentRequest{
		UniqueID:        uniqueID,
		PaymentMethodID: cfg.PaymentMethodID,
		ServiceID:       Services.ValueOrKey(payload.Service),
		Details:         shippingDetails(payload.Shipper, payload.Recipient, packages, merged),
		Sender:          toContact(payload.Shipper),
		Recipient:       toContact(payload.Recipient),
		Reference:       payload.Reference,
		LabelFormat:     format,
	}
	if !strings.EqualFold(payload.Shipper.CountryCode, payload.Recipient.CountryCode) {
		body.Details.CustomsData = customsData(packages, options, payload.Shipper.CountryCode)
	}

	return pipeline.NewPipeline().
		Require(jobShipment, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.New(body, serializeJSON[CreateShipmentRequest])}
		}).
		Then(jobDetails, func(created string) pipeline.Job {
			id := shipmentID(cfg, created)
			if id == "" {
				return pipeline.Job{Fallback: ""}
			}
			return pipeline.Job{Data: pipeline.Text("").WithContext(contextShipmentID, id)}
		}).
		Then(jobLabel, func(details string) pipeline.Job {
			href := labelURL(details, format)
			if href == "" {
				return pipeline.Job{Fallback: ""}
			}
			return pipeline.Job{Data: pipeline.Text("").WithContext(contextHref, href)}
		}), nil
}

// initializeOptions requests recipient notification when the shipment
// names an email address to notify.
func initializeOptions(payload *shipper.ShipmentRequest) map[string]any {
	raw := make(map[string]any, len(payload.Options)+1)
	for k, v := range payload.Options {
		raw[k] = v
	}
	if to, _ := raw[units.OptionEmailNotificationTo].(string); to != "" {
		raw[OptionNotifyRecipient] = true
	}
	return raw
}

func toContact(addr shipper.Address) Contact {
	name := addr.PersonName
	if name == "" {
		name = addr.CompanyName
	}
	return Contact{
		Name:    name,
		Company: addr.CompanyName,
		Phone:   addr.Phone,
		Email:   addr.Email,
	}
}

// customsData declares one line per package when no commodities are given.
func customsData(packages *units.PackageCollection, options *units.OptionSet, origin string) *CustomsData {
	currency := options.Get(units.OptionCurrency).String()
	if currency == "" {
		currency = "CAD"
	}
	data := &CustomsData{
		Description:     packages.Description(),
		ReasonForExport: "sale",
		Currency:        currency,
	}
	if data.Description == "" {
		data.Description = "merchandise"
	}
	declared := options.Get(units.OptionDeclaredValue).Float()
	n := float64(packages.Len())
	for _, pkg := range packages.All() {
		desc := pkg.Description()
		if desc == "" {
			desc = "item"
		}
		data.Items = append(data.Items, CustomsItem{
			Description:   desc,
			Quantity:      1,
			Value:         declared / n,
			Weight:        pkg.Weight.Round(units.LB, 2),
			CountryOrigin: strings.ToUpper(origin),
		})
	}
	return data
}

// shipmentID returns the id of a creation response that holds no error.
func shipmentID(cfg Config, created string) string {
	if shipper.HasErrors(parseMessages(cfg, created)) {
		return ""
	}
	return gjson.Get(created, "id").String()
}

// labelURL picks the label in the requested format, or the first one.
func labelURL(details, format string) string {
	labels := gjson.Get(details, "labels")
	if href := labels.Get(`#(format=="` + format + `").url`).String(); href != "" {
		return href
	}
	return labels.Get("0.url").String()
}

func parseShipment(res *pipeline.Result, cfg Config, label shipper.LabelType) (*shipper.ShipmentDetails, []shipper.Message) {
	created := res.Response(jobShipment)
	msgs := parseMessages(cfg, created)
	id := gjson.Get(created, "id").String()
	if shipper.HasErrors(msgs) || id == "" {
		return nil, msgs
	}

	details := &shipper.ShipmentDetails{
		CarrierName:        carrierName,
		CarrierID:          cfg.carrierID(),
		ShipmentIdentifier: id,
		LabelType:          label,
		Meta:               map[string]any{"unique_id": gjson.Get(created, "unique_id").String()},
	}

	info := res.Response(jobDetails)
	msgs = append(msgs, parseMessages(cfg, info)...)
	if res.State(jobDetails) != pipeline.Executed || !gjson.Valid(info) {
		msgs = append(msgs, cfg.message(shipper.SeverityWarning, "DETAILS_SKIPPED", "shipment details not retrieved"))
		return details, msgs
	}

	doc := gjson.Parse(info)
	details.TrackingNumber = doc.Get("tracking_numbers.0").String()
	details.Meta["tracking_url"] = doc.Get("tracking_url").String()
	details.Meta["status"] = doc.Get("status").String()
	if rate := doc.Get("rate"); rate.IsObject() {
		r := toRate(rate, cfg)
		details.SelectedRate = &r
		details.Meta["service_name"] = r.Meta["service_name"]
		details.Meta["rate_provider"] = r.Meta["rate_provider"]
	}

	switch res.State(jobLabel) {
	case pipeline.Executed:
		details.Docs.Label = base64.StdEncoding.EncodeToString([]byte(res.Response(jobLabel)))
	default:
		msgs = append(msgs, cfg.message(shipper.SeverityWarning, "LABEL_SKIPPED", "label not available yet"))
	}
	return details, msgs
}
