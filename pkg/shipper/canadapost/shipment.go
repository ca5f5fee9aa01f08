package canadapost

import (
	"encoding/base64"
	"encoding/xml"
	"strings"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

const (
	jobCreate = "create"
	jobLabel  = "label"

	contextHref      = "href"
	contextMediaType = "media-type"
)

func labelType(t shipper.LabelType) shipper.LabelType {
	if t == "" {
		return shipper.LabelPDF
	}
	return t
}

// ShipmentRequest builds the create then label pipeline. The label stage is
// skipped when the creation failed or returned no label link.
func ShipmentRequest(payload *shipper.ShipmentRequest, cfg Config) (*pipeline.Pipeline, error) {
	if payload.Service == "" {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "service", Reason: "is required"})
	}
	encoding, err := LabelTypes.Resolve(string(labelType(payload.LabelType)))
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
	if packages.Len() > 1 {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{
			Index: -1, Field: "parcels", Reason: "a shipment carries a single parcel",
		})
	}
	pkg := packages.Single()

	shipment := ShipmentType{
		Xmlns:                  shipmentNamespace,
		GroupID:                payload.Reference,
		RequestedShippingPoint: normalizePostalCode(payload.Shipper.PostalCode),
		ExpectedMailingDate:    options.Get(units.OptionShipmentDate).String(),
		DeliverySpec: DeliverySpec{
			ServiceCode: Services.ValueOrKey(payload.Service),
			Sender: Sender{
				Name:           payload.Shipper.PersonName,
				Company:        firstNonEmpty(payload.Shipper.CompanyName, payload.Shipper.PersonName),
				ContactPhone:   payload.Shipper.Phone,
				AddressDetails: addressDetails(payload.Shipper),
			},
			Destination: Recipient{
				Name:           payload.Recipient.PersonName,
				Company:        payload.Recipient.CompanyName,
				ClientVoice:    payload.Recipient.Phone,
				AddressDetails: addressDetails(payload.Recipient),
			},
			Options:          optionsType(pkg.Options),
			ParcelCharacters: parcelCharacteristics(pkg),
			Notification:     notification(options),
			PrintPreferences: PrintPreferences{OutputFormat: "8.5x11", Encoding: encoding},
			Preferences:      Preferences{ShowPackingInstructions: true},
			SettlementInfo: SettlementInfo{
				ContractID:              cfg.ContractID,
				IntendedMethodOfPayment: "Account",
			},
		},
	}
	if encoding == "ZPL" {
		shipment.DeliverySpec.PrintPreferences.OutputFormat = "4x6"
	}
	if ref := pkg.Parcel.Reference; ref != "" || payload.Reference != "" {
		shipment.DeliverySpec.References = &References{
			CustomerRef1: firstNonEmpty(ref, payload.Reference),
		}
	}
	if shipment.GroupID == "" {
		shipment.GroupID = "carrierbridge"
	}

	return pipeline.NewPipeline().
		Require(jobCreate, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.New(shipment, serializeXML[ShipmentType])}
		}).
		Then(jobLabel, func(created string) pipeline.Job {
			href, mediaType, ok := labelLink(cfg, created)
			if !ok {
				return pipeline.Job{Fallback: ""}
			}
			return pipeline.Job{Data: pipeline.Text("").
				WithContext(contextHref, href).
				WithContext(contextMediaType, mediaType)}
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

func notification(options *units.OptionSet) *Notification {
	email := options.Get(units.OptionEmailNotificationTo).String()
	if email == "" {
		return nil
	}
	return &Notification{Email: email, OnShipment: true, OnException: true, OnDelivery: true}
}

func addressDetails(addr shipper.Address) AddressDetails {
	return AddressDetails{
		AddressLine1:  addr.Line1,
		AddressLine2:  addr.Line2,
		City:          addr.City,
		ProvState:     addr.ProvinceCode,
		CountryCode:   strings.ToUpper(addr.CountryCode),
		PostalZipCode: normalizePostalCode(addr.PostalCode),
	}
}

// labelLink returns the label artifact link of a creation response.
func labelLink(cfg Config, created string) (href, mediaType string, ok bool) {
	if shipper.HasErrors(parseMessages(cfg, created)) {
		return "", "", false
	}
	var info shipmentInfo
	if err := xml.Unmarshal([]byte(created), &info); err != nil {
		return "", "", false
	}
	for _, l := range info.Links {
		if l.Rel == "label" && l.Href != "" {
			mediaType = l.MediaType
			if mediaType == "" {
				mediaType = "application/pdf"
			}
			return l.Href, mediaType, true
		}
	}
	return "", "", false
}

func parseShipment(res *pipeline.Result, cfg Config, label shipper.LabelType) (*shipper.ShipmentDetails, []shipper.Message) {
	created := res.Response(jobCreate)
	msgs := parseMessages(cfg, created)
	if shipper.HasErrors(msgs) {
		return nil, msgs
	}

	var info shipmentInfo
	if err := xml.Unmarshal([]byte(created), &info); err != nil || info.ShipmentID == "" {
		return nil, msgs
	}

	details := &shipper.ShipmentDetails{
		CarrierName:        carrierName,
		CarrierID:          cfg.carrierID(),
		TrackingNumber:     info.TrackingPIN,
		ShipmentIdentifier: info.ShipmentID,
		LabelType:          label,
		Meta: map[string]any{
			"shipment_status": info.ShipmentStatus,
		},
	}

	document := res.Response(jobLabel)
	switch {
	case res.State(jobLabel) != pipeline.Executed:
		msgs = append(msgs, cfg.message(shipper.SeverityWarning, "LABEL_SKIPPED", "label not retrieved"))
	case strings.Contains(document, "<messages"):
		msgs = append(msgs, parseMessages(cfg, document)...)
	case document != "":
		details.Docs.Label = base64.StdEncoding.EncodeToString([]byte(document))
	}
	return details, msgs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
