package shipper

import (
	"time"
)

// TrackingStatus represents the normalized status of a tracked shipment.
type TrackingStatus string

const (
	StatusPending        TrackingStatus = "pending"
	StatusPickedUp       TrackingStatus = "picked_up"
	StatusInTransit      TrackingStatus = "in_transit"
	StatusOutForDelivery TrackingStatus = "out_for_delivery"
	StatusDelivered      TrackingStatus = "delivered"
	StatusCancelled      TrackingStatus = "cancelled"
	StatusException      TrackingStatus = "exception"
	StatusUnknown        TrackingStatus = "unknown"
)

// Severity classifies a carrier Message.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// LabelType is the unified label format key.
type LabelType string

const (
	LabelPDF LabelType = "PDF"
	LabelZPL LabelType = "ZPL"
	LabelPNG LabelType = "PNG"
)

// Address represents a shipping address together with its contact.
type Address struct {
	PersonName   string `json:"person_name,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	Line1        string `json:"address_line1,omitempty"`
	Line2        string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	ProvinceCode string `json:"state_code,omitempty"` // e.g., "ON", "QC", "BC"
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code"` // ISO 3166-1 alpha-2, e.g., "CA", "US"
	Phone        string `json:"phone_number,omitempty"`
	Email        string `json:"email,omitempty"`
	Residential  bool   `json:"residential,omitempty"`
}

// Parcel is a package description as received from the caller.
// Zero numeric fields mean "not provided"; units default to CM and KG.
type Parcel struct {
	ID            string         `json:"id,omitempty"`
	Length        float64        `json:"length,omitempty"`
	Width         float64        `json:"width,omitempty"`
	Height        float64        `json:"height,omitempty"`
	DimensionUnit string         `json:"dimension_unit,omitempty"`
	Weight        float64        `json:"weight,omitempty"`
	WeightUnit    string         `json:"weight_unit,omitempty"`
	PackagingType string         `json:"packaging_type,omitempty"`
	PackagePreset string         `json:"package_preset,omitempty"`
	IsDocument    bool           `json:"is_document,omitempty"`
	Description   string         `json:"description,omitempty"`
	Content       string         `json:"content,omitempty"`
	Reference     string         `json:"reference_number,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

// Payment describes who pays for a shipment.
type Payment struct {
	PaidBy        string `json:"paid_by,omitempty"` // "sender", "recipient", "third_party"
	AccountNumber string `json:"account_number,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// ============================================================================
// Requests
// ============================================================================

// RateRequest asks carriers for shipping rates.
type RateRequest struct {
	Shipper   Address        `json:"shipper"`
	Recipient Address        `json:"recipient"`
	Parcels   []Parcel       `json:"parcels"`
	Services  []string       `json:"services,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Reference string         `json:"reference,omitempty"`
}

// ShipmentRequest asks a carrier to create a shipment.
type ShipmentRequest struct {
	Service   string         `json:"service"`
	Shipper   Address        `json:"shipper"`
	Recipient Address        `json:"recipient"`
	Parcels   []Parcel       `json:"parcels"`
	Options   map[string]any `json:"options,omitempty"`
	Payment   *Payment       `json:"payment,omitempty"`
	LabelType LabelType      `json:"label_type,omitempty"`
	Reference string         `json:"reference,omitempty"`
}

// TrackingRequest asks a carrier for tracking details.
type TrackingRequest struct {
	TrackingNumbers []string `json:"tracking_numbers"`
	Reference       string   `json:"reference,omitempty"`
}

// CancelRequest asks a carrier to void a shipment.
type CancelRequest struct {
	ShipmentIdentifier string         `json:"shipment_identifier"`
	Options            map[string]any `json:"options,omitempty"`
}

// ============================================================================
// Canonical results
// ============================================================================

// ChargeDetails is one line of a rate breakdown.
type ChargeDetails struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// RateDetails is a carrier-neutral rate quote.
type RateDetails struct {
	CarrierName       string          `json:"carrier_name"`
	CarrierID         string          `json:"carrier_id"`
	Service           string          `json:"service"`
	Currency          string          `json:"currency"`
	TotalCharge       float64         `json:"total_charge"`
	BaseCharge        float64         `json:"base_charge,omitempty"`
	Charges           []ChargeDetails `json:"extra_charges,omitempty"`
	TransitDays       int             `json:"transit_days,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Meta              map[string]any  `json:"meta,omitempty"`
}

// Documents holds base64-encoded shipment documents.
type Documents struct {
	Label   string `json:"label,omitempty"`
	Invoice string `json:"invoice,omitempty"`
}

// ShipmentDetails is a carrier-neutral created shipment.
type ShipmentDetails struct {
	CarrierName        string         `json:"carrier_name"`
	CarrierID          string         `json:"carrier_id"`
	TrackingNumber     string         `json:"tracking_number"`
	ShipmentIdentifier string         `json:"shipment_identifier"`
	LabelType          LabelType      `json:"label_type,omitempty"`
	Docs               Documents      `json:"docs"`
	SelectedRate       *RateDetails   `json:"selected_rate,omitempty"`
	Meta               map[string]any `json:"meta,omitempty"`
}

// TrackingEvent is one scan in a tracking history.
type TrackingEvent struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Code        string    `json:"code,omitempty"`
}

// TrackingDetails is a carrier-neutral tracking history, newest event first.
type TrackingDetails struct {
	CarrierName       string          `json:"carrier_name"`
	CarrierID         string          `json:"carrier_id"`
	TrackingNumber    string          `json:"tracking_number"`
	Status            TrackingStatus  `json:"status"`
	Delivered         bool            `json:"delivered"`
	Events            []TrackingEvent `json:"events"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
}

// ConfirmationDetails reports the outcome of a void operation.
type ConfirmationDetails struct {
	CarrierName string `json:"carrier_name"`
	CarrierID   string `json:"carrier_id"`
	Operation   string `json:"operation"`
	Success     bool   `json:"success"`
}

// Message is a carrier-tagged warning or error extracted from a response.
type Message struct {
	CarrierName string            `json:"carrier_name"`
	CarrierID   string            `json:"carrier_id"`
	Severity    Severity          `json:"severity"`
	Code        string            `json:"code,omitempty"`
	Message     string            `json:"message"`
	Details     map[string]string `json:"details,omitempty"`
}

// HasErrors reports whether any message is an error.
func HasErrors(msgs []Message) bool {
	for _, m := range msgs {
		if m.Severity == SeverityError {
			return true
		}
	}
	return false
}
