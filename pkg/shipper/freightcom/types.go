package freightcom

import "encoding/json"

// ============================================================================
// Request types (match Freightcom REST API v2 structure)
// ============================================================================

// RatesRequest is the body of POST /rate.
type RatesRequest struct {
	Services []string        `json:"services,omitempty"`
	Details  ShippingDetails `json:"details"`
}

// ShippingDetails describes the route, packaging and options of a shipment.
type ShippingDetails struct {
	Origin           Location       `json:"origin"`
	Destination      Location       `json:"destination"`
	ExpectedShipDate string         `json:"expected_ship_date,omitempty"`
	Packaging        PackagingInfo  `json:"packaging"`
	Options          map[string]any `json:"options,omitempty"`
	CustomsData      *CustomsData   `json:"customs_data,omitempty"`
}

// Location is an origin or destination address.
type Location struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Residential bool   `json:"residential,omitempty"`
}

// PackagingInfo lists the packages of a shipment. Type is "package",
// "envelope", "courier-pak" or "pallet".
type PackagingInfo struct {
	Type     string    `json:"type"`
	Packages []Package `json:"packages"`
}

// Package is one parcel in inches and pounds.
type Package struct {
	Length      int     `json:"length"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Weight      int     `json:"weight"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	Insurance   float64 `json:"insurance_amount,omitempty"`
}

// CustomsData is attached to international shipments.
type CustomsData struct {
	Description     string        `json:"description"`
	ReasonForExport string        `json:"reason_for_export"`
	Currency        string        `json:"currency"`
	Items           []CustomsItem `json:"items"`
}

// CustomsItem is one customs declaration line.
type CustomsItem struct {
	Description   string  `json:"description"`
	Quantity      int     `json:"quantity"`
	Value         float64 `json:"value"`
	Weight        float64 `json:"weight"`
	CountryOrigin string  `json:"country_of_origin"`
}

// CreateShipmentRequest is the body of POST /shipment.
type CreateShipmentRequest struct {
	UniqueID        string          `json:"unique_id"`
	PaymentMethodID string          `json:"payment_method_id,omitempty"`
	ServiceID       string          `json:"service_id"`
	Details         ShippingDetails `json:"details"`
	Sender          Contact         `json:"sender"`
	Recipient       Contact         `json:"recipient"`
	Reference       string          `json:"reference,omitempty"`
	LabelFormat     string          `json:"label_format"`
}

// Contact is the person reachable for a pickup or a delivery.
type Contact struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
}

func serializeJSON[T any](v T) ([]byte, error) {
	return json.Marshal(v)
}
