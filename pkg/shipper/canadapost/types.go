package canadapost

import "encoding/xml"

const (
	rateNamespace     = "http://www.canadapost.ca/ws/ship/rate-v4"
	shipmentNamespace = "http://www.canadapost.ca/ws/shipment-v8"

	rateMediaType     = "application/vnd.cpc.ship.rate-v4+xml"
	shipmentMediaType = "application/vnd.cpc.shipment-v8+xml"
	trackMediaType    = "application/vnd.cpc.track-v2+xml"
)

// ============================================================================
// Rating
// ============================================================================

// MailingScenario is the body of a rate request for one parcel.
type MailingScenario struct {
	XMLName          xml.Name              `xml:"mailing-scenario"`
	Xmlns            string                `xml:"xmlns,attr"`
	CustomerNumber   string                `xml:"customer-number,omitempty"`
	ContractID       string                `xml:"contract-id,omitempty"`
	ExpectedMailing  string                `xml:"expected-mailing-date,omitempty"`
	Options          *OptionsType          `xml:"options,omitempty"`
	ParcelCharacters ParcelCharacteristics `xml:"parcel-characteristics"`
	Services         *ServicesType         `xml:"services,omitempty"`
	OriginPostalCode string                `xml:"origin-postal-code"`
	Destination      Destination           `xml:"destination"`
}

// ServicesType restricts a rate request to some services.
type ServicesType struct {
	ServiceCode []string `xml:"service-code"`
}

// ParcelCharacteristics holds the weight (KG) and dimensions (CM) of a parcel.
type ParcelCharacteristics struct {
	Weight     float64     `xml:"weight"`
	Dimensions *Dimensions `xml:"dimensions,omitempty"`
	Document   bool        `xml:"document,omitempty"`
}

// Dimensions of a parcel in CM.
type Dimensions struct {
	Length float64 `xml:"length"`
	Width  float64 `xml:"width"`
	Height float64 `xml:"height"`
}

// Destination is exactly one of its members.
type Destination struct {
	Domestic      *Domestic      `xml:"domestic,omitempty"`
	UnitedStates  *UnitedStates  `xml:"united-states,omitempty"`
	International *International `xml:"international,omitempty"`
}

// Domestic destination.
type Domestic struct {
	PostalCode string `xml:"postal-code"`
}

// UnitedStates destination.
type UnitedStates struct {
	ZipCode string `xml:"zip-code"`
}

// International destination.
type International struct {
	CountryCode string `xml:"country-code"`
}

// OptionsType lists requested options.
type OptionsType struct {
	Option []OptionType `xml:"option"`
}

// OptionType is one option code with its optional amount.
type OptionType struct {
	Code   string  `xml:"option-code"`
	Amount float64 `xml:"option-amount,omitempty"`
}

type priceQuotes struct {
	XMLName    xml.Name     `xml:"price-quotes"`
	PriceQuote []priceQuote `xml:"price-quote"`
}

type priceQuote struct {
	ServiceCode     string          `xml:"service-code"`
	ServiceName     string          `xml:"service-name"`
	PriceDetails    priceDetails    `xml:"price-details"`
	ServiceStandard serviceStandard `xml:"service-standard"`
}

type priceDetails struct {
	Base        float64       `xml:"base"`
	Taxes       priceTaxes    `xml:"taxes"`
	Due         float64       `xml:"due"`
	Adjustments []adjustment  `xml:"adjustments>adjustment"`
	Options     []priceOption `xml:"options>option"`
}

type priceTaxes struct {
	GST float64 `xml:"gst"`
	PST float64 `xml:"pst"`
	HST float64 `xml:"hst"`
}

type adjustment struct {
	Code string  `xml:"adjustment-code"`
	Name string  `xml:"adjustment-name"`
	Cost float64 `xml:"adjustment-cost"`
}

type priceOption struct {
	Code  string  `xml:"option-code"`
	Name  string  `xml:"option-name"`
	Price float64 `xml:"option-price"`
}

type serviceStandard struct {
	GuaranteedDelivery   bool   `xml:"guaranteed-delivery"`
	ExpectedTransitTime  int    `xml:"expected-transit-time"`
	ExpectedDeliveryDate string `xml:"expected-delivery-date"`
}

// ============================================================================
// Shipping
// ============================================================================

// ShipmentType is the body of a contract shipment creation.
type ShipmentType struct {
	XMLName                xml.Name     `xml:"shipment"`
	Xmlns                  string       `xml:"xmlns,attr"`
	GroupID                string       `xml:"group-id"`
	RequestedShippingPoint string       `xml:"requested-shipping-point"`
	ExpectedMailingDate    string       `xml:"expected-mailing-date,omitempty"`
	DeliverySpec           DeliverySpec `xml:"delivery-spec"`
}

// DeliverySpec describes the parcel, its parties and the printing preferences.
type DeliverySpec struct {
	ServiceCode      string                `xml:"service-code"`
	Sender           Sender                `xml:"sender"`
	Destination      Recipient             `xml:"destination"`
	Options          *OptionsType          `xml:"options,omitempty"`
	ParcelCharacters ParcelCharacteristics `xml:"parcel-characteristics"`
	Notification     *Notification         `xml:"notification,omitempty"`
	PrintPreferences PrintPreferences      `xml:"print-preferences"`
	Preferences      Preferences           `xml:"preferences"`
	References       *References           `xml:"references,omitempty"`
	SettlementInfo   SettlementInfo        `xml:"settlement-info"`
}

// Sender of a shipment.
type Sender struct {
	Name           string         `xml:"name,omitempty"`
	Company        string         `xml:"company"`
	ContactPhone   string         `xml:"contact-phone"`
	AddressDetails AddressDetails `xml:"address-details"`
}

// Recipient of a shipment.
type Recipient struct {
	Name           string         `xml:"name"`
	Company        string         `xml:"company,omitempty"`
	ClientVoice    string         `xml:"client-voice-number,omitempty"`
	AddressDetails AddressDetails `xml:"address-details"`
}

// AddressDetails of a shipment party.
type AddressDetails struct {
	AddressLine1  string `xml:"address-line-1"`
	AddressLine2  string `xml:"address-line-2,omitempty"`
	City          string `xml:"city"`
	ProvState     string `xml:"prov-state,omitempty"`
	CountryCode   string `xml:"country-code,omitempty"`
	PostalZipCode string `xml:"postal-zip-code,omitempty"`
}

// Notification requests email updates.
type Notification struct {
	Email       string `xml:"email"`
	OnShipment  bool   `xml:"on-shipment"`
	OnException bool   `xml:"on-exception"`
	OnDelivery  bool   `xml:"on-delivery"`
}

// PrintPreferences selects the label format.
type PrintPreferences struct {
	OutputFormat string `xml:"output-format"`
	Encoding     string `xml:"encoding"`
}

// Preferences toggles what the label shows.
type Preferences struct {
	ShowPackingInstructions bool `xml:"show-packing-instructions"`
	ShowPostageRate         bool `xml:"show-postage-rate"`
	ShowInsuredValue        bool `xml:"show-insured-value"`
}

// References printed on the label.
type References struct {
	CustomerRef1 string `xml:"customer-ref-1,omitempty"`
	CustomerRef2 string `xml:"customer-ref-2,omitempty"`
}

// SettlementInfo selects the paying contract.
type SettlementInfo struct {
	ContractID              string `xml:"contract-id,omitempty"`
	IntendedMethodOfPayment string `xml:"intended-method-of-payment"`
}

type shipmentInfo struct {
	XMLName        xml.Name `xml:"shipment-info"`
	ShipmentID     string   `xml:"shipment-id"`
	ShipmentStatus string   `xml:"shipment-status"`
	TrackingPIN    string   `xml:"tracking-pin"`
	Links          []link   `xml:"links>link"`
}

type link struct {
	Rel       string `xml:"rel,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

// ============================================================================
// Tracking
// ============================================================================

type trackingDetail struct {
	XMLName              xml.Name     `xml:"tracking-detail"`
	PIN                  string       `xml:"pin"`
	ExpectedDeliveryDate string       `xml:"expected-delivery-date"`
	ChangedExpectedDate  string       `xml:"changed-expected-date"`
	Occurrences          []occurrence `xml:"significant-events>occurrence"`
}

type occurrence struct {
	Identifier  string `xml:"event-identifier"`
	Date        string `xml:"event-date"`
	Time        string `xml:"event-time"`
	Description string `xml:"event-description"`
	Site        string `xml:"event-site"`
	Province    string `xml:"event-province"`
}

// ============================================================================
// Errors
// ============================================================================

type messages struct {
	XMLName xml.Name  `xml:"messages"`
	Message []message `xml:"message"`
}

type message struct {
	Code        string `xml:"code"`
	Description string `xml:"description"`
}
