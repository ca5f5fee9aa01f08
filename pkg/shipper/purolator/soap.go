package purolator

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
	"text/template"
)

// operation is one Purolator web service method.
type operation struct {
	Path      string
	Action    string
	Namespace string
	Version   string
}

const (
	jobRates    = "rates"
	jobCreate   = "create"
	jobDocument = "document"
	jobTracking = "tracking"
	jobVoid     = "void"
)

var operations = map[string]operation{
	jobRates: {
		Path:      "/EWS/V2/Estimating/EstimatingService.asmx",
		Action:    "http://purolator.com/pws/service/v2/GetFullEstimate",
		Namespace: "http://purolator.com/pws/datatypes/v2",
		Version:   "2.2",
	},
	jobCreate: {
		Path:      "/EWS/V2/Shipping/ShippingService.asmx",
		Action:    "http://purolator.com/pws/service/v2/CreateShipment",
		Namespace: "http://purolator.com/pws/datatypes/v2",
		Version:   "2.1",
	},
	jobDocument: {
		Path:      "/EWS/V1/ShippingDocuments/ShippingDocumentsService.asmx",
		Action:    "http://purolator.com/pws/service/v1/GetDocuments",
		Namespace: "http://purolator.com/pws/datatypes/v1",
		Version:   "1.3",
	},
	jobVoid: {
		Path:      "/EWS/V2/Shipping/ShippingService.asmx",
		Action:    "http://purolator.com/pws/service/v2/VoidShipment",
		Namespace: "http://purolator.com/pws/datatypes/v2",
		Version:   "2.1",
	},
	jobTracking: {
		Path:      "/PWS/V1/Tracking/TrackingService.asmx",
		Action:    "http://purolator.com/pws/service/v1/TrackPackagesByPin",
		Namespace: "http://purolator.com/pws/datatypes/v1",
		Version:   "1.2",
	},
}

// Envelope is a SOAP request for one operation. Template names the body
// template rendered inside it.
type Envelope struct {
	Op        operation
	Template  string
	Language  string
	GroupID   string
	Reference string
	UserToken string
	Body      any
}

const soapTemplates = `
{{- define "envelope" -}}
<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns="{{.Op.Namespace}}">
  <soap:Header>
    <ns:RequestContext>
      <ns:Version>{{.Op.Version}}</ns:Version>
      <ns:Language>{{x .Language}}</ns:Language>
      <ns:GroupID>{{x .GroupID}}</ns:GroupID>
      <ns:RequestReference>{{x .Reference}}</ns:RequestReference>
      {{- if .UserToken}}
      <ns:UserToken>{{x .UserToken}}</ns:UserToken>
      {{- end}}
    </ns:RequestContext>
  </soap:Header>
  <soap:Body>
    {{body .Template .Body}}
  </soap:Body>
</soap:Envelope>
{{- end}}

{{- define "address" -}}
<ns:Address>
          <ns:Name>{{x .Name}}</ns:Name>
          <ns:Company>{{x .Company}}</ns:Company>
          <ns:StreetNumber>{{x .StreetNumber}}</ns:StreetNumber>
          <ns:StreetName>{{x .StreetName}}</ns:StreetName>
          {{- if .Street2}}
          <ns:StreetAddress2>{{x .Street2}}</ns:StreetAddress2>
          {{- end}}
          <ns:City>{{x .City}}</ns:City>
          <ns:Province>{{x .Province}}</ns:Province>
          <ns:Country>{{x .Country}}</ns:Country>
          <ns:PostalCode>{{x .PostalCode}}</ns:PostalCode>
          <ns:PhoneNumber>
            <ns:CountryCode>{{.Phone.CountryCode}}</ns:CountryCode>
            <ns:AreaCode>{{.Phone.AreaCode}}</ns:AreaCode>
            <ns:Phone>{{.Phone.Number}}</ns:Phone>
          </ns:PhoneNumber>
        </ns:Address>
{{- end}}

{{- define "package" -}}
<ns:PackageInformation>
        {{- if .ServiceID}}
        <ns:ServiceID>{{x .ServiceID}}</ns:ServiceID>
        {{- end}}
        {{- if .Description}}
        <ns:Description>{{x .Description}}</ns:Description>
        {{- end}}
        <ns:TotalWeight>
          <ns:Value>{{.TotalWeight}}</ns:Value>
          <ns:WeightUnit>lb</ns:WeightUnit>
        </ns:TotalWeight>
        <ns:TotalPieces>{{len .Pieces}}</ns:TotalPieces>
        <ns:PiecesInformation>
          {{- range .Pieces}}
          <ns:Piece>
            <ns:Weight><ns:Value>{{num .Weight}}</ns:Value><ns:WeightUnit>lb</ns:WeightUnit></ns:Weight>
            {{- if .Length}}
            <ns:Length><ns:Value>{{num .Length}}</ns:Value><ns:DimensionUnit>in</ns:DimensionUnit></ns:Length>
            <ns:Width><ns:Value>{{num .Width}}</ns:Value><ns:DimensionUnit>in</ns:DimensionUnit></ns:Width>
            <ns:Height><ns:Value>{{num .Height}}</ns:Value><ns:DimensionUnit>in</ns:DimensionUnit></ns:Height>
            {{- end}}
          </ns:Piece>
          {{- end}}
        </ns:PiecesInformation>
        {{- if .Options}}
        <ns:OptionsInformation>
          <ns:Options>
            {{- range .Options}}
            <ns:OptionIDValuePair><ns:ID>{{x .ID}}</ns:ID><ns:Value>{{x .Value}}</ns:Value></ns:OptionIDValuePair>
            {{- end}}
          </ns:Options>
        </ns:OptionsInformation>
        {{- end}}
      </ns:PackageInformation>
{{- end}}

{{- define "payment" -}}
<ns:PaymentInformation>
        <ns:PaymentType>{{.Type}}</ns:PaymentType>
        <ns:RegisteredAccountNumber>{{x .Account}}</ns:RegisteredAccountNumber>
        <ns:BillingAccountNumber>{{x .Account}}</ns:BillingAccountNumber>
      </ns:PaymentInformation>
{{- end}}

{{- define "GetFullEstimate" -}}
<ns:GetFullEstimateRequest>
      <ns:Shipment>
        <ns:SenderInformation>
        {{template "address" .Sender}}
        </ns:SenderInformation>
        <ns:ReceiverInformation>
        {{template "address" .Receiver}}
        </ns:ReceiverInformation>
        {{- if .ShipmentDate}}
        <ns:ShipmentDate>{{x .ShipmentDate}}</ns:ShipmentDate>
        {{- end}}
      {{template "package" .Package}}
      {{template "payment" .Payment}}
        <ns:PickupInformation><ns:PickupType>DropOff</ns:PickupType></ns:PickupInformation>
      </ns:Shipment>
      <ns:ShowAlternativeServicesIndicator>true</ns:ShowAlternativeServicesIndicator>
    </ns:GetFullEstimateRequest>
{{- end}}

{{- define "CreateShipment" -}}
<ns:CreateShipmentRequest>
      <ns:Shipment>
        <ns:SenderInformation>
        {{template "address" .Sender}}
        </ns:SenderInformation>
        <ns:ReceiverInformation>
        {{template "address" .Receiver}}
        </ns:ReceiverInformation>
        {{- if .ShipmentDate}}
        <ns:ShipmentDate>{{x .ShipmentDate}}</ns:ShipmentDate>
        {{- end}}
      {{template "package" .Package}}
        {{- with .International}}
        <ns:InternationalInformation>
          <ns:DocumentsOnlyIndicator>{{.DocumentsOnly}}</ns:DocumentsOnlyIndicator>
          <ns:DutyInformation>
            <ns:BillDutiesToParty>{{.DutyParty}}</ns:BillDutiesToParty>
            <ns:BusinessRelationship>NotRelated</ns:BusinessRelationship>
            <ns:Currency>{{x .Currency}}</ns:Currency>
          </ns:DutyInformation>
          <ns:ImportExportType>Permanent</ns:ImportExportType>
          <ns:CustomsInvoiceDocumentIndicator>true</ns:CustomsInvoiceDocumentIndicator>
        </ns:InternationalInformation>
        {{- end}}
      {{template "payment" .Payment}}
        <ns:PickupInformation><ns:PickupType>DropOff</ns:PickupType></ns:PickupInformation>
        {{- if .NotificationEmail}}
        <ns:NotificationInformation>
          <ns:ConfirmationEmailAddress>{{x .NotificationEmail}}</ns:ConfirmationEmailAddress>
        </ns:NotificationInformation>
        {{- end}}
        {{- if .Reference}}
        <ns:TrackingReferenceInformation>
          <ns:Reference1>{{x .Reference}}</ns:Reference1>
        </ns:TrackingReferenceInformation>
        {{- end}}
      </ns:Shipment>
      <ns:PrinterType>{{.PrinterType}}</ns:PrinterType>
    </ns:CreateShipmentRequest>
{{- end}}

{{- define "GetDocuments" -}}
<ns:GetDocumentsRequest>
      <ns:OutputType>PDF</ns:OutputType>
      <ns:Synchronous>true</ns:Synchronous>
      <ns:DocumentCriterium>
        <ns:DocumentCriteria>
          <ns:PIN><ns:Value>{{x .PIN}}</ns:Value></ns:PIN>
          <ns:DocumentTypes>
            {{- range .DocumentTypes}}
            <ns:DocumentType>{{.}}</ns:DocumentType>
            {{- end}}
          </ns:DocumentTypes>
        </ns:DocumentCriteria>
      </ns:DocumentCriterium>
    </ns:GetDocumentsRequest>
{{- end}}

{{- define "VoidShipment" -}}
<ns:VoidShipmentRequest>
      <ns:PIN><ns:Value>{{x .PIN}}</ns:Value></ns:PIN>
    </ns:VoidShipmentRequest>
{{- end}}

{{- define "TrackPackagesByPin" -}}
<ns:TrackPackagesByPinRequest>
      <ns:PINs>
        {{- range .PINs}}
        <ns:PIN><ns:Value>{{x .}}</ns:Value></ns:PIN>
        {{- end}}
      </ns:PINs>
    </ns:TrackPackagesByPinRequest>
{{- end}}
`

var templates *template.Template

func init() {
	templates = template.Must(template.New("soap").Funcs(template.FuncMap{
		"x":    escape,
		"num":  formatNumber,
		"body": renderBody,
	}).Parse(soapTemplates))
}

func renderBody(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func serializeEnvelope(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "envelope", env); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ============================================================================
// Request data
// ============================================================================

type party struct {
	Name         string
	Company      string
	StreetNumber string
	StreetName   string
	Street2      string
	City         string
	Province     string
	Country      string
	PostalCode   string
	Phone        phone
}

type phone struct {
	CountryCode string
	AreaCode    string
	Number      string
}

type packageInfo struct {
	ServiceID   string
	Description string
	TotalWeight int
	Pieces      []piece
	Options     []optionPair
}

type piece struct {
	Weight float64
	Length float64
	Width  float64
	Height float64
}

type optionPair struct {
	ID    string
	Value string
}

type payment struct {
	Type    string
	Account string
}

type internationalInfo struct {
	DocumentsOnly bool
	DutyParty     string
	Currency      string
}

type estimateData struct {
	Sender       party
	Receiver     party
	ShipmentDate string
	Package      packageInfo
	Payment      payment
}

type shipmentData struct {
	Sender            party
	Receiver          party
	ShipmentDate      string
	Package           packageInfo
	International     *internationalInfo
	Payment           payment
	NotificationEmail string
	Reference         string
	PrinterType       string
}

type documentsData struct {
	PIN           string
	DocumentTypes []string
}

type pinData struct {
	PIN string
}

type trackingData struct {
	PINs []string
}

// ============================================================================
// Responses
// ============================================================================

type soapEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    soapBody `xml:"Body"`
}

type soapBody struct {
	Fault     *soapFault                  `xml:"Fault"`
	Estimate  *getFullEstimateResponse    `xml:"GetFullEstimateResponse"`
	Create    *createShipmentResponse     `xml:"CreateShipmentResponse"`
	Documents *getDocumentsResponse       `xml:"GetDocumentsResponse"`
	Void      *voidShipmentResponse       `xml:"VoidShipmentResponse"`
	Tracking  *trackPackagesByPinResponse `xml:"TrackPackagesByPinResponse"`
}

// information returns the ResponseInformation of whichever response the
// body holds.
func (b soapBody) information() *responseInfo {
	switch {
	case b.Estimate != nil:
		return &b.Estimate.ResponseInformation
	case b.Create != nil:
		return &b.Create.ResponseInformation
	case b.Documents != nil:
		return &b.Documents.ResponseInformation
	case b.Void != nil:
		return &b.Void.ResponseInformation
	case b.Tracking != nil:
		return &b.Tracking.ResponseInformation
	}
	return nil
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type responseInfo struct {
	Errors   []responseError   `xml:"Errors>Error"`
	Messages []responseMessage `xml:"InformationalMessages>InformationalMessage"`
}

type responseError struct {
	Code           string `xml:"Code"`
	Description    string `xml:"Description"`
	AdditionalInfo string `xml:"AdditionalInformation"`
}

type responseMessage struct {
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

type getFullEstimateResponse struct {
	ResponseInformation responseInfo       `xml:"ResponseInformation"`
	ShipmentEstimates   []shipmentEstimate `xml:"ShipmentEstimates>ShipmentEstimate"`
}

type shipmentEstimate struct {
	ServiceID            string        `xml:"ServiceID"`
	ShipmentDate         string        `xml:"ShipmentDate"`
	ExpectedDeliveryDate string        `xml:"ExpectedDeliveryDate"`
	EstimatedTransitDays int           `xml:"EstimatedTransitDays"`
	BasePrice            string        `xml:"BasePrice"`
	Surcharges           []soapCharge  `xml:"Surcharges>Surcharge"`
	Taxes                []soapCharge  `xml:"Taxes>Tax"`
	OptionPrices         []optionPrice `xml:"OptionPrices>OptionPrice"`
	TotalPrice           string        `xml:"TotalPrice"`
}

type soapCharge struct {
	Amount      string `xml:"Amount"`
	Type        string `xml:"Type"`
	Description string `xml:"Description"`
}

type optionPrice struct {
	ID          string `xml:"ID"`
	Description string `xml:"Description"`
	Amount      string `xml:"Amount"`
}

type createShipmentResponse struct {
	ResponseInformation  responseInfo `xml:"ResponseInformation"`
	ShipmentPIN          soapPIN      `xml:"ShipmentPIN"`
	PiecePINs            []soapPIN    `xml:"PiecePINs>PIN"`
	ExpectedDeliveryDate string       `xml:"ExpectedDeliveryDate"`
}

type soapPIN struct {
	Value string `xml:"Value"`
}

type getDocumentsResponse struct {
	ResponseInformation responseInfo       `xml:"ResponseInformation"`
	Documents           []shippingDocument `xml:"Documents>Document"`
}

type shippingDocument struct {
	PIN             soapPIN          `xml:"PIN"`
	DocumentDetails []documentDetail `xml:"DocumentDetails>DocumentDetail"`
}

type documentDetail struct {
	DocumentType   string `xml:"DocumentType"`
	DocumentStatus string `xml:"DocumentStatus"`
	URL            string `xml:"URL"`
	Data           string `xml:"Data"`
}

type voidShipmentResponse struct {
	ResponseInformation responseInfo `xml:"ResponseInformation"`
	ShipmentVoided      bool         `xml:"ShipmentVoided"`
}

type trackPackagesByPinResponse struct {
	ResponseInformation responseInfo   `xml:"ResponseInformation"`
	TrackingInformation []trackingInfo `xml:"TrackingInformationList>TrackingInformation"`
}

type trackingInfo struct {
	PIN   soapPIN    `xml:"PIN"`
	Scans []soapScan `xml:"Scans>Scan"`
}

type soapScan struct {
	ScanType    string    `xml:"ScanType"`
	ScanDate    string    `xml:"ScanDate"`
	ScanTime    string    `xml:"ScanTime"`
	Description string    `xml:"Description"`
	Depot       soapDepot `xml:"Depot"`
}

type soapDepot struct {
	Name string `xml:"Name"`
}

func parseEnvelope(body string) (*soapEnvelope, error) {
	var env soapEnvelope
	if err := xml.Unmarshal([]byte(body), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func parseAmount(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
