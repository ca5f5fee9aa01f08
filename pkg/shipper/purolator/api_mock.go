package purolator

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

const mockFault = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <soap:Fault>
      <faultcode>soap:Server</faultcode>
      <faultstring>Simulated API error</faultstring>
    </soap:Fault>
  </soap:Body>
</soap:Envelope>`

// MockAPI is an in-memory Purolator endpoint answering SOAP fixtures. Hooks
// receive the rendered request envelope.
type MockAPI struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnRates     func(ctx context.Context, body string) (string, error)
	OnCreate    func(ctx context.Context, body string) (string, error)
	OnDocuments func(ctx context.Context, body string) (string, error)
	OnTracking  func(ctx context.Context, body string) (string, error)
	OnVoid      func(ctx context.Context, body string) (string, error)

	mu    sync.Mutex
	calls []transport.Call
	pins  int
}

// NewMockAPI creates a mock with default fixtures.
func NewMockAPI() *MockAPI {
	return &MockAPI{}
}

// Calls returns the calls received so far.
func (m *MockAPI) Calls() []transport.Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.Call(nil), m.calls...)
}

// Execute implements transport.Doer.
func (m *MockAPI) Execute(ctx context.Context, call transport.Call) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.pins++
	seq := m.pins
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.SimulateErrors {
		return mockFault, nil
	}

	var body string
	if call.Body != nil {
		data, err := call.Body.Serialize()
		if err != nil {
			return "", err
		}
		body = string(data)
	}

	hooks := map[string]func(context.Context, string) (string, error){
		jobRates:    m.OnRates,
		jobCreate:   m.OnCreate,
		jobDocument: m.OnDocuments,
		jobTracking: m.OnTracking,
		jobVoid:     m.OnVoid,
	}
	hook, ok := hooks[call.Operation]
	if !ok {
		return "", fmt.Errorf("purolator mock: unknown operation %q", call.Operation)
	}
	if hook != nil {
		return hook(ctx, body)
	}

	switch call.Operation {
	case jobRates:
		return mockEstimate(), nil
	case jobCreate:
		return mockCreated(fmt.Sprintf("3292%08d", seq)), nil
	case jobDocument:
		return mockDocuments(pinValues(body)), nil
	case jobTracking:
		return mockTracking(pinValues(body)), nil
	default:
		return soapResponse(`<VoidShipmentResponse xmlns="http://purolator.com/pws/datatypes/v2">
      <ResponseInformation><Errors/><InformationalMessages/></ResponseInformation>
      <ShipmentVoided>true</ShipmentVoided>
    </VoidShipmentResponse>`), nil
	}
}

var pinValue = regexp.MustCompile(`<ns:PIN><ns:Value>([^<]+)</ns:Value></ns:PIN>`)

func pinValues(body string) []string {
	var pins []string
	for _, m := range pinValue.FindAllStringSubmatch(body, -1) {
		pins = append(pins, m[1])
	}
	return pins
}

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    ` + inner + `
  </s:Body>
</s:Envelope>`
}

func mockEstimate() string {
	estimate := func(service, base, fuel, tax, total string, days int) string {
		return `<ShipmentEstimate>
          <ServiceID>` + service + `</ServiceID>
          <ShipmentDate>` + time.Now().Format("2006-01-02") + `</ShipmentDate>
          <ExpectedDeliveryDate>` + time.Now().AddDate(0, 0, days).Format("2006-01-02") + `</ExpectedDeliveryDate>
          <EstimatedTransitDays>` + fmt.Sprint(days) + `</EstimatedTransitDays>
          <BasePrice>` + base + `</BasePrice>
          <Surcharges><Surcharge><Amount>` + fuel + `</Amount><Type>Fuel</Type><Description>Fuel</Description></Surcharge></Surcharges>
          <Taxes><Tax><Amount>` + tax + `</Amount><Type>HST</Type><Description>HST</Description></Tax></Taxes>
          <TotalPrice>` + total + `</TotalPrice>
        </ShipmentEstimate>`
	}
	return soapResponse(`<GetFullEstimateResponse xmlns="http://purolator.com/pws/datatypes/v2">
      <ResponseInformation><Errors/><InformationalMessages/></ResponseInformation>
      <ShipmentEstimates>
        ` + estimate("PurolatorGround", "16.75", "2.01", "2.44", "21.20", 5) + `
        ` + estimate("PurolatorExpress", "28.50", "3.42", "4.15", "36.07", 2) + `
        ` + estimate("PurolatorExpress9AM", "45.00", "5.40", "6.55", "56.95", 1) + `
      </ShipmentEstimates>
    </GetFullEstimateResponse>`)
}

func mockCreated(pin string) string {
	return soapResponse(`<CreateShipmentResponse xmlns="http://purolator.com/pws/datatypes/v2">
      <ResponseInformation><Errors/><InformationalMessages/></ResponseInformation>
      <ShipmentPIN><Value>` + pin + `</Value></ShipmentPIN>
      <PiecePINs><PIN><Value>` + pin + `</Value></PIN></PiecePINs>
    </CreateShipmentResponse>`)
}

func mockDocuments(pins []string) string {
	var docs strings.Builder
	for _, pin := range pins {
		data := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 purolator " + pin))
		docs.WriteString(`<Document><PIN><Value>` + pin + `</Value></PIN><DocumentDetails>
          <DocumentDetail><DocumentType>DomesticBillOfLading</DocumentType><DocumentStatus>Completed</DocumentStatus><Data>` + data + `</Data></DocumentDetail>
        </DocumentDetails></Document>`)
	}
	return soapResponse(`<GetDocumentsResponse xmlns="http://purolator.com/pws/datatypes/v1">
      <ResponseInformation><Errors/><InformationalMessages/></ResponseInformation>
      <Documents>` + docs.String() + `</Documents>
    </GetDocumentsResponse>`)
}

func mockTracking(pins []string) string {
	now := time.Now()
	var infos strings.Builder
	for _, pin := range pins {
		infos.WriteString(`<TrackingInformation><PIN><Value>` + pin + `</Value></PIN><Scans>
          <Scan><ScanType>ProofOfPickUp</ScanType><ScanDate>` + now.AddDate(0, 0, -1).Format("2006-01-02") + `</ScanDate><ScanTime>091500</ScanTime><Description>Picked up by Purolator</Description><Depot><Name>TORONTO</Name></Depot></Scan>
          <Scan><ScanType>InTransit</ScanType><ScanDate>` + now.Format("2006-01-02") + `</ScanDate><ScanTime>063000</ScanTime><Description>Arrived at sort facility</Description><Depot><Name>MONTREAL</Name></Depot></Scan>
        </Scans></TrackingInformation>`)
	}
	return soapResponse(`<TrackPackagesByPinResponse xmlns="http://purolator.com/pws/datatypes/v1">
      <ResponseInformation><Errors/><InformationalMessages/></ResponseInformation>
      <TrackingInformationList>` + infos.String() + `</TrackingInformationList>
    </TrackPackagesByPinResponse>`)
}

var _ transport.Doer = (*MockAPI)(nil)
