package canadapost

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

const mockErrorResponse = `<?xml version="1.0" encoding="UTF-8"?>
<messages xmlns="http://www.canadapost.ca/ws/messages">
  <message>
    <code>Server</code>
    <description>Simulated API error</description>
  </message>
</messages>`

// MockAPI is an in-memory Canada Post endpoint. It answers every call with
// XML fixtures unless a hook overrides the operation.
type MockAPI struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnRates    func(ctx context.Context, body string) (string, error)
	OnCreate   func(ctx context.Context, body string) (string, error)
	OnLabel    func(ctx context.Context, href string) (string, error)
	OnTracking func(ctx context.Context, pin string) (string, error)
	OnCancel   func(ctx context.Context, shipmentID string) (string, error)

	mu    sync.Mutex
	calls []transport.Call
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
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.SimulateErrors {
		return mockErrorResponse, nil
	}

	var body string
	if call.Body != nil {
		data, err := call.Body.Serialize()
		if err != nil {
			return "", err
		}
		body = string(data)
	}

	switch call.Operation {
	case "rates":
		if m.OnRates != nil {
			return m.OnRates(ctx, body)
		}
		return mockRates(), nil
	case "create":
		if m.OnCreate != nil {
			return m.OnCreate(ctx, body)
		}
		return mockShipmentInfo(), nil
	case "label":
		if m.OnLabel != nil {
			return m.OnLabel(ctx, call.URL)
		}
		return "%PDF-1.4 mock label", nil
	case "tracking":
		pin := path.Base(strings.TrimSuffix(call.URL, "/detail"))
		if m.OnTracking != nil {
			return m.OnTracking(ctx, pin)
		}
		return mockTracking(pin), nil
	case "cancel":
		id := path.Base(call.URL)
		if m.OnCancel != nil {
			return m.OnCancel(ctx, id)
		}
		return "", nil
	}
	return "", fmt.Errorf("canadapost mock: unknown operation %q", call.Operation)
}

func mockRates() string {
	day := func(n int) string { return time.Now().AddDate(0, 0, n).Format("2006-01-02") }
	return `<?xml version="1.0" encoding="UTF-8"?>
<price-quotes xmlns="http://www.canadapost.ca/ws/ship/rate-v4">
  <price-quote>
    <service-code>DOM.RP</service-code>
    <service-name>Regular Parcel</service-name>
    <price-details>
      <base>9.99</base>
      <taxes><gst>0.00</gst><pst>0.00</pst><hst>1.46</hst></taxes>
      <due>12.65</due>
      <adjustments>
        <adjustment><adjustment-code>FUELSC</adjustment-code><adjustment-name>Fuel surcharge</adjustment-name><adjustment-cost>1.20</adjustment-cost></adjustment>
      </adjustments>
    </price-details>
    <service-standard>
      <guaranteed-delivery>false</guaranteed-delivery>
      <expected-transit-time>5</expected-transit-time>
      <expected-delivery-date>` + day(5) + `</expected-delivery-date>
    </service-standard>
  </price-quote>
  <price-quote>
    <service-code>DOM.XP</service-code>
    <service-name>Xpresspost</service-name>
    <price-details>
      <base>19.99</base>
      <taxes><gst>0.00</gst><pst>0.00</pst><hst>2.91</hst></taxes>
      <due>25.30</due>
      <adjustments>
        <adjustment><adjustment-code>FUELSC</adjustment-code><adjustment-name>Fuel surcharge</adjustment-name><adjustment-cost>2.40</adjustment-cost></adjustment>
      </adjustments>
    </price-details>
    <service-standard>
      <guaranteed-delivery>true</guaranteed-delivery>
      <expected-transit-time>2</expected-transit-time>
      <expected-delivery-date>` + day(2) + `</expected-delivery-date>
    </service-standard>
  </price-quote>
  <price-quote>
    <service-code>DOM.PC</service-code>
    <service-name>Priority</service-name>
    <price-details>
      <base>34.99</base>
      <taxes><gst>0.00</gst><pst>0.00</pst><hst>5.10</hst></taxes>
      <due>44.29</due>
      <adjustments>
        <adjustment><adjustment-code>FUELSC</adjustment-code><adjustment-name>Fuel surcharge</adjustment-name><adjustment-cost>4.20</adjustment-cost></adjustment>
      </adjustments>
    </price-details>
    <service-standard>
      <guaranteed-delivery>true</guaranteed-delivery>
      <expected-transit-time>1</expected-transit-time>
      <expected-delivery-date>` + day(1) + `</expected-delivery-date>
    </service-standard>
  </price-quote>
</price-quotes>`
}

func mockShipmentInfo() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:16]
	pin := fmt.Sprintf("7023%012d", time.Now().UnixNano()%1e12)
	return `<?xml version="1.0" encoding="UTF-8"?>
<shipment-info xmlns="http://www.canadapost.ca/ws/shipment-v8">
  <shipment-id>` + id + `</shipment-id>
  <shipment-status>created</shipment-status>
  <tracking-pin>` + pin + `</tracking-pin>
  <links>
    <link rel="self" href="https://ct.soa-gw.canadapost.ca/rs/0001234567/0001234567/shipment/` + id + `" media-type="application/vnd.cpc.shipment-v8+xml"/>
    <link rel="label" href="https://ct.soa-gw.canadapost.ca/rs/artifact/76108cb5192002d5/` + id + `/0" media-type="application/pdf" index="0"/>
  </links>
</shipment-info>`
}

func mockTracking(pin string) string {
	now := time.Now()
	event := func(t time.Time, id, desc, site, prov string) string {
		return `<occurrence>
      <event-identifier>` + id + `</event-identifier>
      <event-date>` + t.Format("2006-01-02") + `</event-date>
      <event-time>` + t.Format("15:04:05") + `</event-time>
      <event-description>` + desc + `</event-description>
      <event-site>` + site + `</event-site>
      <event-province>` + prov + `</event-province>
    </occurrence>`
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<tracking-detail xmlns="http://www.canadapost.ca/ws/track-v2">
  <pin>` + pin + `</pin>
  <expected-delivery-date>` + now.AddDate(0, 0, 2).Format("2006-01-02") + `</expected-delivery-date>
  <significant-events>
    ` + event(now.Add(-2*time.Hour), "0170", "Item processed", "MISSISSAUGA", "ON") + `
    ` + event(now.Add(-26*time.Hour), "3000", "Item accepted at the Post Office", "TORONTO", "ON") + `
  </significant-events>
</tracking-detail>`
}

var _ transport.Doer = (*MockAPI)(nil)
