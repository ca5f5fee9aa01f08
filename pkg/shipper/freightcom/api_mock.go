package freightcom

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
)

// MockAPI is an in-memory Freightcom endpoint answering JSON fixtures.
type MockAPI struct {
	SimulateErrors  bool
	SimulateLatency time.Duration
	// PendingPolls is the number of rate polls answered "pending" before
	// the quotes complete.
	PendingPolls int

	OnRateSubmit func(ctx context.Context, body string) (string, error)
	OnRatePoll   func(ctx context.Context, requestID string) (string, error)
	OnCreate     func(ctx context.Context, body string) (string, error)
	OnDetails    func(ctx context.Context, shipmentID string) (string, error)
	OnLabel      func(ctx context.Context, href string) (string, error)
	OnTracking   func(ctx context.Context, shipmentID string) (string, error)
	OnCancel     func(ctx context.Context, shipmentID string) (string, error)

	mu    sync.Mutex
	calls []transport.Call
	polls int
	seq   int
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
	m.seq++
	seq := m.seq
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.SimulateErrors {
		return `{"code":"MOCK_ERROR","message":"Simulated API error"}`, nil
	}

	var body string
	if call.Body != nil {
		data, err := call.Body.Serialize()
		if err != nil {
			return "", err
		}
		body = string(data)
	}
	id := pipeline.ContextOf(call.Body, contextShipmentID)

	switch call.Operation {
	case jobRateSubmit:
		if m.OnRateSubmit != nil {
			return m.OnRateSubmit(ctx, body)
		}
		return mockJSON(map[string]any{"request_id": fmt.Sprintf("fc-req-%04d", seq)})
	case jobRatePoll:
		requestID := pipeline.ContextOf(call.Body, contextRequestID)
		if m.OnRatePoll != nil {
			return m.OnRatePoll(ctx, requestID)
		}
		m.mu.Lock()
		m.polls++
		pending := m.polls <= m.PendingPolls
		m.mu.Unlock()
		if pending {
			return mockJSON(map[string]any{"request_id": requestID, "status": "pending"})
		}
		return mockQuotes(requestID)
	case jobShipment:
		if m.OnCreate != nil {
			return m.OnCreate(ctx, body)
		}
		return mockJSON(map[string]any{
			"id":                 fmt.Sprintf("fc-ship-%04d", seq),
			"unique_id":          gjson.Get(body, "unique_id").String(),
			"previously_created": false,
		})
	case jobDetails:
		if m.OnDetails != nil {
			return m.OnDetails(ctx, id)
		}
		return mockShipment(id)
	case jobLabel:
		href := pipeline.ContextOf(call.Body, contextHref)
		if m.OnLabel != nil {
			return m.OnLabel(ctx, href)
		}
		return "%PDF-1.4 freightcom " + href, nil
	case "tracking":
		if m.OnTracking != nil {
			return m.OnTracking(ctx, id)
		}
		return mockTracking()
	case jobCancel:
		if m.OnCancel != nil {
			return m.OnCancel(ctx, id)
		}
		return "", nil
	}
	return "", fmt.Errorf("freightcom mock: unknown operation %q", call.Operation)
}

func mockJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}

func mockRate(service, carrier, name string, base, fuel, tax, total float64, days int, guaranteed bool) map[string]any {
	return map[string]any{
		"id":                 "rate-" + service,
		"service_id":         service,
		"carrier_name":       carrier,
		"service_name":       name,
		"base_rate":          base,
		"fuel_surcharge":     fuel,
		"taxes":              []map[string]any{{"code": "HST", "rate": 0.13, "amount": tax}},
		"total_price":        total,
		"currency":           "CAD",
		"transit_days":       days,
		"estimated_delivery": time.Now().AddDate(0, 0, days).Format("2006-01-02"),
		"guaranteed":         guaranteed,
	}
}

func mockQuotes(requestID string) (string, error) {
	return mockJSON(map[string]any{
		"request_id": requestID,
		"status":     "complete",
		"rates": []map[string]any{
			mockRate("fedex.ground", "FedEx", "FedEx Ground", 15.99, 1.92, 2.33, 20.24, 3, false),
			mockRate("fedex.express-saver", "FedEx", "FedEx Express Saver", 28.99, 3.48, 4.22, 36.69, 2, true),
			mockRate("ups.standard", "UPS", "UPS Standard", 14.50, 1.74, 2.11, 18.35, 4, false),
		},
	})
}

func mockShipment(id string) (string, error) {
	return mockJSON(map[string]any{
		"id":               id,
		"status":           "booked",
		"tracking_numbers": []string{"794612345678"},
		"tracking_url":     "https://www.fedex.com/fedextrack/?trknbr=794612345678",
		"rate":             mockRate("fedex.ground", "FedEx", "FedEx Ground", 15.99, 1.92, 2.33, 20.24, 3, false),
		"labels": []map[string]any{
			{"size": "4x6", "format": "zpl", "url": fmt.Sprintf("https://api.freightcom.com/shipment/%s/label.zpl", id)},
			{"size": "4x6", "format": "pdf", "url": fmt.Sprintf("https://api.freightcom.com/shipment/%s/label.pdf", id)},
		},
	})
}

func mockTracking() (string, error) {
	now := time.Now().UTC()
	return mockJSON(map[string]any{
		"tracking_number": "794612345678",
		"status":          "in_transit",
		"events": []map[string]any{
			{
				"timestamp":   now.Add(-48 * time.Hour).Format(time.RFC3339),
				"description": "Shipment picked up",
				"location":    "Toronto, ON",
				"status":      "picked_up",
			},
			{
				"timestamp":   now.Add(-24 * time.Hour).Format(time.RFC3339),
				"description": "In transit to destination",
				"location":    "Mississauga, ON",
				"status":      "in_transit",
			},
		},
	})
}

var _ transport.Doer = (*MockAPI)(nil)
