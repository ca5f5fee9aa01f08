package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/internal/server"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/mock"
	"github.com/tournevent/carrierbridge/pkg/shipper/purolator"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

func newTestServer(t *testing.T, shippers ...shipper.Shipper) http.Handler {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	reg := prometheus.NewRegistry()
	registry := shipper.NewRegistry(shipper.WithLogger(logger))
	for _, s := range shippers {
		registry.Register(s)
	}
	catalog := units.NewCatalog(purolator.Vocabulary)

	srv := server.New(server.Config{
		Port:     8080,
		Metrics:  telemetry.NewMetrics(reg),
		Gatherer: reg,
	}, registry, catalog, logger)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

const rateBody = `{
	"shipper": {"postal_code": "M5V1A1", "country_code": "CA"},
	"recipient": {"postal_code": "V6B2W2", "country_code": "CA"},
	"parcels": [{"weight": 2}]
}`

func TestServer_Health(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	h := newTestServer(t, mock.New("acme"))
	do(t, h, http.MethodGet, "/health", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "carrierbridge_http_requests_total")
}

func TestServer_Carriers(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New("purolator"), mock.New("acme")), http.MethodGet, "/v1/carriers", "")

	require.Equal(t, http.StatusOK, rec.Code)
	carriers := decode(t, rec)["carriers"].([]any)
	require.Len(t, carriers, 2)
	first := carriers[0].(map[string]any)
	assert.Equal(t, "purolator", first["name"])
	assert.Contains(t, first["services"], purolator.ServiceGround)
	assert.Nil(t, carriers[1].(map[string]any)["services"])
}

func TestServer_Rates(t *testing.T) {
	failing := mock.New("broken", mock.WithError(shipper.NewCarrierResponseError("broken", "E42", "down")))
	rec := do(t, newTestServer(t, mock.New("acme"), failing), http.MethodPost, "/v1/rates", rateBody)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Len(t, out["rates"], 2)
	msgs := out["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "E42", msgs[0].(map[string]any)["code"])
}

func TestServer_Rates_SelectedCarriers(t *testing.T) {
	acme := mock.New("acme")
	other := mock.New("other")
	body := strings.Replace(rateBody, `"parcels"`, `"carriers": ["other"], "parcels"`, 1)

	rec := do(t, newTestServer(t, acme, other), http.MethodPost, "/v1/rates", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, acme.Calls())
	assert.Equal(t, 1, other.Calls())
}

func TestServer_Rates_InvalidJSON(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/v1/rates", "{")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "BAD_REQUEST", errBody["code"])
}

func TestServer_CreateShipment(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New("acme")), http.MethodPost, "/v1/shipments",
		`{"carrier": "acme", "service": "acme_standard", "parcels": [{"weight": 1}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	shipment := decode(t, rec)["shipment"].(map[string]any)
	assert.Equal(t, "acme", shipment["carrier_name"])
	assert.Equal(t, "PDF", shipment["label_type"])
}

func TestServer_CreateShipment_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", shipper.NewValidationError("acme", shipper.FieldIssue{Index: 0, Field: "weight", Reason: "is required"}), http.StatusUnprocessableEntity},
		{"carrier", shipper.NewCarrierResponseError("acme", "E1", "refused"), http.StatusBadGateway},
		{"timeout", &shipper.TransportError{Carrier: "acme", Timeout: true}, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, mock.New("acme", mock.WithError(tt.err)))
			rec := do(t, h, http.MethodPost, "/v1/shipments", `{"carrier": "acme"}`)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "acme", decode(t, rec)["error"].(map[string]any)["carrier_name"])
		})
	}
}

func TestServer_CreateShipment_UnknownCarrier(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New("acme")), http.MethodPost, "/v1/shipments", `{"carrier": "nope"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CARRIER_NOT_FOUND", decode(t, rec)["error"].(map[string]any)["code"])
}

func TestServer_CancelShipment(t *testing.T) {
	rec := do(t, newTestServer(t, mock.New("acme")), http.MethodPost, "/v1/shipments/cancel",
		`{"carrier": "acme", "shipment_identifier": "S1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	confirmation := decode(t, rec)["confirmation"].(map[string]any)
	assert.Equal(t, true, confirmation["success"])
}

func TestServer_Tracking(t *testing.T) {
	failing := mock.New("broken", mock.WithError(&shipper.TransportError{Carrier: "broken"}))
	rec := do(t, newTestServer(t, mock.New("acme"), failing), http.MethodPost, "/v1/tracking",
		`{"tracking_numbers": ["T1", "T2"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Len(t, out["tracking"], 2)
	msgs := out["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "TRANSPORT_ERROR", msgs[0].(map[string]any)["code"])
}
