package canadapost_test

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/canadapost"
)

func newTestClient(api *canadapost.MockAPI) *canadapost.Client {
	return canadapost.NewWithDoer(
		canadapost.Config{CustomerNumber: "0001234567", ContractID: "42708517"},
		api,
		otelzap.New(zap.NewNop()),
	)
}

func sender() shipper.Address {
	return shipper.Address{
		PersonName:   "Sender",
		CompanyName:  "Tournevent",
		Line1:        "123 Main St",
		City:         "Toronto",
		ProvinceCode: "ON",
		PostalCode:   "m5v 1a1",
		CountryCode:  "CA",
		Phone:        "416-555-1234",
	}
}

func recipient() shipper.Address {
	return shipper.Address{
		PersonName:   "Receiver",
		Line1:        "456 Oak Ave",
		City:         "Vancouver",
		ProvinceCode: "BC",
		PostalCode:   "V6B 2W2",
		CountryCode:  "CA",
		Email:        "receiver@example.com",
	}
}

func rateRequest(parcels ...shipper.Parcel) *shipper.RateRequest {
	if len(parcels) == 0 {
		parcels = []shipper.Parcel{{Length: 10, Width: 10, Height: 10, Weight: 5}}
	}
	return &shipper.RateRequest{Shipper: sender(), Recipient: recipient(), Parcels: parcels}
}

func shipmentRequest() *shipper.ShipmentRequest {
	return &shipper.ShipmentRequest{
		Service:   canadapost.ServiceExpeditedParcel,
		Shipper:   sender(),
		Recipient: recipient(),
		Parcels:   []shipper.Parcel{{Length: 20, Width: 15, Height: 10, Weight: 1.2}},
	}
}

func TestClient_FetchRates_Success(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	rates, msgs, err := client.FetchRates(context.Background(), rateRequest())

	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.Len(t, rates, 3)
	assert.Equal(t, canadapost.ServiceRegularParcel, rates[0].Service)
	assert.Equal(t, canadapost.ServiceXpresspost, rates[1].Service)
	assert.Equal(t, canadapost.ServicePriority, rates[2].Service)
	assert.Equal(t, "canadapost", rates[0].CarrierName)
	assert.Equal(t, "CAD", rates[0].Currency)
	assert.InDelta(t, 12.65, rates[0].TotalCharge, 0.001)
	assert.InDelta(t, 9.99, rates[0].BaseCharge, 0.001)
	assert.Equal(t, 5, rates[0].TransitDays)
	assert.NotNil(t, rates[0].EstimatedDelivery)

	var names []string
	for _, c := range rates[0].Charges {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Base charge", "Fuel surcharge", "HST"}, names)
}

func TestClient_FetchRates_SumsPackages(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	rates, _, err := client.FetchRates(context.Background(), rateRequest(
		shipper.Parcel{Length: 10, Width: 10, Height: 10, Weight: 5},
		shipper.Parcel{Length: 20, Width: 20, Height: 20, Weight: 2},
	))

	require.NoError(t, err)
	require.Len(t, rates, 3)
	assert.InDelta(t, 25.30, rates[0].TotalCharge, 0.001)
	assert.Len(t, api.Calls(), 2)
}

func TestClient_FetchRates_KeepsServicesOfferedForEveryPackage(t *testing.T) {
	api := canadapost.NewMockAPI()
	calls := 0
	api.OnRates = func(ctx context.Context, body string) (string, error) {
		calls++
		if calls == 1 {
			return `<price-quotes>
  <price-quote><service-code>DOM.RP</service-code><price-details><base>5</base><due>5</due></price-details></price-quote>
  <price-quote><service-code>DOM.XP</service-code><price-details><base>9</base><due>9</due></price-details></price-quote>
</price-quotes>`, nil
		}
		return `<price-quotes>
  <price-quote><service-code>DOM.XP</service-code><price-details><base>11</base><due>11</due></price-details></price-quote>
</price-quotes>`, nil
	}
	client := newTestClient(api)

	rates, _, err := client.FetchRates(context.Background(), rateRequest(
		shipper.Parcel{Weight: 1},
		shipper.Parcel{Weight: 2},
	))

	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, canadapost.ServiceXpresspost, rates[0].Service)
	assert.InDelta(t, 20, rates[0].TotalCharge, 0.001)
}

func TestClient_FetchRates_RequestBody(t *testing.T) {
	api := canadapost.NewMockAPI()
	var body string
	api.OnRates = func(ctx context.Context, b string) (string, error) {
		body = b
		return `<price-quotes/>`, nil
	}
	client := newTestClient(api)

	req := rateRequest(shipper.Parcel{Length: 10, Width: 8, Height: 4, DimensionUnit: "IN", Weight: 2, WeightUnit: "LB"})
	req.Recipient = shipper.Address{PostalCode: "10001", CountryCode: "US"}
	req.Services = []string{canadapost.ServiceExpeditedParcelUSA, "unknown_service"}
	req.Options = map[string]any{"signature_confirmation": true, "insurance": 100.0}

	_, _, err := client.FetchRates(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, body, `<mailing-scenario xmlns="http://www.canadapost.ca/ws/ship/rate-v4">`)
	assert.Contains(t, body, "<customer-number>0001234567</customer-number>")
	assert.Contains(t, body, "<origin-postal-code>M5V1A1</origin-postal-code>")
	assert.Contains(t, body, "<united-states><zip-code>10001</zip-code></united-states>")
	assert.Contains(t, body, "<services><service-code>USA.EP</service-code></services>")
	assert.Contains(t, body, "<weight>0.907</weight>")
	assert.Contains(t, body, "<length>25.4</length>")
	assert.Contains(t, body, "<option><option-code>SO</option-code></option>")
	assert.Contains(t, body, "<option><option-code>COV</option-code><option-amount>100</option-amount></option>")
}

func TestClient_FetchRates_CarrierError(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.SimulateErrors = true
	client := newTestClient(api)

	rates, msgs, err := client.FetchRates(context.Background(), rateRequest())

	assert.Nil(t, rates)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Server", msgs[0].Code)
	assert.Equal(t, shipper.SeverityError, msgs[0].Severity)

	var carrierErr *shipper.CarrierResponseError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "Simulated API error", carrierErr.Message)
}

func TestClient_FetchRates_LaterPackageFailureKeepsMessages(t *testing.T) {
	api := canadapost.NewMockAPI()
	calls := 0
	api.OnRates = func(ctx context.Context, body string) (string, error) {
		calls++
		if calls == 1 {
			return `<messages><message><code>7292</code><description>Dimensions exceed limit</description></message></messages>`, nil
		}
		return "", &shipper.TransportError{Carrier: "canadapost", Operation: "rates", Timeout: true}
	}
	client := newTestClient(api)

	rates, msgs, err := client.FetchRates(context.Background(), rateRequest(
		shipper.Parcel{Length: 10, Width: 10, Height: 10, Weight: 5},
		shipper.Parcel{Length: 20, Width: 20, Height: 20, Weight: 3},
	))

	assert.Nil(t, rates)
	require.Len(t, msgs, 1)
	assert.Equal(t, "7292", msgs[0].Code)
	var transportErr *shipper.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.True(t, transportErr.Timeout)
}

func TestClient_FetchRates_Validation(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	_, _, err := client.FetchRates(context.Background(), rateRequest(
		shipper.Parcel{Weight: 1},
		shipper.Parcel{Length: 10},
	))

	var verr *shipper.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []int{1}, verr.Indexes())
	assert.ErrorIs(t, err, shipper.ErrInvalidPackage)
	assert.Empty(t, api.Calls())
}

func TestClient_CreateShipment_Success(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	details, msgs, err := client.CreateShipment(context.Background(), shipmentRequest())

	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NotNil(t, details)
	assert.NotEmpty(t, details.ShipmentIdentifier)
	assert.True(t, strings.HasPrefix(details.TrackingNumber, "7023"))
	assert.Equal(t, shipper.LabelPDF, details.LabelType)

	label, err := base64.StdEncoding.DecodeString(details.Docs.Label)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 mock label", string(label))

	calls := api.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/rs/0001234567/0001234567/shipment", calls[0].URL)
	assert.True(t, calls[0].Once)
	assert.False(t, calls[1].Once)
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.Contains(t, calls[1].URL, "/rs/artifact/")
	assert.Equal(t, "application/pdf", calls[1].Headers["Accept"])
}

func TestClient_CreateShipment_LabelSkippedWhenCreationFails(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.OnCreate = func(ctx context.Context, body string) (string, error) {
		return `<messages><message><code>9111</code><description>Invalid postal code</description></message></messages>`, nil
	}
	api.OnLabel = func(ctx context.Context, href string) (string, error) {
		t.Fatal("label must not be fetched")
		return "", nil
	}
	client := newTestClient(api)

	details, msgs, err := client.CreateShipment(context.Background(), shipmentRequest())

	assert.Nil(t, details)
	require.Len(t, msgs, 1)
	assert.Equal(t, "9111", msgs[0].Code)

	var carrierErr *shipper.CarrierResponseError
	require.True(t, errors.As(err, &carrierErr))
	assert.Equal(t, "9111", carrierErr.Code)
	assert.Len(t, api.Calls(), 1)
}

func TestClient_CreateShipment_LabelTransportErrorKeepsShipment(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.OnLabel = func(ctx context.Context, href string) (string, error) {
		return "", &shipper.TransportError{Carrier: "canadapost", Operation: "label", Timeout: true}
	}
	client := newTestClient(api)

	details, msgs, err := client.CreateShipment(context.Background(), shipmentRequest())

	require.NoError(t, err)
	require.NotNil(t, details)
	assert.NotEmpty(t, details.ShipmentIdentifier)
	assert.True(t, strings.HasPrefix(details.TrackingNumber, "7023"))
	assert.Empty(t, details.Docs.Label)
	require.Len(t, msgs, 2)
	assert.Equal(t, "LABEL_SKIPPED", msgs[0].Code)
	assert.Equal(t, "TIMEOUT", msgs[1].Code)
	assert.False(t, shipper.HasErrors(msgs))
	assert.Len(t, api.Calls(), 2)
}

func TestClient_CreateShipment_NotificationFromRecipient(t *testing.T) {
	api := canadapost.NewMockAPI()
	var body string
	api.OnCreate = func(ctx context.Context, b string) (string, error) {
		body = b
		return `<shipment-info><shipment-id>1</shipment-id><tracking-pin>2</tracking-pin></shipment-info>`, nil
	}
	client := newTestClient(api)

	req := shipmentRequest()
	req.LabelType = shipper.LabelZPL
	req.Options = map[string]any{"email_notification": true}
	details, msgs, err := client.CreateShipment(context.Background(), req)

	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Empty(t, details.Docs.Label)
	require.Len(t, msgs, 1)
	assert.Equal(t, shipper.SeverityWarning, msgs[0].Severity)

	assert.Contains(t, body, "<service-code>DOM.EP</service-code>")
	assert.Contains(t, body, "<email>receiver@example.com</email>")
	assert.Contains(t, body, "<encoding>ZPL</encoding>")
	assert.Contains(t, body, "<contract-id>42708517</contract-id>")
}

func TestClient_CreateShipment_NotificationOptions(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		want    string
	}{
		{"flag as string", map[string]any{"email_notification": "true"}, "receiver@example.com"},
		{"address without flag", map[string]any{"email_notification_to": "ops@example.com"}, "ops@example.com"},
		{"flag off", map[string]any{"email_notification": "false", "email_notification_to": "ops@example.com"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := canadapost.NewMockAPI()
			var body string
			api.OnCreate = func(ctx context.Context, b string) (string, error) {
				body = b
				return `<shipment-info><shipment-id>1</shipment-id><tracking-pin>2</tracking-pin></shipment-info>`, nil
			}
			client := newTestClient(api)
			req := shipmentRequest()
			req.Options = tt.options

			_, _, err := client.CreateShipment(context.Background(), req)
			require.NoError(t, err)

			if tt.want == "" {
				assert.NotContains(t, body, "<notification>")
				return
			}
			assert.Contains(t, body, "<email>"+tt.want+"</email>")
		})
	}
}

func TestClient_CreateShipment_SingleParcelOnly(t *testing.T) {
	client := newTestClient(canadapost.NewMockAPI())

	req := shipmentRequest()
	req.Parcels = append(req.Parcels, shipper.Parcel{Weight: 1})
	_, _, err := client.CreateShipment(context.Background(), req)

	var verr *shipper.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "parcels", verr.Issues[0].Field)
}

func TestClient_CreateShipment_UnsupportedLabelType(t *testing.T) {
	client := newTestClient(canadapost.NewMockAPI())

	req := shipmentRequest()
	req.LabelType = shipper.LabelPNG
	_, _, err := client.CreateShipment(context.Background(), req)

	assert.ErrorIs(t, err, shipper.ErrUnsupported)
}

func TestClient_GetTracking(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	details, msgs, err := client.GetTracking(context.Background(), &shipper.TrackingRequest{
		TrackingNumbers: []string{"1371134583769923", "1371134583769924", "1371134583769923"},
	})

	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.Len(t, details, 2)
	assert.Len(t, api.Calls(), 2)

	d := details[0]
	assert.Equal(t, "1371134583769923", d.TrackingNumber)
	assert.Equal(t, shipper.StatusInTransit, d.Status)
	assert.False(t, d.Delivered)
	require.Len(t, d.Events, 2)
	assert.True(t, d.Events[0].Date.After(d.Events[1].Date))
	assert.Equal(t, "MISSISSAUGA, ON", d.Events[0].Location)
	assert.NotNil(t, d.EstimatedDelivery)
}

func TestClient_GetTracking_Delivered(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.OnTracking = func(ctx context.Context, pin string) (string, error) {
		return `<tracking-detail><pin>` + pin + `</pin><significant-events>
<occurrence><event-identifier>1496</event-identifier><event-date>2026-03-02</event-date><event-time>10:15:00</event-time><event-description>Delivered</event-description></occurrence>
</significant-events></tracking-detail>`, nil
	}
	client := newTestClient(api)

	details, _, err := client.GetTracking(context.Background(), &shipper.TrackingRequest{TrackingNumbers: []string{"1"}})

	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, shipper.StatusDelivered, details[0].Status)
	assert.True(t, details[0].Delivered)
}

func TestClient_GetTracking_UnknownPIN(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.OnTracking = func(ctx context.Context, pin string) (string, error) {
		return `<messages><message><code>004</code><description>No Pin History</description></message></messages>`, nil
	}
	client := newTestClient(api)

	_, msgs, err := client.GetTracking(context.Background(), &shipper.TrackingRequest{TrackingNumbers: []string{"999"}})

	require.Error(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "999", msgs[0].Details["tracking_number"])
}

func TestClient_CancelShipment(t *testing.T) {
	api := canadapost.NewMockAPI()
	client := newTestClient(api)

	confirmation, _, err := client.CancelShipment(context.Background(), &shipper.CancelRequest{ShipmentIdentifier: "347881315405043891"})

	require.NoError(t, err)
	assert.True(t, confirmation.Success)
	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodDelete, calls[0].Method)
	assert.Equal(t, "/rs/0001234567/0001234567/shipment/347881315405043891", calls[0].URL)
}

func TestClient_CancelShipment_Refused(t *testing.T) {
	api := canadapost.NewMockAPI()
	api.OnCancel = func(ctx context.Context, id string) (string, error) {
		return `<messages><message><code>8064</code><description>Shipment already transmitted</description></message></messages>`, nil
	}
	client := newTestClient(api)

	confirmation, msgs, err := client.CancelShipment(context.Background(), &shipper.CancelRequest{ShipmentIdentifier: "1"})

	assert.Nil(t, confirmation)
	assert.Len(t, msgs, 1)
	assert.Error(t, err)
}

func TestClient_CancelShipment_MissingIdentifier(t *testing.T) {
	client := newTestClient(canadapost.NewMockAPI())

	_, _, err := client.CancelShipment(context.Background(), &shipper.CancelRequest{})

	var verr *shipper.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestClient_HTTPRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rs/ship/price", r.URL.Path)
		assert.Equal(t, "application/vnd.cpc.ship.rate-v4+xml", r.Header.Get("Content-Type"))
		assert.Equal(t, "fr-CA", r.Header.Get("Accept-Language"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "user", user)
		assert.Equal(t, "pass", pass)

		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.HasPrefix(string(body), "<?xml"))
		_, _ = w.Write([]byte(`<price-quotes><price-quote><service-code>DOM.EP</service-code><price-details><base>10</base><due>11.3</due></price-details></price-quote></price-quotes>`))
	}))
	defer srv.Close()

	client := canadapost.New(canadapost.Config{
		Username:       "user",
		Password:       "pass",
		CustomerNumber: "0001234567",
		BaseURL:        srv.URL,
		Language:       "fr-CA",
		MaxAttempts:    1,
	}, otelzap.New(zap.NewNop()))

	rates, _, err := client.FetchRates(context.Background(), rateRequest())
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, canadapost.ServiceExpeditedParcel, rates[0].Service)
	assert.InDelta(t, 11.3, rates[0].TotalCharge, 0.001)
}
