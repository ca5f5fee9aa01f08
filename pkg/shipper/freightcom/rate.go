package freightcom

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

const (
	jobRateSubmit = "rate-submit"
	jobRatePoll   = "rate-poll"

	contextRequestID = "request-id"
)

// RateRequest builds the submit then poll pipeline. Rating is asynchronous:
// POST /rate returns a request id that GET /rate/{id} resolves.
func RateRequest(payload *shipper.RateRequest, cfg Config) (*pipeline.Pipeline, error) {
	options, err := units.NormalizeOptions(payload.Options, Options)
	if err != nil {
		return nil, err
	}
	packages, err := units.NormalizePackages(payload.Parcels, Vocabulary.PackageSpec(options))
	if err != nil {
		return nil, err
	}

	body := RatesRequest{
		Details: shippingDetails(payload.Shipper, payload.Recipient, packages, options),
	}
	for _, s := range payload.Services {
		body.Services = append(body.Services, Services.ValueOrKey(s))
	}

	return pipeline.NewPipeline().
		Require(jobRateSubmit, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.New(body, serializeJSON[RatesRequest])}
		}).
		Then(jobRatePoll, func(submitted string) pipeline.Job {
			id := requestID(submitted)
			if id == "" {
				return pipeline.Job{Fallback: ""}
			}
			return pipeline.Job{Data: pipeline.Text("").WithContext(contextRequestID, id)}
		}), nil
}

func shippingDetails(from, to shipper.Address, packages *units.PackageCollection, options *units.OptionSet) ShippingDetails {
	packaging := packages.PackageType()
	if packaging == "" {
		packaging = units.PackagingSmallBox
	}
	details := ShippingDetails{
		Origin:           toLocation(from),
		Destination:      toLocation(to),
		ExpectedShipDate: options.Get(units.OptionShipmentDate).String(),
		Packaging: PackagingInfo{
			Type: Packaging.ValueOrKey(packaging),
		},
		Options: optionValues(options),
	}
	for _, pkg := range packages.All() {
		details.Packaging.Packages = append(details.Packaging.Packages, Package{
			Length:      pkg.Length.Ceil(units.IN),
			Width:       pkg.Width.Ceil(units.IN),
			Height:      pkg.Height.Ceil(units.IN),
			Weight:      pkg.Weight.Ceil(units.LB),
			Description: pkg.Description(),
			Quantity:    1,
			Insurance:   pkg.Options.Get(OptionInsurance).Float(),
		})
	}
	return details
}

func optionValues(options *units.OptionSet) map[string]any {
	items := options.Items()
	if len(items) == 0 {
		return nil
	}
	values := make(map[string]any, len(items))
	for _, item := range items {
		switch item.Type {
		case units.TypeFlag:
			values[item.Code] = true
		case units.TypeFloat:
			values[item.Code] = item.Float()
		default:
			values[item.Code] = item.String()
		}
	}
	return values
}

func toLocation(addr shipper.Address) Location {
	return Location{
		Name:        addr.PersonName,
		Company:     addr.CompanyName,
		Address1:    addr.Line1,
		Address2:    addr.Line2,
		City:        addr.City,
		Province:    addr.ProvinceCode,
		PostalCode:  strings.ToUpper(addr.PostalCode),
		Country:     strings.ToUpper(addr.CountryCode),
		Phone:       addr.Phone,
		Email:       addr.Email,
		Residential: addr.Residential,
	}
}

func requestID(raw string) string {
	return gjson.Get(raw, "request_id").String()
}

func ratesPending(raw string) bool {
	return gjson.Get(raw, "status").String() == "pending"
}

// parseRates reads a completed GET /rate/{id} response.
func parseRates(raw string, cfg Config) ([]shipper.RateDetails, []shipper.Message) {
	msgs := parseMessages(cfg, raw)
	if raw == "" || !gjson.Valid(raw) {
		return nil, msgs
	}
	doc := gjson.Parse(raw)
	if doc.Get("status").String() == "error" {
		msgs = append(msgs, cfg.message(shipper.SeverityError, "RATE_ERROR", doc.Get("error").String()))
		return nil, msgs
	}

	var rates []shipper.RateDetails
	doc.Get("rates").ForEach(func(_, r gjson.Result) bool {
		rates = append(rates, toRate(r, cfg))
		return true
	})
	return rates, msgs
}

// toRate converts one Freightcom rate object. Zero charges are left out.
func toRate(r gjson.Result, cfg Config) shipper.RateDetails {
	currency := r.Get("currency").String()
	if currency == "" {
		currency = "CAD"
	}
	charge := func(name string, amount float64) []shipper.ChargeDetails {
		if amount == 0 {
			return nil
		}
		return []shipper.ChargeDetails{{Name: name, Amount: amount, Currency: currency}}
	}

	base := r.Get("base_rate").Float()
	charges := charge("Base charge", base)
	charges = append(charges, charge("Fuel surcharge", r.Get("fuel_surcharge").Float())...)
	r.Get("surcharges").ForEach(func(_, s gjson.Result) bool {
		name := s.Get("description").String()
		if name == "" {
			name = s.Get("code").String()
		}
		charges = append(charges, charge(name, s.Get("amount").Float())...)
		return true
	})
	r.Get("taxes").ForEach(func(_, t gjson.Result) bool {
		charges = append(charges, charge(t.Get("code").String(), t.Get("amount").Float())...)
		return true
	})

	rate := shipper.RateDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Service:     Services.Match(r.Get("service_id").String()),
		Currency:    currency,
		TotalCharge: r.Get("total_price").Float(),
		BaseCharge:  base,
		Charges:     charges,
		TransitDays: int(r.Get("transit_days").Int()),
		Meta: map[string]any{
			"rate_provider": r.Get("carrier_name").String(),
			"service_name":  r.Get("service_name").String(),
			"rate_id":       r.Get("id").String(),
			"guaranteed":    r.Get("guaranteed").Bool(),
		},
	}
	if t, err := time.Parse("2006-01-02", r.Get("estimated_delivery").String()); err == nil {
		rate.EstimatedDelivery = &t
	}
	return rate
}
