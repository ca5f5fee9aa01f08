package canadapost

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

const rateJobPrefix = "rate-"

// RateRequest builds one required rate job per parcel.
func RateRequest(payload *shipper.RateRequest, cfg Config) (*pipeline.Pipeline, error) {
	options, err := units.NormalizeOptions(payload.Options, Options)
	if err != nil {
		return nil, err
	}
	packages, err := units.NormalizePackages(payload.Parcels, Vocabulary.PackageSpec(options))
	if err != nil {
		return nil, err
	}

	var services *ServicesType
	for _, key := range payload.Services {
		if code, err := Services.Resolve(key); err == nil {
			if services == nil {
				services = &ServicesType{}
			}
			services.ServiceCode = append(services.ServiceCode, code)
		}
	}

	p := pipeline.NewPipeline()
	for _, pkg := range packages.All() {
		scenario := MailingScenario{
			Xmlns:            rateNamespace,
			CustomerNumber:   cfg.CustomerNumber,
			ContractID:       cfg.ContractID,
			ExpectedMailing:  options.Get(units.OptionShipmentDate).String(),
			Options:          optionsType(pkg.Options),
			ParcelCharacters: parcelCharacteristics(pkg),
			Services:         services,
			OriginPostalCode: normalizePostalCode(payload.Shipper.PostalCode),
			Destination:      destination(payload.Recipient),
		}
		p.Require(fmt.Sprintf("%s%d", rateJobPrefix, pkg.Index), func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.New(scenario, serializeXML[MailingScenario])}
		})
	}
	return p, nil
}

func parcelCharacteristics(pkg units.Package) ParcelCharacteristics {
	out := ParcelCharacteristics{
		Weight:   pkg.Weight.Round(units.KG, 3),
		Document: pkg.IsDocument,
	}
	if pkg.HasDimensions() {
		out.Dimensions = &Dimensions{
			Length: pkg.Length.Round(units.CM, 1),
			Width:  pkg.Width.Round(units.CM, 1),
			Height: pkg.Height.Round(units.CM, 1),
		}
	}
	return out
}

func optionsType(set *units.OptionSet) *OptionsType {
	items := set.Items()
	if len(items) == 0 {
		return nil
	}
	out := &OptionsType{}
	for _, item := range items {
		opt := OptionType{Code: item.Code}
		if item.Type == units.TypeFloat {
			opt.Amount = item.Float()
		}
		out.Option = append(out.Option, opt)
	}
	return out
}

func destination(addr shipper.Address) Destination {
	switch strings.ToUpper(addr.CountryCode) {
	case "", "CA":
		return Destination{Domestic: &Domestic{PostalCode: normalizePostalCode(addr.PostalCode)}}
	case "US":
		return Destination{UnitedStates: &UnitedStates{ZipCode: strings.TrimSpace(addr.PostalCode)}}
	default:
		return Destination{International: &International{CountryCode: strings.ToUpper(addr.CountryCode)}}
	}
}

// parseRates sums the quotes of every rated parcel per service. A service
// is kept only when every parsed parcel response offers it.
func parseRates(res *pipeline.Result, cfg Config) ([]shipper.RateDetails, []shipper.Message) {
	var msgs []shipper.Message
	totals := make(map[string]*shipper.RateDetails)
	counts := make(map[string]int)
	var order []string
	parsed := 0

	for _, o := range res.Outcomes() {
		if o.State != pipeline.Executed {
			continue
		}
		if m := parseMessages(cfg, o.Response); len(m) > 0 {
			msgs = append(msgs, m...)
			continue
		}
		var quotes priceQuotes
		if err := xml.Unmarshal([]byte(o.Response), &quotes); err != nil {
			msgs = append(msgs, cfg.message(shipper.SeverityError, "PARSE_ERROR", fmt.Sprintf("%s: %v", o.ID, err)))
			continue
		}
		parsed++

		for _, q := range quotes.PriceQuote {
			rate := quoteToRate(q, cfg)
			total, ok := totals[rate.Service]
			if !ok {
				totals[rate.Service] = &rate
				order = append(order, rate.Service)
				counts[rate.Service] = 1
				continue
			}
			counts[rate.Service]++
			addRate(total, rate)
		}
	}

	var rates []shipper.RateDetails
	for _, service := range order {
		if counts[service] == parsed {
			rates = append(rates, *totals[service])
		}
	}
	return rates, msgs
}

func quoteToRate(q priceQuote, cfg Config) shipper.RateDetails {
	d := q.PriceDetails
	charges := []shipper.ChargeDetails{{Name: "Base charge", Amount: d.Base, Currency: "CAD"}}
	for _, a := range d.Adjustments {
		name := a.Name
		if name == "" {
			name = a.Code
		}
		charges = append(charges, shipper.ChargeDetails{Name: name, Amount: a.Cost, Currency: "CAD"})
	}
	for _, o := range d.Options {
		if o.Price == 0 {
			continue
		}
		charges = append(charges, shipper.ChargeDetails{Name: o.Name, Amount: o.Price, Currency: "CAD"})
	}
	for _, tax := range []struct {
		name   string
		amount float64
	}{{"GST", d.Taxes.GST}, {"PST", d.Taxes.PST}, {"HST", d.Taxes.HST}} {
		if tax.amount != 0 {
			charges = append(charges, shipper.ChargeDetails{Name: tax.name, Amount: tax.amount, Currency: "CAD"})
		}
	}

	rate := shipper.RateDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Service:     Services.Match(q.ServiceCode),
		Currency:    "CAD",
		TotalCharge: d.Due,
		BaseCharge:  d.Base,
		Charges:     charges,
		TransitDays: q.ServiceStandard.ExpectedTransitTime,
		Meta: map[string]any{
			"service_name":        q.ServiceName,
			"guaranteed_delivery": q.ServiceStandard.GuaranteedDelivery,
		},
	}
	if t, err := time.Parse("2006-01-02", q.ServiceStandard.ExpectedDeliveryDate); err == nil {
		rate.EstimatedDelivery = &t
	}
	return rate
}

// addRate accumulates the charges of next into total.
func addRate(total *shipper.RateDetails, next shipper.RateDetails) {
	total.TotalCharge += next.TotalCharge
	total.BaseCharge += next.BaseCharge
	for _, c := range next.Charges {
		merged := false
		for i := range total.Charges {
			if total.Charges[i].Name == c.Name {
				total.Charges[i].Amount += c.Amount
				merged = true
				break
			}
		}
		if !merged {
			total.Charges = append(total.Charges, c)
		}
	}
	if next.TransitDays > total.TransitDays {
		total.TransitDays = next.TransitDays
	}
	if next.EstimatedDelivery != nil && (total.EstimatedDelivery == nil || next.EstimatedDelivery.After(*total.EstimatedDelivery)) {
		total.EstimatedDelivery = next.EstimatedDelivery
	}
}
