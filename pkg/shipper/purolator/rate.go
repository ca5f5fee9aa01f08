package purolator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// RateRequest builds a GetFullEstimate request covering every parcel.
func RateRequest(payload *shipper.RateRequest, cfg Config) (*pipeline.Pipeline, error) {
	options, err := units.NormalizeOptions(payload.Options, Options)
	if err != nil {
		return nil, err
	}
	packages, err := units.NormalizePackages(payload.Parcels, Vocabulary.PackageSpec(options))
	if err != nil {
		return nil, err
	}

	data := estimateData{
		Sender:       toParty(payload.Shipper),
		Receiver:     toParty(payload.Recipient),
		ShipmentDate: options.Get(units.OptionShipmentDate).String(),
		Package:      toPackageInfo(packages, "", options),
		Payment:      payment{Type: "Sender", Account: cfg.AccountNumber},
	}
	return pipeline.Single(jobRates, pipeline.New(cfg.envelope(jobRates, "GetFullEstimate", payload.Reference, data), serializeEnvelope)), nil
}

func (c Config) envelope(job, body, reference string, data any) Envelope {
	if reference == "" {
		reference = uuid.NewString()
	}
	return Envelope{
		Op:        operations[job],
		Template:  body,
		Language:  c.language(),
		Reference: reference,
		UserToken: c.UserToken,
		Body:      data,
	}
}

func toPackageInfo(packages *units.PackageCollection, service string, options *units.OptionSet) packageInfo {
	info := packageInfo{
		ServiceID:   service,
		TotalWeight: packages.Weight().Ceil(units.LB),
		Options:     optionPairs(options),
	}
	if d := packages.Description(); d != "" {
		if len(d) > 25 {
			d = d[:25]
		}
		info.Description = d
	}
	if info.TotalWeight < 1 {
		info.TotalWeight = 1
	}
	for _, pkg := range packages.All() {
		p := piece{Weight: pkg.Weight.Round(units.LB, 1)}
		if pkg.HasDimensions() {
			p.Length = pkg.Length.Round(units.IN, 1)
			p.Width = pkg.Width.Round(units.IN, 1)
			p.Height = pkg.Height.Round(units.IN, 1)
		}
		info.Pieces = append(info.Pieces, p)
	}
	return info
}

func optionPairs(options *units.OptionSet) []optionPair {
	var pairs []optionPair
	for _, item := range options.Items() {
		value := item.String()
		switch item.Type {
		case units.TypeFlag:
			value = "true"
		case units.TypeFloat:
			value = strconv.FormatFloat(item.Float(), 'f', 2, 64)
		}
		pairs = append(pairs, optionPair{ID: item.Code, Value: value})
	}
	return pairs
}

var streetNumber = regexp.MustCompile(`^\s*(\d+[A-Za-z]?)\s+(.*)$`)

func toParty(addr shipper.Address) party {
	p := party{
		Name:       addr.PersonName,
		Company:    addr.CompanyName,
		StreetName: addr.Line1,
		Street2:    addr.Line2,
		City:       addr.City,
		Province:   addr.ProvinceCode,
		Country:    strings.ToUpper(addr.CountryCode),
		PostalCode: strings.ReplaceAll(strings.ToUpper(addr.PostalCode), " ", ""),
		Phone:      parsePhone(addr.Phone),
	}
	if m := streetNumber.FindStringSubmatch(addr.Line1); m != nil {
		p.StreetNumber, p.StreetName = m[1], m[2]
	}
	if p.Name == "" {
		p.Name = p.Company
	}
	return p
}

var nonDigit = regexp.MustCompile(`\D`)

// parsePhone splits a North American number. Unknown formats become zeros.
func parsePhone(raw string) phone {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return phone{CountryCode: "1", AreaCode: "000", Number: "0000000"}
	}
	return phone{CountryCode: "1", AreaCode: digits[:3], Number: digits[3:]}
}

// parseRates turns a GetFullEstimate response into rates, keeping only the
// requested services when any are named.
func parseRates(raw string, services []string, cfg Config) ([]shipper.RateDetails, []shipper.Message) {
	env, msgs := parseResponse(cfg, raw)
	if env == nil || env.Body.Estimate == nil {
		return nil, msgs
	}

	wanted := make(map[string]bool)
	for _, s := range services {
		wanted[Services.ValueOrKey(s)] = true
	}

	var rates []shipper.RateDetails
	for _, est := range env.Body.Estimate.ShipmentEstimates {
		if len(wanted) > 0 && !wanted[est.ServiceID] {
			continue
		}
		rates = append(rates, estimateToRate(est, cfg))
	}
	return rates, msgs
}

func estimateToRate(est shipmentEstimate, cfg Config) shipper.RateDetails {
	base := parseAmount(est.BasePrice)
	charges := []shipper.ChargeDetails{{Name: "Base charge", Amount: base, Currency: "CAD"}}
	for _, s := range est.Surcharges {
		charges = append(charges, shipper.ChargeDetails{Name: chargeName(s), Amount: parseAmount(s.Amount), Currency: "CAD"})
	}
	for _, o := range est.OptionPrices {
		charges = append(charges, shipper.ChargeDetails{Name: o.Description, Amount: parseAmount(o.Amount), Currency: "CAD"})
	}
	for _, t := range est.Taxes {
		if amount := parseAmount(t.Amount); amount != 0 {
			charges = append(charges, shipper.ChargeDetails{Name: chargeName(t), Amount: amount, Currency: "CAD"})
		}
	}

	rate := shipper.RateDetails{
		CarrierName: carrierName,
		CarrierID:   cfg.carrierID(),
		Service:     Services.Match(est.ServiceID),
		Currency:    "CAD",
		TotalCharge: parseAmount(est.TotalPrice),
		BaseCharge:  base,
		Charges:     charges,
		TransitDays: est.EstimatedTransitDays,
		Meta: map[string]any{
			"service_name": mapServiceName(est.ServiceID),
		},
	}
	if t, err := time.Parse("2006-01-02", est.ExpectedDeliveryDate); err == nil {
		rate.EstimatedDelivery = &t
	}
	return rate
}

func chargeName(c soapCharge) string {
	if c.Description != "" {
		return c.Description
	}
	if c.Type != "" {
		return c.Type
	}
	return fmt.Sprintf("charge %s", c.Amount)
}
