package freightcom

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

const trackJobPrefix = "track-"

// TrackingRequest builds one tracking-events call per shipment id.
func TrackingRequest(payload *shipper.TrackingRequest, cfg Config) (*pipeline.Pipeline, error) {
	p := pipeline.NewPipeline()
	seen := make(map[string]bool)
	for _, id := range payload.TrackingNumbers {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		p.Then(trackJobPrefix+id, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.Text("").WithContext(contextShipmentID, id)}
		})
	}
	if len(seen) == 0 {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "tracking_numbers", Reason: "at least one tracking number is required"})
	}
	return p, nil
}

func parseTracking(res *pipeline.Result, cfg Config) ([]shipper.TrackingDetails, []shipper.Message) {
	var (
		details []shipper.TrackingDetails
		msgs    []shipper.Message
	)
	for _, outcome := range res.Outcomes() {
		id := strings.TrimPrefix(outcome.ID, trackJobPrefix)
		raw := outcome.Response

		found := parseMessages(cfg, raw)
		for i := range found {
			found[i].Details = map[string]string{"tracking_number": id}
		}
		msgs = append(msgs, found...)
		if shipper.HasErrors(found) || !gjson.Valid(raw) {
			continue
		}

		doc := gjson.Parse(raw)
		d := shipper.TrackingDetails{
			CarrierName:    carrierName,
			CarrierID:      cfg.carrierID(),
			TrackingNumber: doc.Get("tracking_number").String(),
		}
		if d.TrackingNumber == "" {
			d.TrackingNumber = id
		}
		doc.Get("events").ForEach(func(_, e gjson.Result) bool {
			date, _ := time.Parse(time.RFC3339, e.Get("timestamp").String())
			d.Events = append(d.Events, shipper.TrackingEvent{
				Date:        date,
				Description: e.Get("description").String(),
				Location:    e.Get("location").String(),
				Code:        e.Get("status").String(),
			})
			return true
		})
		sort.SliceStable(d.Events, func(i, j int) bool { return d.Events[i].Date.After(d.Events[j].Date) })

		d.Status = mapStatus(doc.Get("status").String())
		if d.Status == shipper.StatusUnknown && len(d.Events) > 0 {
			d.Status = mapStatus(d.Events[0].Code)
		}
		d.Delivered = d.Status == shipper.StatusDelivered
		if t, err := time.Parse("2006-01-02", doc.Get("estimated_delivery").String()); err == nil {
			d.EstimatedDelivery = &t
		}
		details = append(details, d)
	}
	return details, msgs
}
