package purolator

import (
	"sort"
	"strings"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

// TrackingRequest builds one TrackPackagesByPin call for every PIN.
func TrackingRequest(payload *shipper.TrackingRequest, cfg Config) (*pipeline.Pipeline, error) {
	var pins []string
	seen := make(map[string]bool)
	for _, pin := range payload.TrackingNumbers {
		pin = strings.TrimSpace(pin)
		if pin == "" || seen[pin] {
			continue
		}
		seen[pin] = true
		pins = append(pins, pin)
	}
	if len(pins) == 0 {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "tracking_numbers", Reason: "at least one tracking number is required"})
	}

	env := cfg.envelope(jobTracking, "TrackPackagesByPin", payload.Reference, trackingData{PINs: pins})
	return pipeline.Single(jobTracking, pipeline.New(env, serializeEnvelope)), nil
}

func parseTracking(raw string, cfg Config) ([]shipper.TrackingDetails, []shipper.Message) {
	env, msgs := parseResponse(cfg, raw)
	if env == nil || env.Body.Tracking == nil {
		return nil, msgs
	}

	var details []shipper.TrackingDetails
	for _, info := range env.Body.Tracking.TrackingInformation {
		if len(info.Scans) == 0 {
			continue
		}
		d := shipper.TrackingDetails{
			CarrierName:    carrierName,
			CarrierID:      cfg.carrierID(),
			TrackingNumber: info.PIN.Value,
			Events:         make([]shipper.TrackingEvent, 0, len(info.Scans)),
		}
		for _, scan := range info.Scans {
			d.Events = append(d.Events, shipper.TrackingEvent{
				Date:        parseScanTime(scan.ScanDate, scan.ScanTime),
				Description: scan.Description,
				Location:    scan.Depot.Name,
				Code:        scan.ScanType,
			})
		}
		sort.SliceStable(d.Events, func(i, j int) bool { return d.Events[i].Date.After(d.Events[j].Date) })

		d.Status = mapScanStatus(d.Events[0].Code)
		d.Delivered = d.Status == shipper.StatusDelivered
		details = append(details, d)
	}
	return details, msgs
}

// parseScanTime accepts "150405" and "15:04:05" scan times.
func parseScanTime(date, clock string) time.Time {
	clock = strings.ReplaceAll(strings.TrimSpace(clock), ":", "")
	if t, err := time.Parse("2006-01-02 150405", date+" "+clock); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", date)
	return t
}
