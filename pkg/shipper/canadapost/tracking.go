package canadapost

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/pipeline"
)

const (
	trackJobPrefix = "track-"
	contextPIN     = "pin"
)

// Event identifiers grouped by the status they signal.
var (
	deliveredEvents      = []string{"1496", "1498", "1499", "1409", "1408", "1421", "1422", "1423", "1424", "1425", "1426", "1427", "1428", "1429", "1430", "1431", "1432", "1433", "1434", "1441", "1442"}
	outForDeliveryEvents = []string{"0174", "0500"}
	pickedUpEvents       = []string{"0001", "0002", "0003", "3000"}
	exceptionEvents      = []string{"1100", "1101", "1102", "1103", "1104", "1105", "1106", "1107", "1108", "1109", "1110", "1111", "1112", "1113", "1114", "1115", "1116", "1117", "1118", "1119", "1120", "1121"}
	cancelledEvents      = []string{"1300", "1301", "0900"}
)

// TrackingRequest builds one tracking job per distinct PIN.
func TrackingRequest(payload *shipper.TrackingRequest, _ Config) (*pipeline.Pipeline, error) {
	if len(payload.TrackingNumbers) == 0 {
		return nil, shipper.NewValidationError(carrierName, shipper.FieldIssue{Index: -1, Field: "tracking_numbers", Reason: "at least one tracking number is required"})
	}

	p := pipeline.NewPipeline()
	seen := make(map[string]bool)
	for _, pin := range payload.TrackingNumbers {
		pin = strings.TrimSpace(pin)
		if pin == "" || seen[pin] {
			continue
		}
		seen[pin] = true
		p.Then(trackJobPrefix+pin, func(string) pipeline.Job {
			return pipeline.Job{Data: pipeline.Text("").WithContext(contextPIN, pin)}
		})
	}
	return p, nil
}

func parseTracking(res *pipeline.Result, cfg Config) ([]shipper.TrackingDetails, []shipper.Message) {
	var details []shipper.TrackingDetails
	var msgs []shipper.Message

	for _, o := range res.Outcomes() {
		if o.State != pipeline.Executed {
			continue
		}
		if m := parseMessages(cfg, o.Response); len(m) > 0 {
			pin := strings.TrimPrefix(o.ID, trackJobPrefix)
			for i := range m {
				m[i].Details = map[string]string{"tracking_number": pin}
			}
			msgs = append(msgs, m...)
			continue
		}

		var detail trackingDetail
		if err := xml.Unmarshal([]byte(o.Response), &detail); err != nil {
			continue
		}
		details = append(details, trackingToDetails(detail, cfg))
	}
	return details, msgs
}

func trackingToDetails(detail trackingDetail, cfg Config) shipper.TrackingDetails {
	out := shipper.TrackingDetails{
		CarrierName:    carrierName,
		CarrierID:      cfg.carrierID(),
		TrackingNumber: detail.PIN,
		Status:         shipper.StatusPending,
		Events:         make([]shipper.TrackingEvent, 0, len(detail.Occurrences)),
	}

	for _, occ := range detail.Occurrences {
		out.Events = append(out.Events, shipper.TrackingEvent{
			Date:        parseEventTime(occ.Date, occ.Time),
			Description: occ.Description,
			Location:    joinLocation(occ.Site, occ.Province),
			Code:        occ.Identifier,
		})
	}
	if len(detail.Occurrences) > 0 {
		out.Status = eventStatus(detail.Occurrences[0].Identifier)
	}
	out.Delivered = out.Status == shipper.StatusDelivered

	expected := detail.ChangedExpectedDate
	if expected == "" {
		expected = detail.ExpectedDeliveryDate
	}
	if t, err := time.Parse("2006-01-02", expected); err == nil {
		out.EstimatedDelivery = &t
	}
	return out
}

func eventStatus(identifier string) shipper.TrackingStatus {
	switch {
	case contains(deliveredEvents, identifier):
		return shipper.StatusDelivered
	case contains(outForDeliveryEvents, identifier):
		return shipper.StatusOutForDelivery
	case contains(cancelledEvents, identifier):
		return shipper.StatusCancelled
	case contains(exceptionEvents, identifier):
		return shipper.StatusException
	case contains(pickedUpEvents, identifier):
		return shipper.StatusPickedUp
	default:
		return shipper.StatusInTransit
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func parseEventTime(date, clock string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", strings.TrimSpace(date+" "+clock)); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", date)
	return t
}

func joinLocation(site, province string) string {
	switch {
	case site == "":
		return province
	case province == "":
		return site
	default:
		return site + ", " + province
	}
}
