package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Metrics holds all Prometheus metrics for the service. It observes the
// registry fan-out, the transport jobs and the rate cache.
type Metrics struct {
	CarrierCalls    *prometheus.CounterVec
	CarrierDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	Jobs            *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	CacheLookups    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CarrierCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_carrier_calls_total",
				Help: "Carrier operations by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		CarrierDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carrierbridge_carrier_call_duration_seconds",
				Help:    "Carrier operation duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_carrier_errors_total",
				Help: "Failed carrier operations by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		Jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_pipeline_jobs_total",
				Help: "Physical carrier calls by carrier, job, and status",
			},
			[]string{"carrier", "job", "status"},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carrierbridge_pipeline_job_duration_seconds",
				Help:    "Physical carrier call duration in seconds, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"carrier", "job"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_rate_cache_lookups_total",
				Help: "Rate cache lookups by carrier and result",
			},
			[]string{"carrier", "result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carrierbridge_http_requests_total",
				Help: "HTTP API requests by route and status code",
			},
			[]string{"route", "code"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ErrorType classifies err for the error_type label.
func ErrorType(err error) string {
	var (
		carrierErr    *shipper.CarrierResponseError
		transportErr  *shipper.TransportError
		validationErr *shipper.ValidationError
		mappingErr    *shipper.UnsupportedMappingError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &mappingErr):
		return "unsupported"
	case errors.As(err, &carrierErr):
		return "carrier"
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			return "timeout"
		}
		return "transport"
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return "not_found"
	}
	return "internal"
}

// ObserveCarrierCall records one carrier operation of a fan-out.
func (m *Metrics) ObserveCarrierCall(operation, carrier string, duration time.Duration, err error) {
	m.CarrierCalls.WithLabelValues(operation, carrier, status(err)).Inc()
	m.CarrierDuration.WithLabelValues(operation, carrier).Observe(duration.Seconds())
	if err != nil {
		m.CarrierErrors.WithLabelValues(carrier, ErrorType(err)).Inc()
	}
}

// ObserveJob records one physical carrier call.
func (m *Metrics) ObserveJob(carrier, job string, duration time.Duration, err error) {
	m.Jobs.WithLabelValues(carrier, job, status(err)).Inc()
	m.JobDuration.WithLabelValues(carrier, job).Observe(duration.Seconds())
}

// ObserveCacheLookup records a rate cache hit or miss.
func (m *Metrics) ObserveCacheLookup(carrier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(carrier, result).Inc()
}

// RecordRequest records an HTTP API request.
func (m *Metrics) RecordRequest(route string, code int) {
	m.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
