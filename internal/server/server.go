package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// Server is the HTTP front end of the carrier registry.
type Server struct {
	port     int
	registry *shipper.Registry
	catalog  *units.Catalog
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
	// Metrics and Gatherer default to the global Prometheus registry.
	Metrics  *telemetry.Metrics
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, registry *shipper.Registry, catalog *units.Catalog, logger *otelzap.Logger) *Server {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NewMetrics(nil)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:     cfg.Port,
		registry: registry,
		catalog:  catalog,
		logger:   logger,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/carriers", s.handleCarriers)
		r.Post("/rates", s.handleRates)
		r.Post("/shipments", s.handleCreateShipment)
		r.Post("/shipments/cancel", s.handleCancelShipment)
		r.Post("/tracking", s.handleTracking)
	})
	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordRequest(route, status)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type carrierInfo struct {
	Name       string   `json:"name"`
	Services   []string `json:"services,omitempty"`
	Packaging  []string `json:"packaging,omitempty"`
	LabelTypes []string `json:"label_types,omitempty"`
}

func (s *Server) handleCarriers(w http.ResponseWriter, r *http.Request) {
	carriers := make([]carrierInfo, 0, s.registry.Count())
	for _, name := range s.registry.Names() {
		info := carrierInfo{Name: name}
		if s.catalog != nil {
			if v, ok := s.catalog.Lookup(name); ok {
				info.Services = v.Services.Keys()
				info.Packaging = v.Packaging.Keys()
				info.LabelTypes = v.LabelTypes.Keys()
			}
		}
		carriers = append(carriers, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"carriers": carriers})
}

type rateRequest struct {
	shipper.RateRequest
	Carriers []string `json:"carriers,omitempty"`
}

type rateResponse struct {
	Rates    []shipper.RateDetails `json:"rates"`
	Messages []shipper.Message     `json:"messages"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if !s.decode(w, r, &req) {
		return
	}

	outcomes := s.registry.FetchRates(r.Context(), &req.RateRequest, req.Carriers...)
	rates, msgs := shipper.CollectRates(outcomes)
	writeJSON(w, http.StatusOK, rateResponse{
		Rates:    nonNil(rates),
		Messages: nonNil(msgs),
	})
}

type shipmentRequest struct {
	shipper.ShipmentRequest
	Carrier string `json:"carrier"`
}

type shipmentResponse struct {
	Shipment *shipper.ShipmentDetails `json:"shipment"`
	Messages []shipper.Message        `json:"messages"`
}

func (s *Server) handleCreateShipment(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if !s.decode(w, r, &req) {
		return
	}

	details, msgs, err := s.registry.CreateShipment(r.Context(), req.Carrier, &req.ShipmentRequest)
	if err != nil {
		s.writeError(w, r, req.Carrier, err, msgs)
		return
	}
	writeJSON(w, http.StatusCreated, shipmentResponse{Shipment: details, Messages: nonNil(msgs)})
}

type cancelRequest struct {
	shipper.CancelRequest
	Carrier string `json:"carrier"`
}

type cancelResponse struct {
	Confirmation *shipper.ConfirmationDetails `json:"confirmation"`
	Messages     []shipper.Message            `json:"messages"`
}

func (s *Server) handleCancelShipment(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !s.decode(w, r, &req) {
		return
	}

	confirmation, msgs, err := s.registry.CancelShipment(r.Context(), req.Carrier, &req.CancelRequest)
	if err != nil {
		s.writeError(w, r, req.Carrier, err, msgs)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Confirmation: confirmation, Messages: nonNil(msgs)})
}

type trackingRequest struct {
	shipper.TrackingRequest
	Carriers []string `json:"carriers,omitempty"`
}

type trackingResponse struct {
	Tracking []shipper.TrackingDetails `json:"tracking"`
	Messages []shipper.Message         `json:"messages"`
}

func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if !s.decode(w, r, &req) {
		return
	}

	var resp trackingResponse
	for _, o := range s.registry.FetchTracking(r.Context(), &req.TrackingRequest, req.Carriers...) {
		resp.Tracking = append(resp.Tracking, o.Result...)
		resp.Messages = append(resp.Messages, o.Messages...)
		if o.Err != nil && !shipper.HasErrors(o.Messages) {
			resp.Messages = append(resp.Messages, shipper.MessageFromError(o.Carrier, o.Err))
		}
	}
	resp.Tracking = nonNil(resp.Tracking)
	resp.Messages = nonNil(resp.Messages)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "invalid JSON: " + err.Error()},
		})
		return false
	}
	return true
}

type errorResponse struct {
	Error    shipper.Message   `json:"error"`
	Messages []shipper.Message `json:"messages"`
}

// writeError maps a single-carrier failure to a status code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, carrier string, err error, msgs []shipper.Message) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Carrier operation failed",
			zap.String("carrier", carrier),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{
		Error:    shipper.MessageFromError(carrier, err),
		Messages: nonNil(msgs),
	})
}

func statusFor(err error) int {
	var (
		validationErr *shipper.ValidationError
		mappingErr    *shipper.UnsupportedMappingError
		carrierErr    *shipper.CarrierResponseError
		transportErr  *shipper.TransportError
	)
	switch {
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.As(err, &mappingErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &carrierErr):
		return http.StatusBadGateway
	case errors.As(err, &transportErr):
		if transportErr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
