package shipper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Observer receives the result of every carrier call made through a Registry.
type Observer interface {
	ObserveCarrierCall(operation, carrier string, duration time.Duration, err error)
}

// RateCache stores successful rate lists per carrier and request.
type RateCache interface {
	Lookup(ctx context.Context, carrier string, req *RateRequest) ([]RateDetails, bool)
	Store(ctx context.Context, carrier string, req *RateRequest, rates []RateDetails)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *otelzap.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithObserver records every carrier call.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithRateCache serves repeated rate requests from c.
func WithRateCache(c RateCache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithDefaultTimeout sets the per-carrier timeout used when Register is
// called without WithTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Registry) { r.defaultTimeout = d }
}

// RegisterOption configures a single registration.
type RegisterOption func(*registration)

// WithTimeout bounds every call made to the registered carrier.
func WithTimeout(d time.Duration) RegisterOption {
	return func(reg *registration) { reg.timeout = d }
}

type registration struct {
	shipper Shipper
	timeout time.Duration
}

// Registry manages registered shipping carriers and fans requests out to them.
type Registry struct {
	shippers       map[string]registration
	order          []string
	defaultTimeout time.Duration
	logger         *otelzap.Logger
	observer       Observer
	cache          RateCache
	mu             sync.RWMutex
}

// NewRegistry creates a new shipper registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		shippers:       make(map[string]registration),
		defaultTimeout: DefaultTimeout,
		logger:         otelzap.New(zap.NewNop()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a shipper to the registry. Registering a name again
// replaces the previous shipper but keeps its position.
func (r *Registry) Register(s Shipper, opts ...RegisterOption) {
	reg := registration{shipper: s, timeout: r.defaultTimeout}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shippers[s.Name()]; !ok {
		r.order = append(r.order, s.Name())
	}
	r.shippers[s.Name()] = reg
}

// Get returns a shipper by name.
func (r *Registry) Get(name string) (Shipper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if reg, ok := r.shippers[name]; ok {
		return reg.shipper, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered shippers in registration order.
func (r *Registry) All() []Shipper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Shipper, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.shippers[name].shipper)
	}
	return result
}

// Names returns the names of all registered shippers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered shippers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shippers)
}

// Targets resolves carrier names into fan-out targets. An empty list selects
// every registered carrier. Unknown names yield a target with a nil Shipper.
func (r *Registry) Targets(carriers ...string) []Target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(carriers) == 0 {
		carriers = r.order
	}
	targets := make([]Target, len(carriers))
	for i, name := range carriers {
		targets[i] = Target{Name: name}
		if reg, ok := r.shippers[name]; ok {
			targets[i].Shipper = reg.shipper
			targets[i].Timeout = reg.timeout
		}
	}
	return targets
}

// FetchRates fetches rates from the given carriers (all when empty) in
// parallel. Outcomes are returned in request order.
func (r *Registry) FetchRates(ctx context.Context, req *RateRequest, carriers ...string) []RateOutcome {
	outcomes := FanOut(ctx, "rates", r.Targets(carriers...), func(ctx context.Context, s Shipper) ([]RateDetails, []Message, error) {
		if r.cache != nil {
			if rates, ok := r.cache.Lookup(ctx, s.Name(), req); ok {
				r.logger.Ctx(ctx).Debug("Serving cached rates", zap.String("carrier", s.Name()))
				return rates, nil, nil
			}
		}
		rates, msgs, err := s.FetchRates(ctx, req)
		if err == nil && len(rates) > 0 && r.cache != nil {
			r.cache.Store(ctx, s.Name(), req, rates)
		}
		return rates, msgs, err
	})
	observe(ctx, r, "rates", outcomes)
	return outcomes
}

// FetchTracking fetches tracking details from the given carriers in parallel.
func (r *Registry) FetchTracking(ctx context.Context, req *TrackingRequest, carriers ...string) []TrackingOutcome {
	outcomes := FanOut(ctx, "tracking", r.Targets(carriers...), func(ctx context.Context, s Shipper) ([]TrackingDetails, []Message, error) {
		return s.GetTracking(ctx, req)
	})
	observe(ctx, r, "tracking", outcomes)
	return outcomes
}

// CreateShipment creates a shipment with a single carrier under its
// registered timeout.
func (r *Registry) CreateShipment(ctx context.Context, carrier string, req *ShipmentRequest) (*ShipmentDetails, []Message, error) {
	outcomes := FanOut(ctx, "shipment", r.Targets(carrier), func(ctx context.Context, s Shipper) (*ShipmentDetails, []Message, error) {
		return s.CreateShipment(ctx, req)
	})
	observe(ctx, r, "shipment", outcomes)
	o := outcomes[0]
	return o.Result, o.Messages, o.Err
}

// CancelShipment voids a shipment with a single carrier.
func (r *Registry) CancelShipment(ctx context.Context, carrier string, req *CancelRequest) (*ConfirmationDetails, []Message, error) {
	outcomes := FanOut(ctx, "cancel", r.Targets(carrier), func(ctx context.Context, s Shipper) (*ConfirmationDetails, []Message, error) {
		return s.CancelShipment(ctx, req)
	})
	observe(ctx, r, "cancel", outcomes)
	o := outcomes[0]
	return o.Result, o.Messages, o.Err
}

func observe[T any](ctx context.Context, r *Registry, operation string, outcomes []Outcome[T]) {
	for _, o := range outcomes {
		if o.Err != nil {
			r.logger.Ctx(ctx).Warn("Carrier call failed",
				zap.String("operation", operation),
				zap.String("carrier", o.Carrier),
				zap.Duration("duration", o.Duration),
				zap.Error(o.Err),
			)
		}
		if r.observer != nil {
			r.observer.ObserveCarrierCall(operation, o.Carrier, o.Duration, o.Err)
		}
	}
}
