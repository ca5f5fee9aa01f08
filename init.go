package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/carrierbridge/internal/config"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/cache"
	"github.com/tournevent/carrierbridge/pkg/shipper/canadapost"
	"github.com/tournevent/carrierbridge/pkg/shipper/freightcom"
	"github.com/tournevent/carrierbridge/pkg/shipper/purolator"
	"github.com/tournevent/carrierbridge/pkg/shipper/units"
)

// catalog holds the vocabulary of every supported carrier.
var catalog = units.NewCatalog(
	canadapost.Vocabulary,
	purolator.Vocabulary,
	freightcom.Vocabulary,
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, telemetry.TracingConfig{
		Endpoint:   cfg.OTELEndpoint,
		Insecure:   cfg.OTELInsecure,
		Attributes: cfg.Attributes(),
	})
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics(nil)
}

// initRateCache returns the Redis cache when REDIS_URL is set and reachable,
// the in-memory cache otherwise, and nil when caching is disabled.
func initRateCache(ctx context.Context, cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) (shipper.RateCache, func()) {
	noop := func() {}
	if cfg.RateCacheTTL <= 0 {
		return nil, noop
	}
	if cfg.RedisURL != "" {
		rc, client, err := cache.NewRedisFromURL(ctx, cfg.RedisURL, cfg.RateCacheTTL, logger, cache.WithObserver(metrics))
		if err == nil {
			return rc, func() { _ = client.Close() }
		}
		logger.Warn("Redis unavailable, caching rates in memory", zap.Error(err))
	}
	return cache.NewMemory(cfg.RateCacheTTL, cache.WithObserver(metrics)), noop
}

func enabledCarriers(cfg *config.Config) []string {
	var names []string
	if cfg.CanadaPostEnabled {
		names = append(names, canadapost.Vocabulary.Carrier)
	}
	if cfg.PurolatorEnabled {
		names = append(names, purolator.Vocabulary.Carrier)
	}
	if cfg.FreightcomEnabled {
		names = append(names, freightcom.Vocabulary.Carrier)
	}
	return names
}

func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics, rateCache shipper.RateCache) *shipper.Registry {
	opts := []shipper.Option{
		shipper.WithLogger(logger),
		shipper.WithObserver(metrics),
		shipper.WithDefaultTimeout(cfg.CarrierTimeout),
	}
	if rateCache != nil {
		opts = append(opts, shipper.WithRateCache(rateCache))
	}
	registry := shipper.NewRegistry(opts...)

	if cfg.CanadaPostEnabled {
		cp := canadapost.New(canadapost.Config{
			Username:       cfg.CanadaPostUsername,
			Password:       cfg.CanadaPostPassword,
			CustomerNumber: cfg.CanadaPostCustomerNumber,
			ContractID:     cfg.CanadaPostContractID,
			BaseURL:        cfg.CanadaPostBaseURL,
			Language:       cfg.CanadaPostLanguage,
			UseMock:        cfg.CanadaPostUseMock,
			MaxAttempts:    cfg.TransportRetries,
			Observer:       metrics,
		}, logger)
		registry.Register(cp, shipper.WithTimeout(cfg.CarrierTimeoutFor(cp.Name())))
	}

	if cfg.PurolatorEnabled {
		puro := purolator.New(purolator.Config{
			Username:      cfg.PurolatorUsername,
			Password:      cfg.PurolatorPassword,
			AccountNumber: cfg.PurolatorAccountNumber,
			UserToken:     cfg.PurolatorUserToken,
			BaseURL:       cfg.PurolatorBaseURL,
			Language:      cfg.PurolatorLanguage,
			UseMock:       cfg.PurolatorUseMock,
			MaxAttempts:   cfg.TransportRetries,
			Observer:      metrics,
		}, logger)
		registry.Register(puro, shipper.WithTimeout(cfg.CarrierTimeoutFor(puro.Name())))
	}

	if cfg.FreightcomEnabled {
		fc := freightcom.New(freightcom.Config{
			APIKey:          cfg.FreightcomAPIKey,
			BaseURL:         cfg.FreightcomBaseURL,
			PaymentMethodID: cfg.FreightcomPaymentMethodID,
			UseMock:         cfg.FreightcomUseMock,
			MaxAttempts:     cfg.TransportRetries,
			Observer:        metrics,
			PollInterval:    cfg.FreightcomPollInterval,
			PollTimeout:     cfg.FreightcomPollTimeout,
		}, logger)
		registry.Register(fc, shipper.WithTimeout(cfg.CarrierTimeoutFor(fc.Name())))
	}

	return registry
}
