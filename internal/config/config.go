package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Carrier calls
	CarrierTimeout   time.Duration `envconfig:"CARRIER_TIMEOUT" default:"30s"`
	TransportRetries uint          `envconfig:"TRANSPORT_MAX_ATTEMPTS" default:"3"`

	// Rate cache. An empty REDIS_URL keeps the cache in memory; a zero TTL
	// disables it.
	RateCacheTTL time.Duration `envconfig:"RATE_CACHE_TTL" default:"5m"`
	RedisURL     string        `envconfig:"REDIS_URL"`

	// Canada Post
	CanadaPostEnabled        bool          `envconfig:"CANADAPOST_ENABLED" default:"true"`
	CanadaPostUseMock        bool          `envconfig:"CANADAPOST_USE_MOCK" default:"false"`
	CanadaPostUsername       string        `envconfig:"CANADAPOST_USERNAME"`
	CanadaPostPassword       string        `envconfig:"CANADAPOST_PASSWORD"`
	CanadaPostCustomerNumber string        `envconfig:"CANADAPOST_CUSTOMER_NUMBER"`
	CanadaPostContractID     string        `envconfig:"CANADAPOST_CONTRACT_ID"`
	CanadaPostBaseURL        string        `envconfig:"CANADAPOST_BASE_URL" default:"https://soa-gw.canadapost.ca"`
	CanadaPostLanguage       string        `envconfig:"CANADAPOST_LANGUAGE" default:"en-CA"`
	CanadaPostTimeout        time.Duration `envconfig:"CANADAPOST_TIMEOUT"`

	// Purolator
	PurolatorEnabled       bool          `envconfig:"PUROLATOR_ENABLED" default:"true"`
	PurolatorUseMock       bool          `envconfig:"PUROLATOR_USE_MOCK" default:"false"`
	PurolatorUsername      string        `envconfig:"PUROLATOR_USERNAME"`
	PurolatorPassword      string        `envconfig:"PUROLATOR_PASSWORD"`
	PurolatorAccountNumber string        `envconfig:"PUROLATOR_ACCOUNT_NUMBER"`
	PurolatorUserToken     string        `envconfig:"PUROLATOR_USER_TOKEN"`
	PurolatorBaseURL       string        `envconfig:"PUROLATOR_BASE_URL" default:"https://webservices.purolator.com"`
	PurolatorLanguage      string        `envconfig:"PUROLATOR_LANGUAGE" default:"en"`
	PurolatorTimeout       time.Duration `envconfig:"PUROLATOR_TIMEOUT"`

	// Freightcom
	FreightcomEnabled         bool          `envconfig:"FREIGHTCOM_ENABLED" default:"true"`
	FreightcomUseMock         bool          `envconfig:"FREIGHTCOM_USE_MOCK" default:"false"`
	FreightcomAPIKey          string        `envconfig:"FREIGHTCOM_API_KEY"`
	FreightcomBaseURL         string        `envconfig:"FREIGHTCOM_BASE_URL" default:"https://customer-external-api.ssd-test.freightcom.com"`
	FreightcomPaymentMethodID string        `envconfig:"FREIGHTCOM_PAYMENT_METHOD_ID"`
	FreightcomPollInterval    time.Duration `envconfig:"FREIGHTCOM_POLL_INTERVAL" default:"500ms"`
	FreightcomPollTimeout     time.Duration `envconfig:"FREIGHTCOM_POLL_TIMEOUT" default:"30s"`
	FreightcomTimeout         time.Duration `envconfig:"FREIGHTCOM_TIMEOUT"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	OTELInsecure bool   `envconfig:"OTEL_INSECURE" default:"true"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"carrierbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// CarrierTimeoutFor returns the fan-out timeout of a carrier, falling back
// to CarrierTimeout when the carrier has none.
func (c *Config) CarrierTimeoutFor(carrier string) time.Duration {
	var d time.Duration
	switch carrier {
	case "canadapost":
		d = c.CanadaPostTimeout
	case "purolator":
		d = c.PurolatorTimeout
	case "freightcom":
		d = c.FreightcomTimeout
	}
	if d <= 0 {
		return c.CarrierTimeout
	}
	return d
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("canadapost.enabled", c.CanadaPostEnabled),
		attribute.Bool("purolator.enabled", c.PurolatorEnabled),
		attribute.Bool("freightcom.enabled", c.FreightcomEnabled),
		attribute.Bool("rate_cache.redis", c.RedisURL != ""),
	}
}
