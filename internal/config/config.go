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

	// AliExpress Open Platform
	AliExpressAppKey    string `envconfig:"ALIEXPRESS_APP_KEY"`
	AliExpressAppSecret string `envconfig:"ALIEXPRESS_APP_SECRET"`
	AliExpressBaseURL   string `envconfig:"ALIEXPRESS_BASE_URL" default:"https://api-sg.aliexpress.com/sync"`
	AliExpressCurrency  string `envconfig:"ALIEXPRESS_CURRENCY" default:"USD"`
	AliExpressEnabled   bool   `envconfig:"ALIEXPRESS_ENABLED" default:"true"`
	AliExpressUseMock   bool   `envconfig:"ALIEXPRESS_USE_MOCK" default:"false"`

	// Token lifecycle
	TokenFile          string        `envconfig:"TOKEN_FILE" default:"data/aliexpress-credential.json"`
	TokenRefreshMargin time.Duration `envconfig:"TOKEN_REFRESH_MARGIN" default:"5m"`

	// Correios
	CorreiosBaseURL         string `envconfig:"CORREIOS_BASE_URL" default:"http://ws.correios.com.br/calculador/CalcPrecoPrazo.aspx"`
	CorreiosStandardService string `envconfig:"CORREIOS_STANDARD_SERVICE" default:"04510"`
	CorreiosExpressService  string `envconfig:"CORREIOS_EXPRESS_SERVICE" default:"04014"`
	CorreiosEnabled         bool   `envconfig:"CORREIOS_ENABLED" default:"true"`
	CorreiosUseMock         bool   `envconfig:"CORREIOS_USE_MOCK" default:"false"`

	// Fulfillment
	OriginCEP string `envconfig:"ORIGIN_CEP" default:"01153000"`

	// Product id classification
	NativeIDMinDigits int `envconfig:"NATIVE_ID_MIN_DIGITS" default:"6"`
	NativeIDMaxDigits int `envconfig:"NATIVE_ID_MAX_DIGITS" default:"20"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.observability.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"vendaria-freight"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("aliexpress.enabled", c.AliExpressEnabled),
		attribute.Bool("correios.enabled", c.CorreiosEnabled),
	}
}
