package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vendaria/freight/internal/config"
	"github.com/vendaria/freight/internal/telemetry"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/freight/aliexpress"
	"github.com/vendaria/freight/pkg/freight/correios"
	"github.com/vendaria/freight/pkg/token"
	"go.opentelemetry.io/otel"
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

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initMetrics() *telemetry.Metrics {
	return telemetry.NewMetrics()
}

// initTokenManager wires the durable credential store to the signed
// gateway refresh call. The refresher shares the marketplace API client
// configuration, including the mock switch.
func initTokenManager(cfg *config.Config, logger *otelzap.Logger, metrics *telemetry.Metrics) *token.Manager {
	store := token.NewFileStore(cfg.TokenFile)

	var apiClient aliexpress.APIClient
	if cfg.AliExpressUseMock {
		apiClient = aliexpress.NewMockAPIClient()
	} else {
		apiClient = aliexpress.NewHTTPAPIClient(aliexpress.HTTPAPIClientConfig{
			BaseURL:   cfg.AliExpressBaseURL,
			AppKey:    cfg.AliExpressAppKey,
			AppSecret: cfg.AliExpressAppSecret,
		})
	}
	refresher := aliexpress.NewTokenRefresher(apiClient)

	return token.NewManager(store, refresher, cfg.TokenRefreshMargin, logger).
		WithObserver(metrics)
}

func initAggregator(cfg *config.Config, tokens *token.Manager, logger *otelzap.Logger, metrics *telemetry.Metrics) *freight.Aggregator {
	tracer := otel.Tracer(cfg.ServiceName)

	var marketplace, postal freight.Provider

	if cfg.AliExpressEnabled {
		marketplace = aliexpress.New(aliexpress.Config{
			AppKey:        cfg.AliExpressAppKey,
			AppSecret:     cfg.AliExpressAppSecret,
			BaseURL:       cfg.AliExpressBaseURL,
			PriceCurrency: cfg.AliExpressCurrency,
			UseMock:       cfg.AliExpressUseMock,
		}, tokens, logger, tracer)
	}

	if cfg.CorreiosEnabled {
		postal = correios.New(correios.Config{
			BaseURL:         cfg.CorreiosBaseURL,
			OriginCEP:       cfg.OriginCEP,
			StandardService: cfg.CorreiosStandardService,
			ExpressService:  cfg.CorreiosExpressService,
			UseMock:         cfg.CorreiosUseMock,
		}, logger, tracer)
	}

	classifier := freight.NewClassifier(cfg.NativeIDMinDigits, cfg.NativeIDMaxDigits)

	return freight.NewAggregator(freight.AggregatorConfig{}, classifier, marketplace, postal, logger, metrics)
}
