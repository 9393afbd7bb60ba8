// Package correios provides the postal fallback integration with the
// Correios price/deadline calculator.
package correios

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vendaria/freight/pkg/freight"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerName = "correios"

// Calculator minimums. Parcels below these are quoted at the minimum,
// which doubles as the best-effort default for callers that send no
// package data at all.
const (
	minWeightKG = 0.3
	minLengthCM = 16
	minWidthCM  = 11
	minHeightCM = 2
)

// Config holds Correios configuration.
type Config struct {
	BaseURL         string
	OriginCEP       string // fulfillment warehouse postal code
	StandardService string
	ExpressService  string
	UseMock         bool
}

// Client is the Correios quote provider.
// It implements the freight.Provider interface and delegates calls to
// the underlying APIClient (mock or HTTP). No token is required; the
// calculator is an open endpoint.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Correios client.
// If cfg.UseMock is true, it uses a mock API client for testing.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			Timeout: 30 * time.Second,
		})
	}

	return &Client{
		config:    applyDefaults(cfg),
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Correios client with a custom API
// client. This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    applyDefaults(cfg),
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

func applyDefaults(cfg Config) Config {
	if cfg.StandardService == "" {
		cfg.StandardService = ServicePAC
	}
	if cfg.ExpressService == "" {
		cfg.ExpressService = ServiceSEDEX
	}
	return cfg
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Quote returns postal shipping quotes from the warehouse origin to the
// destination CEP. Service nodes the calculator rejected are dropped;
// the call fails only when every node errored.
func (c *Client) Quote(ctx context.Context, req *freight.QuoteRequest) ([]freight.Quote, error) {
	c.logger.Info("Getting Correios quotes",
		zap.String("origin_cep", c.config.OriginCEP),
		zap.String("destination_cep", req.DestinationCEP),
	)

	apiReq := &PriceDeadlineRequest{
		ServiceCodes:   []string{c.config.StandardService, c.config.ExpressService},
		OriginCEP:      c.config.OriginCEP,
		DestinationCEP: req.DestinationCEP,
		WeightKG:       atLeast(req.Package.WeightKG, minWeightKG),
		FormatCode:     FormatBox,
		LengthCM:       atLeast(req.Package.LengthCM, minLengthCM),
		WidthCM:        atLeast(req.Package.WidthCM, minWidthCM),
		HeightCM:       atLeast(req.Package.HeightCM, minHeightCM),
		DeclaredValue:  req.Package.DeclaredPrice,
	}

	apiResp, err := c.apiClient.CalcPrecoPrazo(ctx, apiReq)
	if err != nil {
		c.logger.Error("Correios API error", zap.Error(err))
		return nil, err
	}

	quotes := make([]freight.Quote, 0, len(apiResp.Services))
	var firstError *ServiceQuote
	for i, svc := range apiResp.Services {
		if svc.ErrorCode != "0" {
			if firstError == nil {
				firstError = &apiResp.Services[i]
			}
			c.logger.Warn("Correios service node rejected",
				zap.String("service_code", svc.Code),
				zap.String("error_code", svc.ErrorCode),
			)
			continue
		}
		quotes = append(quotes, freight.Quote{
			Carrier:       providerName,
			ServiceCode:   svc.Code,
			ServiceName:   c.serviceDisplayName(svc.Code),
			Price:         svc.Price,
			EstimatedDays: svc.DeadlineDays,
			Source:        freight.SourcePostalFallback,
		})
	}

	if len(quotes) == 0 {
		message := "all service nodes rejected"
		if firstError != nil && firstError.ErrorMessage != "" {
			message = firstError.ErrorMessage
		}
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable, message)
	}

	return quotes, nil
}

func (c *Client) serviceDisplayName(code string) string {
	switch code {
	case c.config.ExpressService:
		return "SEDEX"
	case c.config.StandardService:
		return "PAC"
	default:
		return "Correios " + code
	}
}

func atLeast(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

var _ freight.Provider = (*Client)(nil)
