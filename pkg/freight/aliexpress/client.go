// Package aliexpress provides the marketplace freight integration with
// the AliExpress Open Platform.
package aliexpress

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/token"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const providerName = "aliexpress"

// Config holds AliExpress configuration.
type Config struct {
	AppKey        string
	AppSecret     string
	BaseURL       string
	CountryCode   string // destination country for freight DTOs
	PriceCurrency string
	SendCountry   string
	UseMock       bool
}

// TokenSource supplies a valid access token per call. Satisfied by
// *token.Manager.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is the AliExpress quote provider.
// It implements the freight.Provider interface and delegates
// gateway calls to the underlying APIClient (mock or HTTP).
type Client struct {
	config    Config
	apiClient APIClient
	tokens    TokenSource
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new AliExpress client.
// If cfg.UseMock is true, it uses a mock API client for testing.
// Otherwise, it uses the real signed HTTP gateway client.
func New(cfg Config, tokens TokenSource, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:   cfg.BaseURL,
			AppKey:    cfg.AppKey,
			AppSecret: cfg.AppSecret,
			Timeout:   30 * time.Second,
		})
	}

	return &Client{
		config:    applyDefaults(cfg),
		apiClient: apiClient,
		tokens:    tokens,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new AliExpress client with a custom API
// client. This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, tokens TokenSource, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    applyDefaults(cfg),
		apiClient: apiClient,
		tokens:    tokens,
		logger:    logger,
		tracer:    tracer,
	}
}

func applyDefaults(cfg Config) Config {
	if cfg.CountryCode == "" {
		cfg.CountryCode = "BR"
	}
	if cfg.PriceCurrency == "" {
		cfg.PriceCurrency = "USD"
	}
	if cfg.SendCountry == "" {
		cfg.SendCountry = "CN"
	}
	return cfg
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Quote returns marketplace shipping quotes for a native product id.
func (c *Client) Quote(ctx context.Context, req *freight.QuoteRequest) ([]freight.Quote, error) {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Getting AliExpress freight options",
		zap.String("product_id", req.ProductID),
		zap.String("destination_cep", req.DestinationCEP),
	)

	apiReq := &FreightCalculateRequest{
		AccessToken:   accessToken,
		ProductID:     req.ProductID,
		CountryCode:   c.config.CountryCode,
		Price:         req.Package.DeclaredPrice.String(),
		PriceCurrency: c.config.PriceCurrency,
		Quantity:      req.Package.Quantity,
		SendCountry:   c.config.SendCountry,
	}

	apiResp, err := c.apiClient.FreightCalculate(ctx, apiReq)
	if err != nil {
		c.logger.Error("AliExpress API error", zap.Error(err))
		return nil, err
	}

	return optionsToQuotes(apiResp.Options), nil
}

// ============================================================================
// Conversion helpers
// ============================================================================

func optionsToQuotes(options []FreightOption) []freight.Quote {
	quotes := make([]freight.Quote, 0, len(options))
	for _, opt := range options {
		// Options flagged with a per-item error code are offered by the
		// gateway but not purchasable; skip them.
		if opt.ErrorCode != 0 {
			continue
		}
		price, err := decimal.NewFromString(opt.Amount)
		if err != nil || price.IsNegative() {
			continue
		}
		quotes = append(quotes, freight.Quote{
			Carrier:       providerName,
			ServiceCode:   opt.ServiceName,
			ServiceName:   serviceDisplayName(opt.ServiceName),
			Price:         price,
			EstimatedDays: parseDeliveryDays(opt.DeliveryTime),
			Source:        freight.SourceMarketplace,
		})
	}
	return quotes
}

// parseDeliveryDays extracts the upper bound of a "min-max" day range.
// A bare number is taken as-is; anything unparseable maps to zero.
func parseDeliveryDays(deliveryTime string) int {
	s := strings.TrimSpace(deliveryTime)
	if i := strings.LastIndex(s, "-"); i >= 0 {
		s = s[i+1:]
	}
	days, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || days < 0 {
		return 0
	}
	return days
}

func serviceDisplayName(code string) string {
	switch code {
	case "CAINIAO_STANDARD", "CAINIAO_FULFILLMENT_STD":
		return "AliExpress Standard Shipping"
	case "CAINIAO_ECONOMY", "CAINIAO_SUPER_ECONOMY":
		return "AliExpress Saver Shipping"
	case "ALIEXPRESS_PREMIUM_SHIPPING":
		return "AliExpress Premium Shipping"
	case "EMS", "E_EMS":
		return "EMS"
	default:
		return code
	}
}

// ============================================================================
// Token refresher
// ============================================================================

// TokenRefresher adapts the gateway token refresh call to the
// token.Refresher interface consumed by the lifecycle manager.
type TokenRefresher struct {
	apiClient APIClient
	now       func() time.Time
}

// NewTokenRefresher creates a refresher over a gateway API client.
func NewTokenRefresher(apiClient APIClient) *TokenRefresher {
	return &TokenRefresher{apiClient: apiClient, now: time.Now}
}

// Refresh exchanges the refresh token and derives the absolute expiry
// from the issue instant plus expires_in.
func (r *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (*token.Credential, error) {
	resp, err := r.apiClient.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	cred := &token.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    r.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Account:      resp.Account,
	}
	// Some refresh responses omit the rotated refresh token; keep the
	// old one so the next refresh still has something to present.
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

var _ token.Refresher = (*TokenRefresher)(nil)
var _ freight.Provider = (*Client)(nil)
