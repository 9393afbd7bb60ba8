package aliexpress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/freight/aliexpress"
	"go.uber.org/zap"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(mockAPI *aliexpress.MockAPIClient) *aliexpress.Client {
	logger := otelzap.New(zap.NewNop())
	return aliexpress.NewWithAPIClient(
		aliexpress.Config{},
		mockAPI,
		staticTokens{token: "test-access-token"},
		logger,
		nil,
	)
}

func quoteRequest() *freight.QuoteRequest {
	return &freight.QuoteRequest{
		ProductID:      "1005007720304124",
		DestinationCEP: "01001000",
		Package: freight.Package{
			WeightKG:      0.3,
			DeclaredPrice: decimal.RequireFromString("50.00"),
			Quantity:      1,
		},
	}
}

func TestClient_Quote_Success(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	client := newTestClient(mockAPI)

	quotes, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "aliexpress", quotes[0].Carrier)
	assert.Equal(t, "AliExpress Standard Shipping", quotes[0].ServiceName)
	assert.True(t, quotes[0].Price.Equal(decimal.RequireFromString("18.90")))
	assert.Equal(t, 12, quotes[0].EstimatedDays)
	assert.Equal(t, freight.SourceMarketplace, quotes[0].Source)

	assert.Equal(t, "AliExpress Premium Shipping", quotes[1].ServiceName)
	assert.Equal(t, 5, quotes[1].EstimatedDays)
}

func TestClient_Quote_PassesAccessToken(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()

	var gotToken string
	mockAPI.OnFreightCalculate = func(ctx context.Context, req *aliexpress.FreightCalculateRequest) (*aliexpress.FreightCalculateResponse, error) {
		gotToken = req.AccessToken
		return &aliexpress.FreightCalculateResponse{}, nil
	}

	client := newTestClient(mockAPI)
	_, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	assert.Equal(t, "test-access-token", gotToken)
}

func TestClient_Quote_TokenErrorShortCircuits(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	called := false
	mockAPI.OnFreightCalculate = func(ctx context.Context, req *aliexpress.FreightCalculateRequest) (*aliexpress.FreightCalculateResponse, error) {
		called = true
		return &aliexpress.FreightCalculateResponse{}, nil
	}

	logger := otelzap.New(zap.NewNop())
	tokenErr := errors.New("no credential available")
	client := aliexpress.NewWithAPIClient(aliexpress.Config{}, mockAPI,
		staticTokens{err: tokenErr}, logger, nil)

	_, err := client.Quote(context.Background(), quoteRequest())

	assert.ErrorIs(t, err, tokenErr)
	assert.False(t, called)
}

func TestClient_Quote_APIError(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	client := newTestClient(mockAPI)

	_, err := client.Quote(context.Background(), quoteRequest())

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnavailable, provErr.Kind)
}

func TestClient_Quote_SkipsBadOptions(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	mockAPI.OnFreightCalculate = func(ctx context.Context, req *aliexpress.FreightCalculateRequest) (*aliexpress.FreightCalculateResponse, error) {
		return &aliexpress.FreightCalculateResponse{
			Options: []aliexpress.FreightOption{
				{ServiceName: "CAINIAO_STANDARD", Amount: "18.90", DeliveryTime: "7-12"},
				{ServiceName: "EMS", Amount: "55.00", DeliveryTime: "3-6", ErrorCode: 102},
				{ServiceName: "CAINIAO_ECONOMY", Amount: "not-a-price", DeliveryTime: "10-20"},
				{ServiceName: "CAINIAO_SUPER_ECONOMY", Amount: "-1.00", DeliveryTime: "15-30"},
			},
		}, nil
	}

	client := newTestClient(mockAPI)
	quotes, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "CAINIAO_STANDARD", quotes[0].ServiceCode)
}

func TestClient_Quote_DeliveryTimeVariants(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	mockAPI.OnFreightCalculate = func(ctx context.Context, req *aliexpress.FreightCalculateRequest) (*aliexpress.FreightCalculateResponse, error) {
		return &aliexpress.FreightCalculateResponse{
			Options: []aliexpress.FreightOption{
				{ServiceName: "RANGE", Amount: "10.00", DeliveryTime: "7-12"},
				{ServiceName: "BARE", Amount: "11.00", DeliveryTime: "5"},
				{ServiceName: "GARBAGE", Amount: "12.00", DeliveryTime: "soon"},
			},
		}, nil
	}

	client := newTestClient(mockAPI)
	quotes, err := client.Quote(context.Background(), quoteRequest())

	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, 12, quotes[0].EstimatedDays)
	assert.Equal(t, 5, quotes[1].EstimatedDays)
	assert.Equal(t, 0, quotes[2].EstimatedDays)
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(aliexpress.NewMockAPIClient())
	assert.Equal(t, "aliexpress", client.Name())
}

func TestTokenRefresher_Refresh(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	refresher := aliexpress.NewTokenRefresher(mockAPI)

	before := time.Now()
	cred, err := refresher.Refresh(context.Background(), "old-refresh-token")

	require.NoError(t, err)
	assert.NotEmpty(t, cred.AccessToken)
	assert.NotEmpty(t, cred.RefreshToken)
	assert.Equal(t, "mock-seller", cred.Account)

	// Expiry is absolute: issue instant plus expires_in
	assert.WithinDuration(t, before.Add(86400*time.Second), cred.ExpiresAt, 5*time.Second)
}

func TestTokenRefresher_KeepsOldRefreshToken(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	mockAPI.OnRefreshToken = func(ctx context.Context, refreshToken string) (*aliexpress.TokenResponse, error) {
		return &aliexpress.TokenResponse{
			AccessToken: "fresh-access",
			ExpiresIn:   3600,
		}, nil
	}

	refresher := aliexpress.NewTokenRefresher(mockAPI)
	cred, err := refresher.Refresh(context.Background(), "old-refresh-token")

	require.NoError(t, err)
	assert.Equal(t, "old-refresh-token", cred.RefreshToken)
}

func TestTokenRefresher_Error(t *testing.T) {
	mockAPI := aliexpress.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	refresher := aliexpress.NewTokenRefresher(mockAPI)
	_, err := refresher.Refresh(context.Background(), "old-refresh-token")

	assert.Error(t, err)
}
