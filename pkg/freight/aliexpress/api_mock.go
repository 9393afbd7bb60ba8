package aliexpress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vendaria/freight/pkg/freight"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnFreightCalculate func(ctx context.Context, req *FreightCalculateRequest) (*FreightCalculateResponse, error)
	OnRefreshToken     func(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// FreightCalculate returns mock shipping options.
func (m *MockAPIClient) FreightCalculate(ctx context.Context, req *FreightCalculateRequest) (*FreightCalculateResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"simulated gateway error")
	}

	if m.OnFreightCalculate != nil {
		return m.OnFreightCalculate(ctx, req)
	}

	return &FreightCalculateResponse{
		RequestID: "ae-req-" + uuid.New().String()[:8],
		Options: []FreightOption{
			{
				ServiceName:  "CAINIAO_STANDARD",
				Amount:       "18.90",
				Currency:     "BRL",
				DeliveryTime: "7-12",
				ErrorCode:    0,
			},
			{
				ServiceName:  "ALIEXPRESS_PREMIUM_SHIPPING",
				Amount:       "32.00",
				Currency:     "BRL",
				DeliveryTime: "5-5",
				ErrorCode:    0,
			},
		},
	}, nil
}

// RefreshToken returns a mock credential set.
func (m *MockAPIClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"simulated gateway error")
	}

	if m.OnRefreshToken != nil {
		return m.OnRefreshToken(ctx, refreshToken)
	}

	return &TokenResponse{
		AccessToken:  "mock-access-" + uuid.New().String()[:8],
		RefreshToken: "mock-refresh-" + uuid.New().String()[:8],
		ExpiresIn:    86400,
		Account:      "mock-seller",
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
