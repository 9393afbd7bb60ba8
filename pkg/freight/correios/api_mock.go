package correios

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vendaria/freight/pkg/freight"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalcPrecoPrazo func(ctx context.Context, req *PriceDeadlineRequest) (*PriceDeadlineResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CalcPrecoPrazo returns mock price/deadline nodes for the requested
// service codes.
func (m *MockAPIClient) CalcPrecoPrazo(ctx context.Context, req *PriceDeadlineRequest) (*PriceDeadlineResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"simulated calculator error")
	}

	if m.OnCalcPrecoPrazo != nil {
		return m.OnCalcPrecoPrazo(ctx, req)
	}

	services := make([]ServiceQuote, 0, len(req.ServiceCodes))
	for _, code := range req.ServiceCodes {
		switch code {
		case ServiceSEDEX:
			services = append(services, ServiceQuote{
				Code:         code,
				Price:        decimal.RequireFromString("45.10"),
				DeadlineDays: 3,
				ErrorCode:    "0",
			})
		default:
			services = append(services, ServiceQuote{
				Code:         code,
				Price:        decimal.RequireFromString("22.80"),
				DeadlineDays: 8,
				ErrorCode:    "0",
			})
		}
	}

	return &PriceDeadlineResponse{Services: services}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
