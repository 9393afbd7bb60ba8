// Package mock provides a mock quote provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vendaria/freight/pkg/freight"
)

// Provider is a mock freight provider for testing. It records every
// call and can be steered with the Quotes/Err fields or the OnQuote hook.
type Provider struct {
	ProviderName string

	Quotes  []freight.Quote
	Err     error
	OnQuote func(ctx context.Context, req *freight.QuoteRequest) ([]freight.Quote, error)

	mu    sync.Mutex
	calls int
}

// New creates a new mock provider returning two canned quotes.
func New(name string, source freight.Source) *Provider {
	return &Provider{
		ProviderName: name,
		Quotes: []freight.Quote{
			{
				Carrier:       name,
				ServiceCode:   "STANDARD",
				ServiceName:   name + " Standard",
				Price:         decimal.RequireFromString("15.82"),
				EstimatedDays: 5,
				Source:        source,
			},
			{
				Carrier:       name,
				ServiceCode:   "EXPRESS",
				ServiceName:   name + " Express",
				Price:         decimal.RequireFromString("29.95"),
				EstimatedDays: 2,
				Source:        source,
			},
		},
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.ProviderName
}

// Quote returns the configured quotes or error.
func (p *Provider) Quote(ctx context.Context, req *freight.QuoteRequest) ([]freight.Quote, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.OnQuote != nil {
		return p.OnQuote(ctx, req)
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Quotes, nil
}

// Calls returns how many times Quote was invoked.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var _ freight.Provider = (*Provider)(nil)
