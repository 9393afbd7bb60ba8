// Package freight provides an abstraction layer for shipping-quote providers.
package freight

import (
	"context"
)

// Provider defines the interface that all quote providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "aliexpress", "correios").
	Name() string

	// Quote returns shipping quotes for a product/package/destination.
	Quote(ctx context.Context, req *QuoteRequest) ([]Quote, error)
}
