package correios

import (
	"context"

	"github.com/shopspring/decimal"
)

// APIClient defines the interface for the Correios price/deadline
// calculator. The abstraction allows mock implementations during
// testing and the real XML-over-HTTP implementation in production.
type APIClient interface {
	// CalcPrecoPrazo fetches price and deadline for a set of service
	// codes. One service node per requested code; nodes the remote
	// rejected carry a non-zero error code instead of failing the call.
	CalcPrecoPrazo(ctx context.Context, req *PriceDeadlineRequest) (*PriceDeadlineResponse, error)
}

// Correios service codes for the two tiers the storefront offers.
const (
	ServicePAC   = "04510" // standard
	ServiceSEDEX = "04014" // express
)

// Package format codes expected by the calculator.
const (
	FormatBox      = 1
	FormatRoll     = 2
	FormatEnvelope = 3
)

// PriceDeadlineRequest carries the calculator inputs.
type PriceDeadlineRequest struct {
	ServiceCodes   []string
	OriginCEP      string
	DestinationCEP string
	WeightKG       float64
	FormatCode     int
	LengthCM       float64
	HeightCM       float64
	WidthCM        float64
	DiameterCM     float64
	DeclaredValue  decimal.Decimal
	OwnHand        bool
	ReceiptNotice  bool
}

// ServiceQuote is one parsed service node. ErrorCode "0" marks a usable
// quote; anything else excludes the node.
type ServiceQuote struct {
	Code         string
	Price        decimal.Decimal
	DeadlineDays int
	ErrorCode    string
	ErrorMessage string
}

// PriceDeadlineResponse aggregates the nodes of every requested service.
type PriceDeadlineResponse struct {
	Services []ServiceQuote
}
