package freight

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Source identifies which provider path produced a quote.
type Source string

const (
	SourceMarketplace    Source = "marketplace"
	SourcePostalFallback Source = "postal_fallback"
)

// Classification is the result of inspecting a raw product reference.
type Classification string

const (
	ClassNative    Classification = "native"
	ClassForeign   Classification = "foreign"
	ClassMalformed Classification = "malformed"
)

// FulfillmentMode describes how an order sourced through a given quote
// path would be fulfilled.
type FulfillmentMode string

const (
	ModeDropship  FulfillmentMode = "dropship"
	ModeWarehouse FulfillmentMode = "warehouse"
	ModeNone      FulfillmentMode = "none"
)

// Package represents the parcel attributes supplied by the caller.
// Zero values are acceptable; providers substitute their own minimums.
type Package struct {
	WeightKG      float64
	LengthCM      float64
	WidthCM       float64
	HeightCM      float64
	DeclaredPrice decimal.Decimal
	Quantity      int
}

// QuoteRequest is the request for shipping quotes.
type QuoteRequest struct {
	ProductID      string
	DestinationCEP string
	Package        Package
}

// Quote is a normalized shipping quote from any provider.
type Quote struct {
	Carrier       string
	ServiceCode   string
	ServiceName   string
	Price         decimal.Decimal
	EstimatedDays int
	Source        Source
}

// Fulfillment annotates a quote result with the path that produced it.
type Fulfillment struct {
	Source Source
	Mode   FulfillmentMode
	Notes  []string
}

// QuoteResult is what the aggregator hands back to the route layer.
// Quotes is empty (never nil) on total failure; Fulfillment.Notes carry
// the diagnostic context.
type QuoteResult struct {
	Quotes      []Quote
	Fulfillment Fulfillment
}

// MergeQuotes deduplicates identical (carrier, service name) pairs
// keeping the lower price, then orders by price ascending with
// estimated days as the tiebreaker.
func MergeQuotes(lists ...[]Quote) []Quote {
	seen := make(map[string]int)
	merged := make([]Quote, 0)

	for _, list := range lists {
		for _, q := range list {
			key := q.Carrier + "|" + q.ServiceName
			if i, ok := seen[key]; ok {
				if q.Price.LessThan(merged[i].Price) {
					merged[i] = q
				}
				continue
			}
			seen[key] = len(merged)
			merged = append(merged, q)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if c := merged[i].Price.Cmp(merged[j].Price); c != 0 {
			return c < 0
		}
		return merged[i].EstimatedDays < merged[j].EstimatedDays
	})

	return merged
}
