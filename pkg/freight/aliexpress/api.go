package aliexpress

import (
	"context"
)

// APIClient defines the interface for AliExpress Open Platform
// operations. The abstraction allows mock implementations during
// testing and the real signed HTTP gateway client in production.
type APIClient interface {
	// FreightCalculate fetches shipping options for a product.
	FreightCalculate(ctx context.Context, req *FreightCalculateRequest) (*FreightCalculateResponse, error)

	// RefreshToken exchanges a refresh token for a new credential set.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Gateway method names.
const (
	methodFreightCalculate = "aliexpress.logistics.buyer.freight.calculate"
	methodTokenRefresh     = "auth/token/refresh"
)

// FreightCalculateRequest carries the inputs of the buyer freight
// calculation method. The gateway receives them as a JSON-encoded
// sub-object inside the signed query string.
type FreightCalculateRequest struct {
	AccessToken string
	ProductID   string

	// Destination and declared-value fields forwarded in the DTO.
	CountryCode   string // ISO 3166-1 alpha-2, e.g. "BR"
	Price         string // declared unit price, decimal string
	PriceCurrency string // e.g. "USD"
	Quantity      int
	SendCountry   string // origin country, e.g. "CN"
}

// freightDTO is the nested param_aeop_freight_calculate_for_buyer_d_t_o
// JSON document.
type freightDTO struct {
	CountryCode   string `json:"country_code"`
	Price         string `json:"price"`
	ProductID     int64  `json:"product_id"`
	ProductNum    int    `json:"product_num"`
	PriceCurrency string `json:"price_currency"`
	SendCountry   string `json:"send_goods_country_code"`
}

// FreightCalculateResponse is the unwrapped result of a freight
// calculation call.
type FreightCalculateResponse struct {
	RequestID string
	Options   []FreightOption
}

// FreightOption is one logistics service offered for the product.
type FreightOption struct {
	ServiceName  string
	Amount       string // decimal string in Currency
	Currency     string
	DeliveryTime string // "min-max" day range, e.g. "12-20"
	ErrorCode    int    // non-zero marks the option unusable
}

// TokenResponse is the credential set returned by the token refresh
// method.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
	Account      string `json:"account"`
}
