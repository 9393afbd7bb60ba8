package aliexpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vendaria/freight/pkg/freight"
)

// HTTPAPIClient is the production implementation of APIClient using the
// signed open-platform HTTP gateway.
type HTTPAPIClient struct {
	baseURL    string
	appKey     string
	appSecret  string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Timeout   time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL:   cfg.BaseURL,
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// JSON envelope structures for the gateway
// ============================================================================

// freightEnvelope wraps the freight calculation result. The gateway
// keys the body by a fixed response-wrapper field; an error_response
// body replaces it on application-level failures.
type freightEnvelope struct {
	Response      *freightResult `json:"aliexpress_logistics_buyer_freight_calculate_response"`
	ErrorResponse *gatewayError  `json:"error_response"`
}

type freightResult struct {
	RequestID string        `json:"request_id"`
	Result    freightNested `json:"result"`
}

type freightNested struct {
	Success    bool       `json:"success"`
	ErrorDesc  string     `json:"error_desc"`
	OptionList optionList `json:"aeop_freight_calculate_result_for_buyer_d_t_o_list"`
}

type optionList struct {
	Options []wireOption `json:"aeop_freight_calculate_result_for_buyer_dto"`
}

type wireOption struct {
	ErrorCode    int         `json:"error_code"`
	ServiceName  string      `json:"service_name"`
	DeliveryTime string      `json:"estimated_delivery_time"`
	Freight      wireFreight `json:"freight"`
}

type wireFreight struct {
	Amount       string `json:"amount"`
	Cent         string `json:"cent"`
	CurrencyCode string `json:"currency_code"`
}

type gatewayError struct {
	Code    int    `json:"code"`
	Msg     string `json:"msg"`
	SubMsg  string `json:"sub_msg"`
	SubCode string `json:"sub_code"`
}

type tokenEnvelope struct {
	TokenResponse
	ErrorResponse *gatewayError `json:"error_response"`
}

// ============================================================================
// API Implementation
// ============================================================================

// FreightCalculate fetches shipping options via the signed gateway call.
func (c *HTTPAPIClient) FreightCalculate(ctx context.Context, req *FreightCalculateRequest) (*FreightCalculateResponse, error) {
	productID, err := strconv.ParseInt(req.ProductID, 10, 64)
	if err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindValidation,
			"product id is not marketplace-numeric").WithCause(err)
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	dto := freightDTO{
		CountryCode:   req.CountryCode,
		Price:         req.Price,
		ProductID:     productID,
		ProductNum:    quantity,
		PriceCurrency: req.PriceCurrency,
		SendCountry:   req.SendCountry,
	}
	dtoJSON, err := json.Marshal(dto)
	if err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindValidation,
			"encoding freight parameters").WithCause(err)
	}

	params := c.systemParams(methodFreightCalculate)
	params["access_token"] = req.AccessToken
	params["param_aeop_freight_calculate_for_buyer_d_t_o"] = string(dtoJSON)
	params["sign"] = Sign(params, c.appSecret)

	body, err := c.doGet(ctx, params)
	if err != nil {
		return nil, err
	}

	var envelope freightEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnexpectedSchema,
			"response body is not a gateway envelope").WithCause(err)
	}
	if envelope.ErrorResponse != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			fmt.Sprintf("gateway error %d: %s", envelope.ErrorResponse.Code, envelope.ErrorResponse.Msg))
	}
	if envelope.Response == nil {
		// The expected wrapper key is absent; treat as an
		// application-level error rather than crashing on the shape.
		return nil, freight.NewProviderError(providerName, freight.KindUnexpectedSchema,
			"response wrapper key missing")
	}
	if !envelope.Response.Result.Success {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"freight calculation unsuccessful: "+envelope.Response.Result.ErrorDesc)
	}

	options := make([]FreightOption, 0, len(envelope.Response.Result.OptionList.Options))
	for _, opt := range envelope.Response.Result.OptionList.Options {
		options = append(options, FreightOption{
			ServiceName:  opt.ServiceName,
			Amount:       opt.Freight.Amount,
			Currency:     opt.Freight.CurrencyCode,
			DeliveryTime: opt.DeliveryTime,
			ErrorCode:    opt.ErrorCode,
		})
	}

	return &FreightCalculateResponse{
		RequestID: envelope.Response.RequestID,
		Options:   options,
	}, nil
}

// RefreshToken exchanges the refresh token through the signed system
// interface.
func (c *HTTPAPIClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	params := c.systemParams(methodTokenRefresh)
	params["refresh_token"] = refreshToken
	params["sign"] = Sign(params, c.appSecret)

	body, err := c.doGet(ctx, params)
	if err != nil {
		return nil, err
	}

	var envelope tokenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnexpectedSchema,
			"token response is not a gateway envelope").WithCause(err)
	}
	if envelope.ErrorResponse != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			fmt.Sprintf("gateway error %d: %s", envelope.ErrorResponse.Code, envelope.ErrorResponse.Msg))
	}
	if envelope.AccessToken == "" {
		return nil, freight.NewProviderError(providerName, freight.KindUnexpectedSchema,
			"token response missing access_token")
	}

	return &envelope.TokenResponse, nil
}

// systemParams builds the fixed protocol fields shared by every call.
func (c *HTTPAPIClient) systemParams(method string) map[string]string {
	return map[string]string{
		"method":      method,
		"app_key":     c.appKey,
		"timestamp":   strconv.FormatInt(time.Now().UnixMilli(), 10),
		"sign_method": "md5",
		"format":      "json",
		"v":           "2.0",
	}
}

// doGet issues one signed GET and returns the raw body. Transport
// failures and timeouts map onto the provider error taxonomy.
func (c *HTTPAPIClient) doGet(ctx context.Context, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindValidation,
			"building gateway request").WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := freight.KindUnavailable
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			kind = freight.KindTimeout
		}
		return nil, freight.NewProviderError(providerName, kind,
			"gateway call failed").WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"reading gateway response").WithCause(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"gateway returned non-OK status").WithStatusCode(resp.StatusCode)
	}

	return body, nil
}

var _ APIClient = (*HTTPAPIClient)(nil)
