package aliexpress_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/freight/aliexpress"
)

const freightEnvelopeJSON = `{
  "aliexpress_logistics_buyer_freight_calculate_response": {
    "request_id": "req-123",
    "result": {
      "success": true,
      "aeop_freight_calculate_result_for_buyer_d_t_o_list": {
        "aeop_freight_calculate_result_for_buyer_dto": [
          {
            "error_code": 0,
            "service_name": "CAINIAO_STANDARD",
            "estimated_delivery_time": "7-12",
            "freight": {"amount": "18.90", "currency_code": "BRL"}
          },
          {
            "error_code": 0,
            "service_name": "ALIEXPRESS_PREMIUM_SHIPPING",
            "estimated_delivery_time": "5-5",
            "freight": {"amount": "32.00", "currency_code": "BRL"}
          }
        ]
      }
    }
  }
}`

func newGatewayServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *aliexpress.HTTPAPIClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, aliexpress.NewHTTPAPIClient(aliexpress.HTTPAPIClientConfig{
		BaseURL:   srv.URL,
		AppKey:    "test-app-key",
		AppSecret: "test-app-secret",
	})
}

func freightCalcRequest() *aliexpress.FreightCalculateRequest {
	return &aliexpress.FreightCalculateRequest{
		AccessToken:   "test-access-token",
		ProductID:     "1005007720304124",
		CountryCode:   "BR",
		Price:         "50.00",
		PriceCurrency: "USD",
		Quantity:      1,
		SendCountry:   "CN",
	}
}

func TestHTTPAPIClient_FreightCalculate_Success(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(freightEnvelopeJSON))
	})

	resp, err := client.FreightCalculate(context.Background(), freightCalcRequest())

	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.RequestID)
	require.Len(t, resp.Options, 2)
	assert.Equal(t, "CAINIAO_STANDARD", resp.Options[0].ServiceName)
	assert.Equal(t, "18.90", resp.Options[0].Amount)
	assert.Equal(t, "BRL", resp.Options[0].Currency)
	assert.Equal(t, "7-12", resp.Options[0].DeliveryTime)
}

func TestHTTPAPIClient_FreightCalculate_RequestIsSigned(t *testing.T) {
	var query map[string][]string
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(freightEnvelopeJSON))
	})

	_, err := client.FreightCalculate(context.Background(), freightCalcRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"aliexpress.logistics.buyer.freight.calculate"}, query["method"])
	assert.Equal(t, []string{"test-app-key"}, query["app_key"])
	assert.Equal(t, []string{"md5"}, query["sign_method"])
	assert.Equal(t, []string{"json"}, query["format"])
	assert.Equal(t, []string{"2.0"}, query["v"])
	assert.NotEmpty(t, query["timestamp"])
	assert.Contains(t, query["param_aeop_freight_calculate_for_buyer_d_t_o"][0], `"product_id":1005007720304124`)

	// The signature must be reproducible over the sent parameters
	params := make(map[string]string, len(query))
	for k, v := range query {
		params[k] = v[0]
	}
	require.NotEmpty(t, query["sign"])
	assert.Equal(t, aliexpress.Sign(params, "test-app-secret"), query["sign"][0])
}

func TestHTTPAPIClient_FreightCalculate_NonNumericProductID(t *testing.T) {
	called := false
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := freightCalcRequest()
	req.ProductID = "produto_sem_aliexpress"
	_, err := client.FreightCalculate(context.Background(), req)

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindValidation, provErr.Kind)
	assert.False(t, called)
}

func TestHTTPAPIClient_FreightCalculate_GatewayError(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_response": {"code": 27, "msg": "Invalid session"}}`))
	})

	_, err := client.FreightCalculate(context.Background(), freightCalcRequest())

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnavailable, provErr.Kind)
}

func TestHTTPAPIClient_FreightCalculate_MissingWrapperKey(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"some_other_response": {}}`))
	})

	_, err := client.FreightCalculate(context.Background(), freightCalcRequest())

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnexpectedSchema, provErr.Kind)
}

func TestHTTPAPIClient_FreightCalculate_UnsuccessfulResult(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aliexpress_logistics_buyer_freight_calculate_response": {"result": {"success": false, "error_desc": "no freight found"}}}`))
	})

	_, err := client.FreightCalculate(context.Background(), freightCalcRequest())

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnavailable, provErr.Kind)
}

func TestHTTPAPIClient_FreightCalculate_NonOKStatus(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FreightCalculate(context.Background(), freightCalcRequest())

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnavailable, provErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, provErr.StatusCode)
}

func TestHTTPAPIClient_RefreshToken_Success(t *testing.T) {
	var query map[string][]string
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"access_token": "fresh-access", "refresh_token": "fresh-refresh", "expires_in": 86400, "account": "seller-1"}`))
	})

	resp, err := client.RefreshToken(context.Background(), "old-refresh")

	require.NoError(t, err)
	assert.Equal(t, "fresh-access", resp.AccessToken)
	assert.Equal(t, "fresh-refresh", resp.RefreshToken)
	assert.Equal(t, int64(86400), resp.ExpiresIn)
	assert.Equal(t, "seller-1", resp.Account)

	assert.Equal(t, []string{"old-refresh"}, query["refresh_token"])
	assert.NotEmpty(t, query["sign"])
}

func TestHTTPAPIClient_RefreshToken_MissingAccessToken(t *testing.T) {
	_, client := newGatewayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.RefreshToken(context.Background(), "old-refresh")

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnexpectedSchema, provErr.Kind)
}
