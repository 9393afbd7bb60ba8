package correios_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/freight/correios"
)

const calcXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<Servicos>
  <cServico>
    <Codigo>04510</Codigo>
    <Valor>1.018,50</Valor>
    <PrazoEntrega>8</PrazoEntrega>
    <Erro>0</Erro>
    <MsgErro></MsgErro>
  </cServico>
</Servicos>`

func newCalcServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *correios.HTTPAPIClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, correios.NewHTTPAPIClient(correios.HTTPAPIClientConfig{BaseURL: srv.URL})
}

func calcRequest(codes ...string) *correios.PriceDeadlineRequest {
	return &correios.PriceDeadlineRequest{
		ServiceCodes:   codes,
		OriginCEP:      "01153-000",
		DestinationCEP: "01001000",
		WeightKG:       0.3,
		FormatCode:     correios.FormatBox,
		LengthCM:       16,
		WidthCM:        11,
		HeightCM:       2,
		DeclaredValue:  decimal.RequireFromString("50.00"),
	}
}

func TestHTTPAPIClient_ParsesBRLPrices(t *testing.T) {
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(calcXML))
	})

	resp, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.NoError(t, err)
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "04510", resp.Services[0].Code)
	assert.True(t, resp.Services[0].Price.Equal(decimal.RequireFromString("1018.50")))
	assert.Equal(t, 8, resp.Services[0].DeadlineDays)
	assert.Equal(t, "0", resp.Services[0].ErrorCode)
}

func TestHTTPAPIClient_SendsCalculatorParams(t *testing.T) {
	var query map[string][]string
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(calcXML))
	})

	_, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.NoError(t, err)
	assert.Equal(t, []string{"04510"}, query["nCdServico"])
	assert.Equal(t, []string{"01153000"}, query["sCepOrigem"], "origin CEP must be digits only")
	assert.Equal(t, []string{"01001000"}, query["sCepDestino"])
	assert.Equal(t, []string{"0.3"}, query["nVlPeso"])
	assert.Equal(t, []string{"50.00"}, query["nVlValorDeclarado"])
	assert.Equal(t, []string{"N"}, query["sCdMaoPropria"])
	assert.Equal(t, []string{"xml"}, query["StrRetorno"])
}

func TestHTTPAPIClient_OneRequestPerServiceCode(t *testing.T) {
	var codes []string
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		codes = append(codes, r.URL.Query().Get("nCdServico"))
		w.Write([]byte(calcXML))
	})

	resp, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC, correios.ServiceSEDEX))

	require.NoError(t, err)
	assert.Equal(t, []string{"04510", "04014"}, codes)
	assert.Len(t, resp.Services, 2)
}

func TestHTTPAPIClient_NormalizesMissingErrorCode(t *testing.T) {
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<Servicos><cServico><Codigo>04510</Codigo><Valor>22,80</Valor><PrazoEntrega>8</PrazoEntrega></cServico></Servicos>`))
	})

	resp, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.NoError(t, err)
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "0", resp.Services[0].ErrorCode)
}

func TestHTTPAPIClient_UnparseablePriceFlagsNode(t *testing.T) {
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<Servicos><cServico><Codigo>04510</Codigo><Valor>indisponivel</Valor><Erro>0</Erro></cServico></Servicos>`))
	})

	resp, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.NoError(t, err)
	require.Len(t, resp.Services, 1)
	assert.NotEqual(t, "0", resp.Services[0].ErrorCode)
}

func TestHTTPAPIClient_NonOKStatus(t *testing.T) {
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnavailable, provErr.Kind)
	assert.Equal(t, http.StatusBadGateway, provErr.StatusCode)
}

func TestHTTPAPIClient_MalformedXML(t *testing.T) {
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance page</html>`))
	})

	_, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC))

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindUnexpectedSchema, provErr.Kind)
}

func TestHTTPAPIClient_PartialFailureKeepsGoodNodes(t *testing.T) {
	var n int
	_, client := newCalcServer(t, func(w http.ResponseWriter, r *http.Request) {
		n++
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(calcXML))
	})

	resp, err := client.CalcPrecoPrazo(context.Background(), calcRequest(correios.ServicePAC, correios.ServiceSEDEX))

	require.NoError(t, err)
	assert.Len(t, resp.Services, 1)
}

func TestHTTPAPIClient_NoServiceCodes(t *testing.T) {
	client := correios.NewHTTPAPIClient(correios.HTTPAPIClientConfig{BaseURL: "http://localhost:0"})

	_, err := client.CalcPrecoPrazo(context.Background(), &correios.PriceDeadlineRequest{})

	require.Error(t, err)
	var provErr *freight.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, freight.KindValidation, provErr.Kind)
}
