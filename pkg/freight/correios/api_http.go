package correios

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vendaria/freight/pkg/freight"
	"golang.org/x/text/encoding/charmap"
)

// HTTPAPIClient is the production implementation of APIClient using the
// Correios XML calculator endpoint.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// XML response structures for the calculator
// ============================================================================

type servicosXML struct {
	XMLName  xml.Name      `xml:"Servicos"`
	Servicos []cServicoXML `xml:"cServico"`
}

type cServicoXML struct {
	Codigo       string `xml:"Codigo"`
	Valor        string `xml:"Valor"`
	PrazoEntrega string `xml:"PrazoEntrega"`
	Erro         string `xml:"Erro"`
	MsgErro      string `xml:"MsgErro"`
}

// ============================================================================
// API Implementation
// ============================================================================

// CalcPrecoPrazo issues one GET per service code and merges the parsed
// nodes. A transport failure on one code does not abort the others; the
// call as a whole fails only when no node could be fetched at all.
func (c *HTTPAPIClient) CalcPrecoPrazo(ctx context.Context, req *PriceDeadlineRequest) (*PriceDeadlineResponse, error) {
	if len(req.ServiceCodes) == 0 {
		return nil, freight.NewProviderError(providerName, freight.KindValidation,
			"no service codes requested")
	}

	var services []ServiceQuote
	var lastErr error

	for _, code := range req.ServiceCodes {
		nodes, err := c.fetchService(ctx, code, req)
		if err != nil {
			lastErr = err
			continue
		}
		services = append(services, nodes...)
	}

	if len(services) == 0 && lastErr != nil {
		return nil, lastErr
	}

	return &PriceDeadlineResponse{Services: services}, nil
}

func (c *HTTPAPIClient) fetchService(ctx context.Context, code string, req *PriceDeadlineRequest) ([]ServiceQuote, error) {
	values := url.Values{}
	values.Set("nCdServico", code)
	values.Set("sCepOrigem", normalizeCEP(req.OriginCEP))
	values.Set("sCepDestino", normalizeCEP(req.DestinationCEP))
	values.Set("nVlPeso", formatFloat(req.WeightKG))
	values.Set("nCdFormato", strconv.Itoa(req.FormatCode))
	values.Set("nVlComprimento", formatFloat(req.LengthCM))
	values.Set("nVlAltura", formatFloat(req.HeightCM))
	values.Set("nVlLargura", formatFloat(req.WidthCM))
	values.Set("nVlDiametro", formatFloat(req.DiameterCM))
	values.Set("sCdMaoPropria", boolFlag(req.OwnHand))
	values.Set("nVlValorDeclarado", req.DeclaredValue.StringFixed(2))
	values.Set("sCdAvisoRecebimento", boolFlag(req.ReceiptNotice))
	values.Set("StrRetorno", "xml")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindValidation,
			"building calculator request").WithCause(err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind := freight.KindUnavailable
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			kind = freight.KindTimeout
		}
		return nil, freight.NewProviderError(providerName, kind,
			"calculator call failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, freight.NewProviderError(providerName, freight.KindUnavailable,
			"calculator returned non-OK status").WithStatusCode(resp.StatusCode)
	}

	// The calculator declares ISO-8859-1 in its XML prologue.
	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charsetReader

	var parsed servicosXML
	if err := decoder.Decode(&parsed); err != nil {
		return nil, freight.NewProviderError(providerName, freight.KindUnexpectedSchema,
			"decoding calculator response").WithCause(err)
	}

	nodes := make([]ServiceQuote, 0, len(parsed.Servicos))
	for _, svc := range parsed.Servicos {
		nodes = append(nodes, nodeToQuote(svc))
	}
	return nodes, nil
}

func nodeToQuote(svc cServicoXML) ServiceQuote {
	quote := ServiceQuote{
		Code:         svc.Codigo,
		ErrorCode:    strings.TrimSpace(svc.Erro),
		ErrorMessage: strings.TrimSpace(svc.MsgErro),
	}
	if quote.ErrorCode == "" {
		quote.ErrorCode = "0"
	}

	if price, err := parseBRLDecimal(svc.Valor); err == nil {
		quote.Price = price
	} else if quote.ErrorCode == "0" {
		quote.ErrorCode = "-1"
		quote.ErrorMessage = "unparseable price in service node"
	}

	if days, err := strconv.Atoi(strings.TrimSpace(svc.PrazoEntrega)); err == nil && days >= 0 {
		quote.DeadlineDays = days
	}

	return quote
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "utf-8":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

// parseBRLDecimal parses the calculator's pt-BR money format, e.g.
// "1.018,50" -> 1018.50.
func parseBRLDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// normalizeCEP strips everything but digits; the calculator rejects the
// dashed display format.
func normalizeCEP(cep string) string {
	var b strings.Builder
	for i := 0; i < len(cep); i++ {
		if cep[i] >= '0' && cep[i] <= '9' {
			b.WriteByte(cep[i])
		}
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolFlag(b bool) string {
	if b {
		return "S"
	}
	return "N"
}

var _ APIClient = (*HTTPAPIClient)(nil)
