package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/vendaria/freight/pkg/freight"
	"github.com/vendaria/freight/pkg/token"
	"go.uber.org/zap"
)

// Server is the HTTP server for the freight quote service.
type Server struct {
	port       int
	aggregator *freight.Aggregator
	tokens     *token.Manager
	logger     *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int
}

// New creates a new server instance.
func New(cfg Config, aggregator *freight.Aggregator, tokens *token.Manager, logger *otelzap.Logger) *Server {
	return &Server{
		port:       cfg.Port,
		aggregator: aggregator,
		tokens:     tokens,
		logger:     logger,
	}
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/shipping/quote", s.handleQuote)
	mux.HandleFunc("/api/token/status", s.handleTokenStatus)
	mux.HandleFunc("/api/auth/callback", s.handleAuthCallback)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ============================================================================
// Request/response types
// ============================================================================

type quoteItem struct {
	Weight   float64 `json:"weight"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

type quoteRequest struct {
	DestinationCEP string      `json:"destination_cep"`
	ProductID      string      `json:"product_id"`
	Items          []quoteItem `json:"items"`
}

type quoteJSON struct {
	Carrier       string `json:"carrier"`
	ServiceName   string `json:"service_name"`
	Price         string `json:"price"`
	EstimatedDays int    `json:"estimated_days"`
	Source        string `json:"source"`
}

type fulfillmentJSON struct {
	Source string   `json:"source"`
	Mode   string   `json:"mode"`
	Notes  []string `json:"notes,omitempty"`
}

type quoteResponse struct {
	Success     bool             `json:"success"`
	Data        []quoteJSON      `json:"data,omitempty"`
	Fulfillment *fulfillmentJSON `json:"fulfillment,omitempty"`
	Message     string           `json:"message,omitempty"`
}

type tokenStatusResponse struct {
	Authorized       bool   `json:"authorized"`
	Account          string `json:"account,omitempty"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type authCallbackRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Account      string `json:"account"`
}

type statusMessage struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(statusMessage{Message: "method not allowed, use POST"})
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(statusMessage{Message: "invalid JSON body"})
		return
	}

	result := s.aggregator.GetQuotes(r.Context(), &freight.QuoteRequest{
		ProductID:      req.ProductID,
		DestinationCEP: req.DestinationCEP,
		Package:        itemsToPackage(req.Items),
	})

	if len(result.Quotes) == 0 {
		json.NewEncoder(w).Encode(quoteResponse{
			Success: false,
			Message: "no shipping quotes available for this destination",
		})
		return
	}

	data := make([]quoteJSON, len(result.Quotes))
	for i, q := range result.Quotes {
		data[i] = quoteJSON{
			Carrier:       q.Carrier,
			ServiceName:   q.ServiceName,
			Price:         q.Price.StringFixed(2),
			EstimatedDays: q.EstimatedDays,
			Source:        string(q.Source),
		}
	}

	json.NewEncoder(w).Encode(quoteResponse{
		Success: true,
		Data:    data,
		Fulfillment: &fulfillmentJSON{
			Source: string(result.Fulfillment.Source),
			Mode:   string(result.Fulfillment.Mode),
			Notes:  result.Fulfillment.Notes,
		},
	})
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(statusMessage{Message: "method not allowed, use GET"})
		return
	}

	status := s.tokens.Status()
	json.NewEncoder(w).Encode(tokenStatusResponse{
		Authorized:       status.Authorized,
		Account:          status.Account,
		ExpiresInSeconds: int64(status.ExpiresIn.Seconds()),
	})
}

// handleAuthCallback seeds the initial credential from the out-of-band
// authorization flow. This is the only external mutation path to the
// credential record.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		json.NewEncoder(w).Encode(statusMessage{Message: "method not allowed, use POST"})
		return
	}

	var req authCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(statusMessage{Message: "invalid JSON body"})
		return
	}
	if req.AccessToken == "" || req.ExpiresIn <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(statusMessage{Message: "access_token and expires_in are required"})
		return
	}

	cred := &token.Credential{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(req.ExpiresIn) * time.Second),
		Account:      req.Account,
	}
	if err := s.tokens.Seed(r.Context(), cred); err != nil {
		s.logger.Error("Seeding credential failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(statusMessage{Message: "failed to persist credential"})
		return
	}

	json.NewEncoder(w).Encode(statusMessage{Success: true})
}

// itemsToPackage folds the request items into one effective package:
// weights and declared prices accumulate per quantity, dimensions take
// the largest item. Empty items produce a zero package and providers
// substitute their minimums.
func itemsToPackage(items []quoteItem) freight.Package {
	pkg := freight.Package{DeclaredPrice: decimal.Zero}
	for _, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		pkg.Quantity += qty
		pkg.WeightKG += item.Weight * float64(qty)
		pkg.DeclaredPrice = pkg.DeclaredPrice.Add(
			decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(qty))))
		if item.Length > pkg.LengthCM {
			pkg.LengthCM = item.Length
		}
		if item.Width > pkg.WidthCM {
			pkg.WidthCM = item.Width
		}
		if item.Height > pkg.HeightCM {
			pkg.HeightCM = item.Height
		}
	}
	return pkg
}
