package freight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// MetricsRecorder receives aggregator telemetry. Satisfied by
// internal/telemetry.Metrics; kept as an interface so the package has
// no dependency on the service wiring.
type MetricsRecorder interface {
	RecordRequest(operation, provider, status string, duration float64)
	RecordError(provider, errorType string)
}

// AggregatorConfig holds aggregator tunables.
type AggregatorConfig struct {
	// Retries is the number of extra attempts per provider call when
	// the failure is retryable.
	Retries int
}

// Aggregator orchestrates classification, provider selection, postal
// fallback and quote normalization. It is the recovery boundary: no
// subordinate failure escapes GetQuotes.
type Aggregator struct {
	config      AggregatorConfig
	classifier  Classifier
	marketplace Provider
	postal      Provider
	logger      *otelzap.Logger
	metrics     MetricsRecorder
}

// NewAggregator creates an aggregator. Either provider may be nil when
// disabled by configuration; the flow degrades accordingly.
func NewAggregator(cfg AggregatorConfig, classifier Classifier, marketplace, postal Provider, logger *otelzap.Logger, metrics MetricsRecorder) *Aggregator {
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	return &Aggregator{
		config:      cfg,
		classifier:  classifier,
		marketplace: marketplace,
		postal:      postal,
		logger:      logger,
		metrics:     metrics,
	}
}

// GetQuotes returns every shipping option for the request. It never
// fails: provider and auth errors are logged, counted and converted
// into a fallback attempt or an empty result with diagnostic notes.
func (a *Aggregator) GetQuotes(ctx context.Context, req *QuoteRequest) *QuoteResult {
	class := a.classifier.Classify(req.ProductID)

	var marketplaceQuotes, postalQuotes []Quote
	var notes []string

	if class == ClassNative && a.marketplace != nil {
		quotes, err := a.attempt(ctx, a.marketplace, req)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: %s", a.marketplace.Name(), summarize(err)))
		} else {
			marketplaceQuotes = quotes
		}
	} else if a.marketplace != nil {
		a.logger.Debug("Skipping marketplace provider",
			zap.String("classification", string(class)),
		)
		notes = append(notes, fmt.Sprintf("product reference not marketplace-native (%s)", class))
	}

	if len(marketplaceQuotes) == 0 && a.postal != nil {
		quotes, err := a.attempt(ctx, a.postal, req)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s: %s", a.postal.Name(), summarize(err)))
		} else {
			postalQuotes = quotes
		}
	}

	merged := MergeQuotes(marketplaceQuotes, postalQuotes)

	fulfillment := Fulfillment{Mode: ModeNone, Notes: notes}
	if len(merged) > 0 {
		fulfillment.Source = merged[0].Source
		if fulfillment.Source == SourceMarketplace {
			fulfillment.Mode = ModeDropship
		} else {
			fulfillment.Mode = ModeWarehouse
		}
	}

	return &QuoteResult{Quotes: merged, Fulfillment: fulfillment}
}

// attempt calls a provider with the bounded retry policy and records
// request metrics.
func (a *Aggregator) attempt(ctx context.Context, p Provider, req *QuoteRequest) ([]Quote, error) {
	var quotes []Quote
	var err error

	for try := 0; try <= a.config.Retries; try++ {
		start := time.Now()
		quotes, err = p.Quote(ctx, req)
		duration := time.Since(start).Seconds()

		if err == nil {
			a.record("get_quotes", p.Name(), "success", duration)
			return quotes, nil
		}

		a.record("get_quotes", p.Name(), "error", duration)
		a.recordError(p.Name(), errorKind(err))
		a.logger.Warn("Provider quote attempt failed",
			zap.String("provider", p.Name()),
			zap.String("error_kind", errorKind(err)),
			zap.Int("attempt", try+1),
			zap.Error(err),
		)

		if !IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, err
}

func (a *Aggregator) record(operation, provider, status string, duration float64) {
	if a.metrics != nil {
		a.metrics.RecordRequest(operation, provider, status, duration)
	}
}

func (a *Aggregator) recordError(provider, kind string) {
	if a.metrics != nil {
		a.metrics.RecordError(provider, kind)
	}
}

func errorKind(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return string(provErr.Kind)
	}
	return "auth"
}

// summarize produces a note safe for the caller-facing envelope:
// provider error kinds only, never upstream bodies or tokens.
func summarize(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if provErr.StatusCode != 0 {
			return fmt.Sprintf("%s (status %d)", provErr.Kind, provErr.StatusCode)
		}
		return string(provErr.Kind)
	}
	return "provider call failed"
}
