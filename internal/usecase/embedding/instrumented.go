// Package embedding wraps the raw embedding provider with the cross-cutting
// concerns the router depends on: token budget enforcement and budget gauges.
package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/metrics"
)

// InstrumentedEmbedder decorates an Embedder with budget checks.
// Check runs before the provider call; Record runs after a successful one.
type InstrumentedEmbedder struct {
	inner    domain.Embedder
	budget   *BudgetTracker
	provider string
	logger   *zap.Logger
}

// NewInstrumentedEmbedder wraps inner with budget tracking. budget may be nil,
// in which case the decorator is a pass-through.
func NewInstrumentedEmbedder(inner domain.Embedder, budget *BudgetTracker, provider string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:    inner,
		budget:   budget,
		provider: provider,
		logger:   logger,
	}
}

// Embed implements domain.Embedder.
func (e *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if e.budget != nil {
		if err := e.budget.Check(ctx); err != nil {
			return domain.EmbeddingResult{}, err
		}
	}

	result, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if e.budget != nil && result.TotalTokens > 0 {
		e.budget.Record(int64(result.TotalTokens))
		e.updateGauges()
	}

	return result, nil
}

func (e *InstrumentedEmbedder) updateGauges() {
	if daily := e.budget.RemainingDaily(); daily >= 0 {
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(e.provider, "daily").Set(float64(daily))
	}
	if monthly := e.budget.RemainingMonthly(); monthly >= 0 {
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(e.provider, "monthly").Set(float64(monthly))
	}
}

var _ domain.Embedder = (*InstrumentedEmbedder)(nil)
