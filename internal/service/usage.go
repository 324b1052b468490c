package service

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"github.com/set-night/mindchat/internal/domain"
)

var perMillion = decimal.NewFromInt(1_000_000)

// UsageReconciler enriches raw usage with cost and context-window data from the catalog.
type UsageReconciler struct {
	catalog ModelCatalog
}

func NewUsageReconciler(catalog ModelCatalog) *UsageReconciler {
	return &UsageReconciler{catalog: catalog}
}

// Reconcile never fails: without catalog data the raw usage is returned with modelID set.
func (r *UsageReconciler) Reconcile(ctx context.Context, modelID string, raw domain.Usage) domain.UsageSummary {
	summary := domain.UsageSummary{Usage: raw, ModelID: modelID}
	if summary.TotalTokens == 0 {
		summary.TotalTokens = raw.InputTokens + raw.OutputTokens
	}

	model, err := r.catalog.GetModel(ctx, modelID)
	if err != nil {
		if !errors.Is(err, domain.ErrModelNotFound) {
			slog.Warn("usage enrichment skipped", "model", modelID, "error", err)
		}
		return summary
	}

	inputCost := CalculateCost(raw.InputTokens, model.PromptPrice)
	outputCost := CalculateCost(raw.OutputTokens, model.CompletionPrice)
	summary.Cost = &domain.UsageCost{
		InputUSD:  inputCost,
		OutputUSD: outputCost,
		TotalUSD:  inputCost.Add(outputCost),
	}

	if model.ContextLength > 0 {
		used := raw.InputTokens + raw.OutputTokens
		percent := float64(used) / float64(model.ContextLength) * 100
		summary.Context = &domain.UsageContext{
			Window:  model.ContextLength,
			Used:    used,
			Percent: math.Round(percent*100) / 100,
		}
	}
	return summary
}

// CalculateCost prices tokens at a per-1M-token rate.
func CalculateCost(tokens int, pricePerMillion decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(tokens)).Mul(pricePerMillion).Div(perMillion)
}
