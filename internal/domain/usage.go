package domain

import "github.com/shopspring/decimal"

// Usage is the raw token accounting reported by the model provider.
type Usage struct {
	InputTokens     int `json:"inputTokens"`
	OutputTokens    int `json:"outputTokens"`
	ReasoningTokens int `json:"reasoningTokens,omitempty"`
	TotalTokens     int `json:"totalTokens"`
}

func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:     u.InputTokens + o.InputTokens,
		OutputTokens:    u.OutputTokens + o.OutputTokens,
		ReasoningTokens: u.ReasoningTokens + o.ReasoningTokens,
		TotalTokens:     u.TotalTokens + o.TotalTokens,
	}
}

type UsageCost struct {
	InputUSD  decimal.Decimal `json:"inputUSD"`
	OutputUSD decimal.Decimal `json:"outputUSD"`
	TotalUSD  decimal.Decimal `json:"totalUSD"`
}

type UsageContext struct {
	Window  int     `json:"window"`
	Used    int     `json:"used"`
	Percent float64 `json:"percent"`
}

// UsageSummary is raw usage optionally enriched with catalog data.
type UsageSummary struct {
	Usage
	ModelID string        `json:"modelId,omitempty"`
	Cost    *UsageCost    `json:"cost,omitempty"`
	Context *UsageContext `json:"context,omitempty"`
}

func (s *UsageSummary) Enriched() bool {
	return s.Cost != nil || s.Context != nil
}
