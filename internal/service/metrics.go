package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/set-night/mindchat/internal/service")
	meter  = otel.Meter("github.com/set-night/mindchat/internal/service")
)

type chatMetrics struct {
	turns       metric.Int64Counter
	tokens      metric.Int64Counter
	rateLimited metric.Int64Counter
}

func newChatMetrics() *chatMetrics {
	// Instrument creation only fails on invalid names; the no-op fallback is fine.
	turns, _ := meter.Int64Counter("mindchat.chat.turns", metric.WithDescription("Completed chat turns"))
	tokens, _ := meter.Int64Counter("mindchat.chat.tokens", metric.WithDescription("Tokens used by chat turns"))
	rateLimited, _ := meter.Int64Counter("mindchat.chat.rate_limited", metric.WithDescription("Turns rejected by the daily cap"))
	return &chatMetrics{turns: turns, tokens: tokens, rateLimited: rateLimited}
}

func (m *chatMetrics) turn(ctx context.Context, model, finishReason string, inputTokens, outputTokens int) {
	m.turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("finish_reason", finishReason),
	))
	m.tokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attribute.String("model", model), attribute.String("kind", "input")))
	m.tokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attribute.String("model", model), attribute.String("kind", "output")))
}

func (m *chatMetrics) limited(ctx context.Context, userType string) {
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("user_type", userType)))
}
