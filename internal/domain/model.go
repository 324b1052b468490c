package domain

import "github.com/shopspring/decimal"

// AIModel is a catalog entry of the model provider.
type AIModel struct {
	ID              string
	Name            string
	Description     string
	PromptPrice     decimal.Decimal // per 1M tokens
	CompletionPrice decimal.Decimal // per 1M tokens
	ContextLength   int
}

func (m *AIModel) IsFree() bool {
	return m.PromptPrice.IsZero() && m.CompletionPrice.IsZero()
}

const (
	ChatModelDefault   = "chat-model"
	ChatModelReasoning = "chat-model-reasoning"
)

// ChatModel is a model the client can select, bound to a provider model.
type ChatModel struct {
	ID            string
	Name          string
	Description   string
	ProviderModel string
	Reasoning     bool
	// Tools names the tools offered to the model.
	Tools []string
}

// ToolsEnabled reports whether tools are offered to the model.
func (m ChatModel) ToolsEnabled() bool {
	return len(m.Tools) > 0
}
