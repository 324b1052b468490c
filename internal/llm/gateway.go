// Package llm is the model gateway: a provider-neutral request/stream contract
// and its OpenRouter implementation, plus the provider's model catalog.
package llm

import (
	"context"
	"encoding/json"

	"github.com/set-night/mindchat/internal/domain"
)

// Message is one entry of the model-input transcript.
type Message struct {
	Role       domain.Role
	Content    string
	Images     []string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSpec describes a tool offered to the model; Parameters is a JSON schema.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Chunk is one item of a model stream. Text and reasoning chunks arrive in
// generation order; the last chunk before io.EOF carries the complete tool
// calls, the usage and the finish reason of the call.
type Chunk struct {
	Text         string
	Reasoning    string
	ToolCalls    []ToolCall
	Usage        *domain.Usage
	FinishReason string
}

// Stream yields chunks until io.EOF.
type Stream interface {
	Recv() (Chunk, error)
	Close() error
}

type Gateway interface {
	Stream(ctx context.Context, req Request) (Stream, error)
	Generate(ctx context.Context, req Request) (string, error)
}
