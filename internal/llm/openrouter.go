package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/set-night/mindchat/internal/domain"
)

// OpenRouter talks to the OpenAI-compatible OpenRouter API.
type OpenRouter struct {
	client *openai.Client
}

func NewOpenRouter(apiKey, baseURL string) *OpenRouter {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &OpenRouter{client: openai.NewClientWithConfig(cfg)}
}

func (s *OpenRouter) Stream(ctx context.Context, req Request) (Stream, error) {
	chatReq := s.buildRequest(req)
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := s.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, classifyError("open stream", err)
	}
	return &openRouterStream{stream: stream, slots: map[int]int{}}, nil
}

func (s *OpenRouter) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.buildRequest(req))
	if err != nil {
		return "", classifyError("chat request", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat request: %w: empty choices", domain.ErrUpstream)
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *OpenRouter) buildRequest(req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, toOpenAIMessage(m))
	}

	var tools []openai.Tool
	for _, t := range req.Tools {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Tools:    tools,
	}
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessage {
	switch m.Role {
	case domain.RoleTool:
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.ToolName,
		}
	case domain.RoleAssistant:
		msg := openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: m.Content,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		return msg
	}

	role := openai.ChatMessageRoleUser
	if m.Role == domain.RoleSystem {
		role = openai.ChatMessageRoleSystem
	}
	if len(m.Images) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}

	// Content and MultiContent are mutually exclusive
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: m.Content}}
	for _, url := range m.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url},
		})
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

type openRouterStream struct {
	stream       *openai.ChatCompletionStream
	calls        []*ToolCall
	slots        map[int]int
	usage        *domain.Usage
	finishReason string
	done         bool
}

func (s *openRouterStream) Recv() (Chunk, error) {
	for {
		if s.done {
			return Chunk{}, io.EOF
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return s.final(), nil
		}
		if err != nil {
			return Chunk{}, classifyError("read stream", err)
		}

		if resp.Usage != nil {
			u := convertUsage(resp.Usage)
			s.usage = &u
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		for _, tc := range choice.Delta.ToolCalls {
			acc := s.slot(tc)
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			acc.Name += tc.Function.Name
			acc.Arguments = append(acc.Arguments, tc.Function.Arguments...)
		}
		if choice.FinishReason != "" {
			s.finishReason = normalizeFinishReason(string(choice.FinishReason))
		}
		if choice.Delta.ReasoningContent != "" || choice.Delta.Content != "" {
			return Chunk{Text: choice.Delta.Content, Reasoning: choice.Delta.ReasoningContent}, nil
		}
	}
}

// slot returns the accumulator a tool-call delta belongs to. Indexed deltas
// are grouped by index. Without an index a new call starts whenever the
// delta carries an id other than the current call's.
func (s *openRouterStream) slot(tc openai.ToolCall) *ToolCall {
	if tc.Index != nil {
		if i, ok := s.slots[*tc.Index]; ok {
			return s.calls[i]
		}
		s.slots[*tc.Index] = len(s.calls)
		s.calls = append(s.calls, &ToolCall{})
		return s.calls[len(s.calls)-1]
	}

	if n := len(s.calls); n > 0 {
		last := s.calls[n-1]
		if tc.ID == "" || last.ID == "" || last.ID == tc.ID {
			return last
		}
	}
	s.calls = append(s.calls, &ToolCall{})
	return s.calls[len(s.calls)-1]
}

func (s *openRouterStream) final() Chunk {
	chunk := Chunk{Usage: s.usage, FinishReason: s.finishReason}
	for _, acc := range s.calls {
		tc := *acc
		if len(tc.Arguments) == 0 {
			tc.Arguments = json.RawMessage("{}")
		}
		chunk.ToolCalls = append(chunk.ToolCalls, tc)
	}
	if chunk.FinishReason == "" {
		chunk.FinishReason = domain.FinishStop
		if len(chunk.ToolCalls) > 0 {
			chunk.FinishReason = domain.FinishToolCalls
		}
	}
	return chunk
}

func (s *openRouterStream) Close() error {
	return s.stream.Close()
}

func convertUsage(u *openai.Usage) domain.Usage {
	usage := domain.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return usage
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "tool_calls", "function_call":
		return domain.FinishToolCalls
	case "length":
		return domain.FinishLength
	default:
		return reason
	}
}

func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamRateLimit, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstreamRateLimit, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrUpstream, err)
}
