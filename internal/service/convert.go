package service

import (
	"encoding/json"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

// toModelMessages converts stored messages to model input. Assistant messages
// interleave text, tool calls and tool results; they are split into an
// assistant message per step followed by its tool messages.
func toModelMessages(messages []domain.Message) []llm.Message {
	var out []llm.Message
	for _, m := range messages {
		switch m.Role {
		case domain.RoleUser, domain.RoleSystem:
			msg := llm.Message{Role: m.Role, Content: m.Text()}
			for _, p := range m.PartsOf(domain.PartFile) {
				msg.Images = append(msg.Images, p.URL)
			}
			for _, a := range m.Attachments {
				msg.Images = append(msg.Images, a.URL)
			}
			out = append(out, msg)
		case domain.RoleAssistant, domain.RoleTool:
			out = append(out, splitAssistant(m.Parts)...)
		}
	}
	return out
}

func splitAssistant(parts []domain.Part) []llm.Message {
	var (
		out     []llm.Message
		current *llm.Message
		results []llm.Message
	)
	flush := func() {
		if current != nil && (current.Content != "" || len(current.ToolCalls) > 0) {
			out = append(out, *current)
		}
		out = append(out, results...)
		current, results = nil, nil
	}

	for _, p := range parts {
		switch p.Type {
		case domain.PartText:
			if len(results) > 0 {
				flush()
			}
			if current == nil {
				current = &llm.Message{Role: domain.RoleAssistant}
			}
			if current.Content != "" {
				current.Content += "\n"
			}
			current.Content += p.Text
		case domain.PartToolCall:
			if len(results) > 0 {
				flush()
			}
			if current == nil {
				current = &llm.Message{Role: domain.RoleAssistant}
			}
			args := p.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			current.ToolCalls = append(current.ToolCalls, llm.ToolCall{ID: p.ToolCallID, Name: p.ToolName, Arguments: args})
		case domain.PartToolResult:
			content := string(p.Output)
			if p.ErrorText != "" {
				raw, _ := json.Marshal(map[string]string{"error": p.ErrorText})
				content = string(raw)
			}
			results = append(results, llm.Message{
				Role:       domain.RoleTool,
				Content:    content,
				ToolCallID: p.ToolCallID,
				ToolName:   p.ToolName,
			})
		}
	}
	flush()
	return out
}
