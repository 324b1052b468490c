package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/domain"
)

func TestToModelMessagesUserImages(t *testing.T) {
	msgs := toModelMessages([]domain.Message{{
		Role: domain.RoleUser,
		Parts: []domain.Part{
			domain.TextPart("what is this?"),
			{Type: domain.PartFile, MediaType: "image/png", URL: "https://cdn.example.com/a.png"},
		},
		Attachments: []domain.Attachment{{Name: "b.jpg", URL: "https://cdn.example.com/b.jpg", ContentType: "image/jpeg"}},
	}})

	require.Len(t, msgs, 1)
	assert.Equal(t, "what is this?", msgs[0].Content)
	assert.Equal(t, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.jpg"}, msgs[0].Images)
}

func TestToModelMessagesSplitsSteps(t *testing.T) {
	msgs := toModelMessages([]domain.Message{{
		Role: domain.RoleAssistant,
		Parts: []domain.Part{
			domain.TextPart("Checking."),
			{Type: domain.PartToolCall, ToolCallID: "c1", ToolName: "getWeather", Input: json.RawMessage(`{"latitude":1}`)},
			{Type: domain.PartToolResult, ToolCallID: "c1", ToolName: "getWeather", Output: json.RawMessage(`{"t":17}`)},
			{Type: domain.PartToolCall, ToolCallID: "c2", ToolName: "readWebPage"},
			{Type: domain.PartToolResult, ToolCallID: "c2", ToolName: "readWebPage", ErrorText: "timeout"},
			domain.TextPart("It is 17 degrees."),
		},
	}})

	require.Len(t, msgs, 5)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Checking.", msgs[0].Content)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, "c1", msgs[0].ToolCalls[0].ID)

	assert.Equal(t, domain.RoleTool, msgs[1].Role)
	assert.JSONEq(t, `{"t":17}`, msgs[1].Content)

	require.Len(t, msgs[2].ToolCalls, 1)
	assert.JSONEq(t, `{}`, string(msgs[2].ToolCalls[0].Arguments))
	assert.JSONEq(t, `{"error":"timeout"}`, msgs[3].Content)

	assert.Equal(t, domain.RoleAssistant, msgs[4].Role)
	assert.Equal(t, "It is 17 degrees.", msgs[4].Content)
}

func TestToModelMessagesDropsReasoning(t *testing.T) {
	msgs := toModelMessages([]domain.Message{{
		Role:  domain.RoleAssistant,
		Parts: []domain.Part{domain.ReasoningPart("Let me think"), domain.TextPart("Blue.")},
	}})

	require.Len(t, msgs, 1)
	assert.Equal(t, "Blue.", msgs[0].Content)
}
