package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/mindchat/internal/domain"
)

func sseServer(t *testing.T, records []string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, rec := range records {
			fmt.Fprintf(w, "data: %s\n\n", rec)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func drain(t *testing.T, s Stream) []Chunk {
	t.Helper()
	var chunks []Chunk
	for {
		c, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, c)
	}
}

func TestOpenRouterStreamText(t *testing.T) {
	var body map[string]any
	srv := sseServer(t, []string{
		`{"id":"1","choices":[{"index":0,"delta":{"role":"assistant","content":"The sky "}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"content":"is blue."},"finish_reason":"stop"}]}`,
		`{"id":"1","choices":[],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`,
	}, &body)
	defer srv.Close()

	gw := NewOpenRouter("test-key", srv.URL+"/")
	stream, err := gw.Stream(context.Background(), Request{
		Model:    "openai/gpt-4o-mini",
		System:   "be brief",
		Messages: []Message{{Role: domain.RoleUser, Content: "Sky color?"}},
	})
	require.NoError(t, err)
	defer stream.Close()

	chunks := drain(t, stream)
	require.Len(t, chunks, 3)
	assert.Equal(t, "The sky ", chunks[0].Text)
	assert.Equal(t, "is blue.", chunks[1].Text)

	last := chunks[2]
	assert.Empty(t, last.Text)
	assert.Equal(t, domain.FinishStop, last.FinishReason)
	require.NotNil(t, last.Usage)
	assert.Equal(t, domain.Usage{InputTokens: 12, OutputTokens: 4, TotalTokens: 16}, *last.Usage)

	assert.Equal(t, true, body["stream"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	_, hasTools := body["tools"]
	assert.False(t, hasTools)
}

func TestOpenRouterStreamToolCalls(t *testing.T) {
	var body map[string]any
	srv := sseServer(t, []string{
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"getWeather","arguments":""}}]}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"latitude\":1,"}}]}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"longitude\":2}"}}]}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_2","type":"function","function":{"name":"readWebPage"}}]},"finish_reason":"tool_calls"}]}`,
	}, &body)
	defer srv.Close()

	gw := NewOpenRouter("test-key", srv.URL)
	stream, err := gw.Stream(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: domain.RoleUser, Content: "weather?"}},
		Tools: []ToolSpec{{
			Name:        "getWeather",
			Description: "weather",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	chunks := drain(t, stream)
	require.Len(t, chunks, 1)
	final := chunks[0]
	assert.Equal(t, domain.FinishToolCalls, final.FinishReason)
	require.Len(t, final.ToolCalls, 2)
	assert.Equal(t, "call_1", final.ToolCalls[0].ID)
	assert.Equal(t, "getWeather", final.ToolCalls[0].Name)
	assert.JSONEq(t, `{"latitude":1,"longitude":2}`, string(final.ToolCalls[0].Arguments))
	assert.Equal(t, "readWebPage", final.ToolCalls[1].Name)
	assert.JSONEq(t, `{}`, string(final.ToolCalls[1].Arguments))
	assert.Nil(t, final.Usage)

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestOpenRouterStreamReasoning(t *testing.T) {
	srv := sseServer(t, []string{
		`{"id":"1","choices":[{"index":0,"delta":{"reasoning_content":"Let me think"}}]}`,
		`{"id":"1","choices":[{"index":0,"delta":{"content":"Blue."},"finish_reason":"stop"}]}`,
	}, nil)
	defer srv.Close()

	gw := NewOpenRouter("test-key", srv.URL)
	stream, err := gw.Stream(context.Background(), Request{
		Model:    "x-ai/grok-3-mini-beta",
		Messages: []Message{{Role: domain.RoleUser, Content: "Sky color?"}},
	})
	require.NoError(t, err)

	chunks := drain(t, stream)
	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Reasoning: "Let me think"}, chunks[0])
	assert.Equal(t, Chunk{Text: "Blue."}, chunks[1])
	assert.Equal(t, domain.FinishStop, chunks[2].FinishReason)
}

func TestOpenRouterStreamUnindexedToolCalls(t *testing.T) {
	srv := sseServer(t, []string{
		`{"id":"1","choices":[{"index":0,"delta":{"tool_calls":[` +
			`{"id":"a","type":"function","function":{"name":"getWeather","arguments":"{\"city\":\"Oslo\"}"}},` +
			`{"id":"b","type":"function","function":{"name":"getWeather","arguments":"{\"city\":\"Rome\"}"}}` +
			`]},"finish_reason":"tool_calls"}]}`,
	}, nil)
	defer srv.Close()

	gw := NewOpenRouter("test-key", srv.URL)
	stream, err := gw.Stream(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: domain.RoleUser, Content: "weather?"}},
	})
	require.NoError(t, err)

	chunks := drain(t, stream)
	require.Len(t, chunks, 1)
	calls := chunks[0].ToolCalls
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].ID)
	assert.Equal(t, "getWeather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(calls[0].Arguments))
	assert.Equal(t, "b", calls[1].ID)
	assert.Equal(t, "getWeather", calls[1].Name)
	assert.JSONEq(t, `{"city":"Rome"}`, string(calls[1].Arguments))
}

func TestOpenRouterRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	gw := NewOpenRouter("test-key", srv.URL)
	_, err := gw.Stream(context.Background(), Request{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)

	_, err = gw.Generate(context.Background(), Request{Model: "m"})
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
}

func TestOpenRouterGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Sky colors"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	out, err := NewOpenRouter("test-key", srv.URL).Generate(context.Background(), Request{
		Model:    "m",
		Messages: []Message{{Role: domain.RoleUser, Content: "Sky color?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sky colors", out)
}

func TestToOpenAIMessageImages(t *testing.T) {
	msg := toOpenAIMessage(Message{
		Role:    domain.RoleUser,
		Content: "what is this",
		Images:  []string{"https://example.com/a.png"},
	})
	assert.Empty(t, msg.Content)
	require.Len(t, msg.MultiContent, 2)
	assert.Equal(t, "https://example.com/a.png", msg.MultiContent[1].ImageURL.URL)

	tool := toOpenAIMessage(Message{Role: domain.RoleTool, Content: `{"ok":true}`, ToolCallID: "c1", ToolName: "getWeather"})
	assert.Equal(t, "tool", tool.Role)
	assert.Equal(t, "c1", tool.ToolCallID)
}
