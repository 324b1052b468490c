package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

// TitleGenerator names new chats after their first message.
type TitleGenerator struct {
	gateway llm.Gateway
	model   string
	timeout time.Duration
}

func NewTitleGenerator(gateway llm.Gateway, model string) *TitleGenerator {
	return &TitleGenerator{gateway: gateway, model: model, timeout: config.TitleTimeout}
}

// Generate always returns a usable title, falling back to the message text.
func (g *TitleGenerator) Generate(ctx context.Context, msg domain.Message) string {
	text := strings.TrimSpace(msg.Text())
	if text == "" {
		return config.DefaultChatTitle
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.gateway.Generate(ctx, llm.Request{
		Model:    g.model,
		System:   titlePrompt,
		Messages: []llm.Message{{Role: domain.RoleUser, Content: text}},
	})
	if err != nil {
		slog.Warn("title generation failed", "chat_id", msg.ChatID, "error", err)
		return fallbackTitle(text)
	}

	title := cleanTitle(out)
	if title == "" {
		return fallbackTitle(text)
	}
	return title
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.TrimSpace(s), `"'`+"`")
	return truncate(strings.TrimSpace(s), config.TitleMaxLength)
}

func fallbackTitle(text string) string {
	title := truncate(strings.Join(strings.Fields(text), " "), config.TitleMaxLength)
	if title == "" {
		return config.DefaultChatTitle
	}
	return title
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
