package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
)

func TestTitleGenerator(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		title    string
		titleErr error
		want     string
	}{
		{name: "model title", text: "Why is the sky blue?", title: "Sky color", want: "Sky color"},
		{name: "quoted first line", text: "hello", title: "\"Greeting\"\nextra", want: "Greeting"},
		{name: "blank model output", text: "hello  there", title: "  ", want: "hello there"},
		{name: "model error", text: "hello", titleErr: errBoom, want: "hello"},
		{name: "empty message", text: "", want: config.DefaultChatTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{title: tt.title, titleErr: tt.titleErr}
			g := NewTitleGenerator(gw, "m")

			got := g.Generate(context.Background(), domain.Message{Parts: []domain.Part{domain.TextPart(tt.text)}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackTitleTruncates(t *testing.T) {
	title := fallbackTitle(strings.Repeat("é", 200))
	assert.Equal(t, config.TitleMaxLength, len([]rune(title)))
}
