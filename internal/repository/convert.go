package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository/sqlc"
)

func rowToUser(row sqlc.User) *domain.User {
	return &domain.User{
		ID:        row.ID,
		Email:     row.Email,
		CreatedAt: row.CreatedAt,
	}
}

func rowToChat(row sqlc.Chat) (*domain.Chat, error) {
	chat := &domain.Chat{
		ID:         row.ID,
		UserID:     row.UserID,
		Title:      row.Title,
		Visibility: domain.Visibility(row.Visibility),
		CreatedAt:  row.CreatedAt,
	}
	if len(row.LastContext) > 0 {
		var summary domain.UsageSummary
		if err := json.Unmarshal(row.LastContext, &summary); err != nil {
			return nil, fmt.Errorf("decode chat %s last context: %w", row.ID, err)
		}
		chat.LastContext = &summary
	}
	return chat, nil
}

func rowToMessage(row sqlc.Message) (*domain.Message, error) {
	msg := &domain.Message{
		ID:        row.ID,
		ChatID:    row.ChatID,
		Role:      domain.Role(row.Role),
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Parts, &msg.Parts); err != nil {
		return nil, fmt.Errorf("decode message %s parts: %w", row.ID, err)
	}
	if len(row.Attachments) > 0 {
		if err := json.Unmarshal(row.Attachments, &msg.Attachments); err != nil {
			return nil, fmt.Errorf("decode message %s attachments: %w", row.ID, err)
		}
	}
	return msg, nil
}

func messageParams(m domain.Message, now time.Time) (sqlc.CreateMessageParams, error) {
	parts := m.Parts
	if parts == nil {
		parts = []domain.Part{}
	}
	attachments := m.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}

	rawParts, err := json.Marshal(parts)
	if err != nil {
		return sqlc.CreateMessageParams{}, fmt.Errorf("encode message parts: %w", err)
	}
	rawAttachments, err := json.Marshal(attachments)
	if err != nil {
		return sqlc.CreateMessageParams{}, fmt.Errorf("encode message attachments: %w", err)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = now.UTC()
	}
	return sqlc.CreateMessageParams{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Role:        string(m.Role),
		Parts:       rawParts,
		Attachments: rawAttachments,
		CreatedAt:   createdAt,
	}, nil
}

func rowToDocument(row sqlc.Document) *domain.Document {
	return &domain.Document{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		UserID:    row.UserID,
		Title:     row.Title,
		Kind:      domain.ArtifactKind(row.Kind),
		Content:   row.Content,
	}
}
