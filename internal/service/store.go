package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
)

// ChatStore is the persistence the chat service needs. Implementations do
// not check ownership.
type ChatStore interface {
	GetChatByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	SaveChat(ctx context.Context, chat domain.Chat) error
	GetChatsByUserID(ctx context.Context, userID uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*domain.ChatHistory, error)
	DeleteChatByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	DeleteAllChatsByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateChatVisibilityByID(ctx context.Context, id uuid.UUID, visibility domain.Visibility) error
	UpdateChatTitleByID(ctx context.Context, id uuid.UUID, title string) error
	UpdateChatLastContextByID(ctx context.Context, id uuid.UUID, summary domain.UsageSummary) error

	GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	SaveMessages(ctx context.Context, messages []domain.Message) error
	DeleteMessagesByChatIDAfterTimestamp(ctx context.Context, chatID uuid.UUID, ts time.Time) (int64, error)
	GetMessageCountByUserID(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type DocumentStore interface {
	GetDocumentsByID(ctx context.Context, id uuid.UUID) ([]domain.Document, error)
	GetSuggestionsByDocumentID(ctx context.Context, documentID uuid.UUID) ([]domain.Suggestion, error)
}

// ModelCatalog resolves provider models with pricing.
type ModelCatalog interface {
	GetModel(ctx context.Context, modelID string) (*domain.AIModel, error)
}
