package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/repository/sqlc"
)

// Store is the persistence gateway. It never checks ownership.
type Store struct {
	db      *pgxpool.Pool
	queries *sqlc.Queries
	now     func() time.Time
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, queries: sqlc.New(db), now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Users

func (s *Store) CreateUser(ctx context.Context, email string) (*domain.User, error) {
	row, err := s.queries.CreateUser(ctx, sqlc.CreateUserParams{ID: uuid.New(), Email: email})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return rowToUser(row), nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return rowToUser(row), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return rowToUser(row), nil
}

// Chats

func (s *Store) GetChatByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	row, err := s.queries.GetChatByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return rowToChat(row)
}

func (s *Store) SaveChat(ctx context.Context, chat domain.Chat) error {
	createdAt := chat.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	err := s.queries.SaveChat(ctx, sqlc.SaveChatParams{
		ID:         chat.ID,
		UserID:     chat.UserID,
		Title:      chat.Title,
		Visibility: string(chat.Visibility),
		CreatedAt:  createdAt,
	})
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}
	return nil
}

// GetChatsByUserID returns a page of the user's chats, newest first. At most
// one of startingAfter and endingBefore may be set.
func (s *Store) GetChatsByUserID(ctx context.Context, userID uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*domain.ChatHistory, error) {
	extended := int32(limit + 1)

	var (
		rows []sqlc.Chat
		err  error
	)
	switch {
	case startingAfter != nil || endingBefore != nil:
		cursorID := startingAfter
		if cursorID == nil {
			cursorID = endingBefore
		}
		cursor, cerr := s.queries.GetChatByID(ctx, *cursorID)
		if cerr != nil {
			if errors.Is(cerr, pgx.ErrNoRows) {
				return nil, fmt.Errorf("chat %s: %w", cursorID, domain.ErrCursorNotFound)
			}
			return nil, fmt.Errorf("get cursor chat: %w", cerr)
		}
		params := sqlc.GetChatsByUserIDCursorParams{UserID: userID, CreatedAt: cursor.CreatedAt, Limit: extended}
		if startingAfter != nil {
			rows, err = s.queries.GetChatsByUserIDAfter(ctx, params)
		} else {
			rows, err = s.queries.GetChatsByUserIDBefore(ctx, params)
		}
	default:
		rows, err = s.queries.GetChatsByUserID(ctx, sqlc.GetChatsByUserIDParams{UserID: userID, Limit: extended})
	}
	if err != nil {
		return nil, fmt.Errorf("get chats by user: %w", err)
	}

	history := &domain.ChatHistory{Chats: make([]domain.Chat, 0, len(rows)), HasMore: len(rows) > limit}
	if history.HasMore {
		rows = rows[:limit]
	}
	for _, row := range rows {
		chat, err := rowToChat(row)
		if err != nil {
			return nil, err
		}
		history.Chats = append(history.Chats, *chat)
	}
	return history, nil
}

func (s *Store) DeleteChatByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	row, err := s.queries.DeleteChatByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChatNotFound
		}
		return nil, fmt.Errorf("delete chat: %w", err)
	}
	return rowToChat(row)
}

func (s *Store) DeleteAllChatsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.queries.DeleteAllChatsByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete chats: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateChatVisibilityByID(ctx context.Context, id uuid.UUID, visibility domain.Visibility) error {
	n, err := s.queries.UpdateChatVisibilityByID(ctx, id, string(visibility))
	return updated("update chat visibility", n, err)
}

func (s *Store) UpdateChatTitleByID(ctx context.Context, id uuid.UUID, title string) error {
	n, err := s.queries.UpdateChatTitleByID(ctx, id, title)
	return updated("update chat title", n, err)
}

func (s *Store) UpdateChatLastContextByID(ctx context.Context, id uuid.UUID, summary domain.UsageSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode usage: %w", err)
	}
	n, err := s.queries.UpdateChatLastContextByID(ctx, id, raw)
	return updated("update chat last context", n, err)
}

func updated(op string, n int64, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return domain.ErrChatNotFound
	}
	return nil
}

// Messages

func (s *Store) GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	rows, err := s.queries.GetMessagesByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		msg, err := rowToMessage(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (s *Store) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	row, err := s.queries.GetMessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return rowToMessage(row)
}

// SaveMessages inserts messages in a single transaction.
func (s *Store) SaveMessages(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	params := make([]sqlc.CreateMessageParams, 0, len(messages))
	for _, m := range messages {
		p, err := messageParams(m, s.now())
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.queries.WithTx(tx).CreateMessages(ctx, params); err != nil {
		return fmt.Errorf("save messages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) DeleteMessagesByChatIDAfterTimestamp(ctx context.Context, chatID uuid.UUID, ts time.Time) (int64, error) {
	n, err := s.queries.DeleteMessagesByChatIDAfterTimestamp(ctx, chatID, ts)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return n, nil
}

// GetMessageCountByUserID counts user-role messages sent in the trailing window.
func (s *Store) GetMessageCountByUserID(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error) {
	n, err := s.queries.GetMessageCountByUserID(ctx, userID, s.now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return int(n), nil
}

// Documents

func (s *Store) SaveDocument(ctx context.Context, doc domain.Document) error {
	err := s.queries.SaveDocument(ctx, sqlc.SaveDocumentParams{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		UserID:    doc.UserID,
		Title:     doc.Title,
		Kind:      string(doc.Kind),
		Content:   doc.Content,
	})
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// GetDocumentByID returns the latest version of a document.
func (s *Store) GetDocumentByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	row, err := s.queries.GetLatestDocumentByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return rowToDocument(row), nil
}

// GetDocumentsByID returns every version of a document, oldest first.
func (s *Store) GetDocumentsByID(ctx context.Context, id uuid.UUID) ([]domain.Document, error) {
	rows, err := s.queries.GetDocumentsByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	docs := make([]domain.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, *rowToDocument(row))
	}
	return docs, nil
}

func (s *Store) SaveSuggestions(ctx context.Context, suggestions []domain.Suggestion) error {
	rows := make([]sqlc.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		rows = append(rows, sqlc.Suggestion{
			ID:                sg.ID,
			DocumentID:        sg.DocumentID,
			DocumentCreatedAt: sg.DocumentCreatedAt,
			UserID:            sg.UserID,
			OriginalText:      sg.OriginalText,
			SuggestedText:     sg.SuggestedText,
			Description:       sg.Description,
			IsResolved:        sg.IsResolved,
			CreatedAt:         sg.CreatedAt,
		})
	}
	if err := s.queries.CreateSuggestions(ctx, rows); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return nil
}

func (s *Store) GetSuggestionsByDocumentID(ctx context.Context, documentID uuid.UUID) ([]domain.Suggestion, error) {
	rows, err := s.queries.GetSuggestionsByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get suggestions: %w", err)
	}
	out := make([]domain.Suggestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Suggestion{
			ID:                r.ID,
			DocumentID:        r.DocumentID,
			DocumentCreatedAt: r.DocumentCreatedAt,
			UserID:            r.UserID,
			OriginalText:      r.OriginalText,
			SuggestedText:     r.SuggestedText,
			Description:       r.Description,
			IsResolved:        r.IsResolved,
			CreatedAt:         r.CreatedAt,
		})
	}
	return out, nil
}
