package handler

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

type memoryStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]domain.User
	chats    map[uuid.UUID]domain.Chat
	messages []domain.Message
	countErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[uuid.UUID]domain.User{}, chats: map[uuid.UUID]domain.Chat{}}
}

func (s *memoryStore) addUser(email string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *memoryStore) CreateUser(_ context.Context, email string) (*domain.User, error) {
	u := s.addUser(email)
	return &u, nil
}

func (s *memoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *memoryStore) GetChatByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	return &c, nil
}

func (s *memoryStore) SaveChat(_ context.Context, chat domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chat.ID]; !ok {
		s.chats[chat.ID] = chat
	}
	return nil
}

func (s *memoryStore) GetChatsByUserID(_ context.Context, userID uuid.UUID, limit int, _, _ *uuid.UUID) (*domain.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats := []domain.Chat{}
	for _, c := range s.chats {
		if c.UserID == userID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].CreatedAt.After(chats[j].CreatedAt) })
	hasMore := len(chats) > limit
	if hasMore {
		chats = chats[:limit]
	}
	return &domain.ChatHistory{Chats: chats, HasMore: hasMore}, nil
}

func (s *memoryStore) DeleteChatByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrChatNotFound
	}
	delete(s.chats, id)
	return &c, nil
}

func (s *memoryStore) DeleteAllChatsByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.chats {
		if c.UserID == userID {
			delete(s.chats, id)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) UpdateChatVisibilityByID(_ context.Context, id uuid.UUID, visibility domain.Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chats[id]
	c.Visibility = visibility
	s.chats[id] = c
	return nil
}

func (s *memoryStore) UpdateChatTitleByID(_ context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chats[id]
	c.Title = title
	s.chats[id] = c
	return nil
}

func (s *memoryStore) UpdateChatLastContextByID(_ context.Context, id uuid.UUID, summary domain.UsageSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.chats[id]
	c.LastContext = &summary
	s.chats[id] = c
	return nil
}

func (s *memoryStore) GetMessagesByChatID(_ context.Context, chatID uuid.UUID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) GetMessageByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, domain.ErrMessageNotFound
}

func (s *memoryStore) SaveMessages(_ context.Context, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, messages...)
	return nil
}

func (s *memoryStore) DeleteMessagesByChatIDAfterTimestamp(_ context.Context, chatID uuid.UUID, ts time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	var kept []domain.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.CreatedAt.Before(ts) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return n, nil
}

func (s *memoryStore) GetMessageCountByUserID(_ context.Context, userID uuid.UUID, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	since := time.Now().Add(-window)
	n := 0
	for _, m := range s.messages {
		c, ok := s.chats[m.ChatID]
		if ok && c.UserID == userID && m.Role == domain.RoleUser && m.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type textStream struct {
	chunks []llm.Chunk
	i      int
}

func (s *textStream) Recv() (llm.Chunk, error) {
	if s.i >= len(s.chunks) {
		return llm.Chunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *textStream) Close() error { return nil }

type answerGateway struct{}

func (answerGateway) Stream(context.Context, llm.Request) (llm.Stream, error) {
	return &textStream{chunks: []llm.Chunk{
		{Text: "The sky "},
		{Text: "is blue."},
		{Usage: &domain.Usage{InputTokens: 9, OutputTokens: 4, TotalTokens: 13}, FinishReason: domain.FinishStop},
	}}, nil
}

func (answerGateway) Generate(context.Context, llm.Request) (string, error) {
	return "Sky color", nil
}

type noCatalog struct{}

func (noCatalog) GetModel(context.Context, string) (*domain.AIModel, error) {
	return nil, domain.ErrModelNotFound
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) CreateGuest(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

type mockDocuments struct {
	mock.Mock
}

func (m *mockDocuments) GetDocuments(ctx context.Context, session *domain.Session, id uuid.UUID) ([]domain.Document, error) {
	args := m.Called(ctx, session, id)
	docs, _ := args.Get(0).([]domain.Document)
	return docs, args.Error(1)
}

func (m *mockDocuments) GetSuggestions(ctx context.Context, session *domain.Session, documentID uuid.UUID) ([]domain.Suggestion, error) {
	args := m.Called(ctx, session, documentID)
	suggestions, _ := args.Get(0).([]domain.Suggestion)
	return suggestions, args.Error(1)
}
