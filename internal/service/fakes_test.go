package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

// memoryStore is an in-memory ChatStore, UserStore and DocumentStore.
type memoryStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]domain.User
	chats       map[uuid.UUID]domain.Chat
	messages    []domain.Message
	documents   []domain.Document
	suggestions []domain.Suggestion
	failSave    error
	failUsage   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users: make(map[uuid.UUID]domain.User),
		chats: make(map[uuid.UUID]domain.Chat),
	}
}

func (s *memoryStore) CreateUser(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	s.users[u.ID] = u
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

func (s *memoryStore) GetChatsByUserID(_ context.Context, userID uuid.UUID, limit int, startingAfter, endingBefore *uuid.UUID) (*domain.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []domain.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			chats = append(chats, c)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].CreatedAt.After(chats[j].CreatedAt) })

	if startingAfter != nil || endingBefore != nil {
		cursor := startingAfter
		if cursor == nil {
			cursor = endingBefore
		}
		at := -1
		for i, c := range chats {
			if c.ID == *cursor {
				at = i
			}
		}
		if at < 0 {
			return nil, domain.ErrCursorNotFound
		}
		if startingAfter != nil {
			chats = chats[at+1:]
		} else {
			chats = chats[:at]
		}
	}

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
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ChatID != id {
			kept = append(kept, m)
		}
	}
	s.messages = kept
	return &c, nil
}

func (s *memoryStore) DeleteAllChatsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var ids []uuid.UUID
	s.mu.Lock()
	for id, c := range s.chats {
		if c.UserID == userID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	for _, id := range ids {
		if _, err := s.DeleteChatByID(ctx, id); err != nil {
			return 0, err
		}
	}
	return int64(len(ids)), nil
}

func (s *memoryStore) update(id uuid.UUID, fn func(*domain.Chat)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok {
		return domain.ErrChatNotFound
	}
	fn(&c)
	s.chats[id] = c
	return nil
}

func (s *memoryStore) UpdateChatVisibilityByID(_ context.Context, id uuid.UUID, visibility domain.Visibility) error {
	return s.update(id, func(c *domain.Chat) { c.Visibility = visibility })
}

func (s *memoryStore) UpdateChatTitleByID(_ context.Context, id uuid.UUID, title string) error {
	return s.update(id, func(c *domain.Chat) { c.Title = title })
}

func (s *memoryStore) UpdateChatLastContextByID(_ context.Context, id uuid.UUID, summary domain.UsageSummary) error {
	if s.failUsage != nil {
		return s.failUsage
	}
	return s.update(id, func(c *domain.Chat) { c.LastContext = &summary })
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
	if s.failSave != nil {
		return s.failSave
	}
	s.messages = append(s.messages, messages...)
	return nil
}

func (s *memoryStore) DeleteMessagesByChatIDAfterTimestamp(_ context.Context, chatID uuid.UUID, ts time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	kept := s.messages[:0]
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

func (s *memoryStore) GetDocumentsByID(_ context.Context, id uuid.UUID) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range s.documents {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memoryStore) GetSuggestionsByDocumentID(_ context.Context, documentID uuid.UUID) ([]domain.Suggestion, error) {
	var out []domain.Suggestion
	for _, sg := range s.suggestions {
		if sg.DocumentID == documentID {
			out = append(out, sg)
		}
	}
	return out, nil
}

type chunkStream struct {
	chunks []llm.Chunk
	i      int
}

func (s *chunkStream) Recv() (llm.Chunk, error) {
	if s.i >= len(s.chunks) {
		return llm.Chunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *chunkStream) Close() error { return nil }

// fakeGateway streams a fixed answer and generates a fixed title.
type fakeGateway struct {
	mu        sync.Mutex
	reasoning []string
	answer    []string
	title     string
	streamErr error
	titleErr  error
	requests  []llm.Request
}

func (g *fakeGateway) Stream(_ context.Context, req llm.Request) (llm.Stream, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.streamErr != nil {
		return nil, g.streamErr
	}
	var chunks []llm.Chunk
	for _, r := range g.reasoning {
		chunks = append(chunks, llm.Chunk{Reasoning: r})
	}
	for _, t := range g.answer {
		chunks = append(chunks, llm.Chunk{Text: t})
	}
	chunks = append(chunks, llm.Chunk{
		Usage:        &domain.Usage{InputTokens: 12, OutputTokens: 4, TotalTokens: 16},
		FinishReason: domain.FinishStop,
	})
	return &chunkStream{chunks: chunks}, nil
}

func (g *fakeGateway) Generate(_ context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.titleErr != nil {
		return "", g.titleErr
	}
	return g.title, nil
}

func (g *fakeGateway) streamRequests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []llm.Request
	for _, r := range g.requests {
		if r.System != titlePrompt {
			out = append(out, r)
		}
	}
	return out
}

type fakeCatalog struct {
	models map[string]domain.AIModel
	err    error
}

func (c *fakeCatalog) GetModel(_ context.Context, modelID string) (*domain.AIModel, error) {
	if c.err != nil {
		return nil, c.err
	}
	m, ok := c.models[modelID]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return &m, nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	records map[uuid.UUID][][]byte
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{records: make(map[uuid.UUID][][]byte)}
}

func (r *memoryRecorder) Reset(_ context.Context, chatID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, chatID)
	return nil
}

func (r *memoryRecorder) Append(_ context.Context, chatID uuid.UUID, record []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[chatID] = append(r.records[chatID], record)
	return nil
}

func (r *memoryRecorder) Records(_ context.Context, chatID uuid.UUID) ([][]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[chatID], nil
}

type collectSink struct {
	events []domain.Event
}

func (s *collectSink) Send(ev domain.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *collectSink) types() []domain.EventType {
	var out []domain.EventType
	for _, ev := range s.events {
		out = append(out, ev.EventType())
	}
	return out
}

var errBoom = errors.New("boom")
