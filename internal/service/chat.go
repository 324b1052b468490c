package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/resume"
	"github.com/set-night/mindchat/internal/stream"
	"github.com/set-night/mindchat/internal/tools"
)

// ChatRequest is a validated chat turn request.
type ChatRequest struct {
	ChatID     uuid.UUID
	Message    domain.Message
	ChatModel  string
	Visibility domain.Visibility
	Hints      RequestHints
}

// ChatView is a chat with its messages as seen by a reader.
type ChatView struct {
	Chat       domain.Chat      `json:"chat"`
	Messages   []domain.Message `json:"messages"`
	IsReadonly bool             `json:"isReadonly"`
}

// DefaultChatModels binds the selectable chat models to provider models.
func DefaultChatModels(chatModel, reasoningModel string) []domain.ChatModel {
	return []domain.ChatModel{
		{
			ID:            domain.ChatModelDefault,
			Name:          "Chat model",
			Description:   "Primary model for all-purpose chat",
			ProviderModel: chatModel,
			Tools:         config.ActiveTools,
		},
		{
			ID:            domain.ChatModelReasoning,
			Name:          "Reasoning model",
			Description:   "Uses advanced reasoning",
			ProviderModel: reasoningModel,
			Reasoning:     true,
		},
	}
}

type ChatService struct {
	store    ChatStore
	mux      *stream.Multiplexer
	registry *tools.Registry
	titles   *TitleGenerator
	recorder resume.Recorder
	models   map[string]domain.ChatModel
	metrics  *chatMetrics
	now      func() time.Time
}

func NewChatService(
	store ChatStore,
	mux *stream.Multiplexer,
	registry *tools.Registry,
	titles *TitleGenerator,
	recorder resume.Recorder,
	models []domain.ChatModel,
) *ChatService {
	if recorder == nil {
		recorder = resume.Noop{}
	}
	byID := make(map[string]domain.ChatModel, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	return &ChatService{
		store:    store,
		mux:      mux,
		registry: registry,
		titles:   titles,
		recorder: recorder,
		models:   byID,
		metrics:  newChatMetrics(),
		now:      time.Now,
	}
}

func dbError(err error) *domain.ChatError {
	return domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceDatabase).WithCause(err.Error())
}

// Turn is a prepared chat turn: authorized, rate limited and with the user
// message already stored.
type Turn struct {
	svc     *ChatService
	session domain.Session
	chat    domain.Chat
	model   domain.ChatModel
	history []domain.Message
	hints   RequestHints
	isNew   bool
}

func (t *Turn) Chat() domain.Chat { return t.chat }

// Prepare runs every check of a turn that can fail before streaming starts.
func (s *ChatService) Prepare(ctx context.Context, session *domain.Session, req ChatRequest) (*Turn, error) {
	ctx, span := tracer.Start(ctx, "chat.prepare")
	defer span.End()
	span.SetAttributes(attribute.String("chat.id", req.ChatID.String()))

	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}

	model, ok := s.models[req.ChatModel]
	if !ok {
		return nil, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceAPI).WithCause(domain.ErrUnknownChatModel.Error())
	}

	userType := session.User.Type()
	entitlements := config.EntitlementsByUserType[string(userType)]
	if !slices.Contains(entitlements.AvailableChatModelIDs, model.ID) {
		return nil, domain.NewChatError(domain.ErrorForbidden, domain.SurfaceChat).WithCause("model not available for this account")
	}

	// Daily cap
	count, err := s.store.GetMessageCountByUserID(ctx, session.User.ID, config.RateLimitWindow)
	if err != nil {
		return nil, dbError(err)
	}
	if count > entitlements.MaxMessagesPerDay {
		s.metrics.limited(ctx, string(userType))
		return nil, domain.NewChatError(domain.ErrorRateLimit, domain.SurfaceChat)
	}

	turn := &Turn{svc: s, session: *session, model: model, hints: req.Hints}

	chat, err := s.store.GetChatByID(ctx, req.ChatID)
	switch {
	case err == nil:
		if !chat.OwnedBy(session.User.ID) {
			return nil, domain.NewChatError(domain.ErrorForbidden, domain.SurfaceChat)
		}
		turn.chat = *chat
		turn.history, err = s.store.GetMessagesByChatID(ctx, chat.ID)
		if err != nil {
			return nil, dbError(err)
		}
	case errors.Is(err, domain.ErrChatNotFound):
		msg := req.Message
		msg.ChatID = req.ChatID
		turn.chat = domain.Chat{
			ID:         req.ChatID,
			UserID:     session.User.ID,
			Title:      s.titles.Generate(ctx, msg),
			Visibility: req.Visibility,
			CreatedAt:  s.now().UTC(),
		}
		if err := s.store.SaveChat(ctx, turn.chat); err != nil {
			return nil, dbError(err)
		}
		turn.isNew = true
	default:
		return nil, dbError(err)
	}

	// The user message is stored before any generation.
	userMsg := req.Message
	userMsg.ChatID = req.ChatID
	userMsg.Role = domain.RoleUser
	if userMsg.CreatedAt.IsZero() {
		userMsg.CreatedAt = s.now().UTC()
	}
	if err := s.store.SaveMessages(ctx, []domain.Message{userMsg}); err != nil {
		return nil, dbError(err)
	}
	turn.history = append(turn.history, userMsg)

	return turn, nil
}

// Stream generates the assistant response into sink and persists it. Once it
// is called the response has started; failures are reported in-band.
func (t *Turn) Stream(ctx context.Context, sink stream.Sink) error {
	s := t.svc
	ctx, span := tracer.Start(ctx, "chat.stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.id", t.chat.ID.String()),
		attribute.String("chat.model", t.model.ProviderModel),
		attribute.Bool("chat.new", t.isNew),
	)

	detached := context.WithoutCancel(ctx)
	if err := s.recorder.Reset(detached, t.chat.ID); err != nil {
		slog.Warn("failed to reset stream record", "chat_id", t.chat.ID, "error", err)
	}
	sink = &recordingSink{ctx: detached, sink: sink, recorder: s.recorder, chatID: t.chat.ID}

	registry := tools.NewRegistry()
	if t.model.ToolsEnabled() && s.registry != nil {
		registry = s.registry.Only(t.model.Tools)
	}
	span.SetAttributes(attribute.Int("chat.tools", registry.Len()))

	res, err := s.mux.Run(ctx, stream.Turn{
		ChatID:   t.chat.ID,
		Model:    t.model.ProviderModel,
		System:   systemPrompt(t.model.Reasoning, t.hints),
		Messages: toModelMessages(t.history),
		Tools:    registry,
		Env:      tools.Env{Session: t.session},
	}, sink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil {
			slog.Info("chat turn cancelled", "chat_id", t.chat.ID, "error", err)
			return fmt.Errorf("stream chat: %w", err)
		}

		ce := domain.NewChatError(domain.ErrorOffline, domain.SurfaceChat)
		if sendErr := sink.Send(domain.ErrorEvent{Code: ce.Code(), Message: ce.Message()}); sendErr != nil {
			slog.Warn("failed to send error event", "chat_id", t.chat.ID, "error", sendErr)
		}
		return fmt.Errorf("stream chat: %w", err)
	}

	span.SetAttributes(
		attribute.Int("chat.steps", res.Steps),
		attribute.String("chat.finish_reason", res.FinishReason),
	)
	s.metrics.turn(ctx, t.model.ProviderModel, res.FinishReason, res.Usage.InputTokens, res.Usage.OutputTokens)

	if err := s.store.SaveMessages(detached, res.Messages); err != nil {
		return fmt.Errorf("save assistant messages: %w", err)
	}

	// Best effort, one attempt.
	usageCtx, cancel := context.WithTimeout(detached, config.UsageWriteTimeout)
	defer cancel()
	if err := s.store.UpdateChatLastContextByID(usageCtx, t.chat.ID, res.Usage); err != nil {
		slog.Warn("failed to persist usage", "chat_id", t.chat.ID, "error", err)
	}

	slog.Debug("chat turn finished",
		"chat_id", t.chat.ID,
		"new_chat", t.isNew,
		"steps", res.Steps,
		"finish_reason", res.FinishReason,
	)
	return nil
}

// recordingSink copies every event to the replay recorder.
type recordingSink struct {
	ctx      context.Context
	sink     stream.Sink
	recorder resume.Recorder
	chatID   uuid.UUID
	failed   bool
}

func (r *recordingSink) Send(ev domain.Event) error {
	if err := r.sink.Send(ev); err != nil {
		return err
	}
	if r.failed {
		return nil
	}
	data, err := json.Marshal(ev)
	if err == nil {
		err = r.recorder.Append(r.ctx, r.chatID, data)
	}
	if err != nil {
		r.failed = true
		slog.Warn("stream recording stopped", "chat_id", r.chatID, "error", err)
	}
	return nil
}

func (s *ChatService) ownedChat(ctx context.Context, session *domain.Session, id uuid.UUID, missing *domain.ChatError) (*domain.Chat, error) {
	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}
	chat, err := s.store.GetChatByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			return nil, missing
		}
		return nil, dbError(err)
	}
	if !chat.OwnedBy(session.User.ID) {
		return nil, domain.NewChatError(domain.ErrorForbidden, domain.SurfaceChat)
	}
	return chat, nil
}

// DeleteChat deletes an owned chat with its messages. A missing chat is
// reported as forbidden, so repeated deletes answer the same way.
func (s *ChatService) DeleteChat(ctx context.Context, session *domain.Session, id uuid.UUID) (*domain.Chat, error) {
	forbidden := domain.NewChatError(domain.ErrorForbidden, domain.SurfaceChat)
	if _, err := s.ownedChat(ctx, session, id, forbidden); err != nil {
		return nil, err
	}

	deleted, err := s.store.DeleteChatByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			return nil, forbidden
		}
		return nil, dbError(err)
	}

	if err := s.recorder.Reset(ctx, id); err != nil {
		slog.Warn("failed to reset stream record", "chat_id", id, "error", err)
	}
	return deleted, nil
}

func (s *ChatService) UpdateVisibility(ctx context.Context, session *domain.Session, id uuid.UUID, visibility domain.Visibility) error {
	if !visibility.Valid() {
		return domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceAPI)
	}
	if _, err := s.ownedChat(ctx, session, id, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)); err != nil {
		return err
	}
	if err := s.store.UpdateChatVisibilityByID(ctx, id, visibility); err != nil {
		return dbError(err)
	}
	return nil
}

func (s *ChatService) UpdateTitle(ctx context.Context, session *domain.Session, id uuid.UUID, title string) error {
	title = fallbackTitle(title)
	if _, err := s.ownedChat(ctx, session, id, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)); err != nil {
		return err
	}
	if err := s.store.UpdateChatTitleByID(ctx, id, title); err != nil {
		return dbError(err)
	}
	return nil
}

// History lists the caller's chats newest first.
func (s *ChatService) History(ctx context.Context, session *domain.Session, limit int, startingAfter, endingBefore *uuid.UUID) (*domain.ChatHistory, error) {
	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}
	if startingAfter != nil && endingBefore != nil {
		return nil, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceAPI).
			WithCause("Only one of starting_after or ending_before can be provided.")
	}
	if limit <= 0 {
		limit = config.HistoryPageSize
	}
	if limit > config.HistoryMaxPageSize {
		limit = config.HistoryMaxPageSize
	}

	history, err := s.store.GetChatsByUserID(ctx, session.User.ID, limit, startingAfter, endingBefore)
	if err != nil {
		if errors.Is(err, domain.ErrCursorNotFound) {
			return nil, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceDatabase).WithCause(err.Error())
		}
		return nil, dbError(err)
	}
	return history, nil
}

func (s *ChatService) DeleteAllChats(ctx context.Context, session *domain.Session) (int64, error) {
	if session == nil {
		return 0, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}
	n, err := s.store.DeleteAllChatsByUserID(ctx, session.User.ID)
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}

// GetChat returns a chat for reading. Public chats are readable by any
// signed-in user; only the owner may write.
func (s *ChatService) GetChat(ctx context.Context, session *domain.Session, id uuid.UUID) (*ChatView, error) {
	chat, err := s.readableChat(ctx, session, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessagesByChatID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return &ChatView{Chat: *chat, Messages: messages, IsReadonly: !chat.OwnedBy(session.User.ID)}, nil
}

func (s *ChatService) readableChat(ctx context.Context, session *domain.Session, id uuid.UUID) (*domain.Chat, error) {
	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}
	chat, err := s.store.GetChatByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrChatNotFound) {
			return nil, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)
		}
		return nil, dbError(err)
	}
	// Another user's private chat reads as missing.
	if chat.Visibility == domain.VisibilityPrivate && !chat.OwnedBy(session.User.ID) {
		return nil, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)
	}
	return chat, nil
}

// Replay returns the recorded events of the chat's latest turn.
func (s *ChatService) Replay(ctx context.Context, session *domain.Session, id uuid.UUID) ([][]byte, error) {
	if _, err := s.readableChat(ctx, session, id); err != nil {
		return nil, err
	}
	records, err := s.recorder.Records(ctx, id)
	if err != nil {
		return nil, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceStream).WithCause(err.Error())
	}
	return records, nil
}

// DeleteTrailingMessages deletes the message and everything after it in its chat.
func (s *ChatService) DeleteTrailingMessages(ctx context.Context, session *domain.Session, messageID uuid.UUID) (int64, error) {
	if session == nil {
		return 0, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceChat)
	}
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return 0, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)
		}
		return 0, dbError(err)
	}
	if _, err := s.ownedChat(ctx, session, msg.ChatID, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceChat)); err != nil {
		return 0, err
	}

	n, err := s.store.DeleteMessagesByChatIDAfterTimestamp(ctx, msg.ChatID, msg.CreatedAt)
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}
