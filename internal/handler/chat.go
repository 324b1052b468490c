package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/stream"
)

type partBody struct {
	Type      string `json:"type" binding:"required,oneof=text file"`
	Text      string `json:"text"`
	MediaType string `json:"mediaType" binding:"omitempty,oneof=image/jpeg image/png"`
	Name      string `json:"name"`
	URL       string `json:"url" binding:"omitempty,url"`
}

type messageBody struct {
	ID    string     `json:"id" binding:"required,uuid"`
	Role  string     `json:"role" binding:"required,eq=user"`
	Parts []partBody `json:"parts" binding:"required,min=1,dive"`
}

type chatBody struct {
	ID                     string      `json:"id" binding:"required,uuid"`
	Message                messageBody `json:"message"`
	SelectedChatModel      string      `json:"selectedChatModel" binding:"required,oneof=chat-model chat-model-reasoning"`
	SelectedVisibilityType string      `json:"selectedVisibilityType" binding:"required,oneof=private public"`
}

// validate checks what binding tags cannot express per part kind.
func (b *chatBody) validate() string {
	for i, p := range b.Message.Parts {
		switch p.Type {
		case string(domain.PartText):
			if n := utf8.RuneCountInString(p.Text); n < 1 || n > 2000 {
				return "text part must be 1 to 2000 characters"
			}
		case string(domain.PartFile):
			if p.MediaType == "" || p.URL == "" {
				return "file part requires mediaType and url"
			}
			if n := utf8.RuneCountInString(p.Name); n < 1 || n > 100 {
				return "file name must be 1 to 100 characters"
			}
			u, err := url.Parse(p.URL)
			if err != nil || !u.IsAbs() {
				return "file url must be absolute"
			}
		default:
			return fmt.Sprintf("unsupported part type at index %d", i)
		}
	}
	return ""
}

func (b *chatBody) toRequest(hints service.RequestHints) service.ChatRequest {
	msg := domain.Message{
		ID:          uuid.MustParse(b.Message.ID),
		Role:        domain.RoleUser,
		Attachments: []domain.Attachment{},
	}
	for _, p := range b.Message.Parts {
		msg.Parts = append(msg.Parts, domain.Part{
			Type:      domain.PartType(p.Type),
			Text:      p.Text,
			MediaType: p.MediaType,
			Name:      p.Name,
			URL:       p.URL,
		})
	}
	return service.ChatRequest{
		ChatID:     uuid.MustParse(b.ID),
		Message:    msg,
		ChatModel:  b.SelectedChatModel,
		Visibility: domain.Visibility(b.SelectedVisibilityType),
		Hints:      hints,
	}
}

// requestHints reads the geolocation headers set by the edge.
func requestHints(r *http.Request) service.RequestHints {
	header := func(name string) string {
		v := strings.TrimSpace(r.Header.Get(name))
		if u, err := url.QueryUnescape(v); err == nil {
			return u
		}
		return v
	}
	return service.RequestHints{
		Latitude:  header("X-Vercel-IP-Latitude"),
		Longitude: header("X-Vercel-IP-Longitude"),
		City:      header("X-Vercel-IP-City"),
		Country:   header("X-Vercel-IP-Country"),
		Timezone:  header("X-Vercel-IP-Timezone"),
	}
}

// PostChat runs one chat turn and streams it as server-sent events.
func (h *Handler) PostChat(c *gin.Context) {
	var body chatBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if cause := body.validate(); cause != "" {
		badRequest(c, cause)
		return
	}

	turn, err := h.chats.Prepare(c.Request.Context(), middleware.GetSession(c), body.toRequest(requestHints(c.Request)))
	if err != nil {
		respondError(c, err)
		return
	}

	stream.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	w := stream.NewWriter(c.Writer)
	defer w.Close()

	if err := turn.Stream(c.Request.Context(), w); err != nil {
		slog.Warn("chat turn failed", "chat_id", turn.Chat().ID, "error", err)
	}
}

func (h *Handler) DeleteChat(c *gin.Context) {
	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		badRequest(c, "Parameter id is required.")
		return
	}

	chat, err := h.chats.DeleteChat(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Parameter id must be a UUID.")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) GetChat(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.chats.GetChat(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) UpdateVisibility(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Visibility string `json:"visibility" binding:"required,oneof=private public"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.chats.UpdateVisibility(c.Request.Context(), middleware.GetSession(c), id, domain.Visibility(body.Visibility)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "visibility": body.Visibility})
}

func (h *Handler) UpdateTitle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title" binding:"required,max=200"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := h.chats.UpdateTitle(c.Request.Context(), middleware.GetSession(c), id, body.Title); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// ReplayStream re-sends the recorded events of the chat's latest turn.
func (h *Handler) ReplayStream(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	records, err := h.chats.Replay(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(records) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	stream.SetHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	w := stream.NewWriter(c.Writer)
	defer w.Close()
	for _, rec := range records {
		if err := w.WriteRecord(rec); err != nil {
			slog.Debug("replay aborted", "chat_id", id, "error", err)
			return
		}
	}
}

func (h *Handler) DeleteTrailingMessages(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	n, err := h.chats.DeleteTrailingMessages(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
