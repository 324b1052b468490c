package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/auth"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
	"github.com/set-night/mindchat/internal/service"
)

// Users provisions and loads accounts.
type Users interface {
	CreateGuest(ctx context.Context) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Documents reads stored artifacts.
type Documents interface {
	GetDocuments(ctx context.Context, session *domain.Session, id uuid.UUID) ([]domain.Document, error)
	GetSuggestions(ctx context.Context, session *domain.Session, documentID uuid.UUID) ([]domain.Suggestion, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies needed by the HTTP handlers.
type Handler struct {
	chats        *service.ChatService
	users        Users
	documents    Documents
	tokens       *auth.Manager
	db           Pinger
	limiter      middleware.Counter
	cookieSecure bool
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Chats        *service.ChatService
	Users        Users
	Documents    Documents
	Tokens       *auth.Manager
	DB           Pinger
	Limiter      middleware.Counter
	CookieSecure bool
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		chats:        deps.Chats,
		users:        deps.Users,
		documents:    deps.Documents,
		tokens:       deps.Tokens,
		db:           deps.DB,
		limiter:      deps.Limiter,
		cookieSecure: deps.CookieSecure,
	}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recover(), middleware.Logging())

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/auth/guest",
		middleware.RateLimit(h.limiter, "guest", config.GuestSignInLimit, config.GuestSignInWindow),
		h.GuestSignIn,
	)

	api.Use(middleware.SessionLoader(h.tokens, h.users))
	{
		api.POST("/chat", h.PostChat)
		api.DELETE("/chat", h.DeleteChat)
		api.GET("/chat/:id", h.GetChat)
		api.PATCH("/chat/:id/visibility", h.UpdateVisibility)
		api.PATCH("/chat/:id/title", h.UpdateTitle)
		api.GET("/chat/:id/stream", h.ReplayStream)
		api.DELETE("/chat/messages/:id/trailing", h.DeleteTrailingMessages)

		api.GET("/history", h.History)
		api.DELETE("/history", h.DeleteHistory)

		api.GET("/document", middleware.RequireSession(domain.SurfaceDocument), h.GetDocument)
		api.GET("/suggestions", middleware.RequireSession(domain.SurfaceSuggestion), h.GetSuggestions)
	}

	return r
}
