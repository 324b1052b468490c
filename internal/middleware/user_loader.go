package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/auth"
	"github.com/set-night/mindchat/internal/domain"
)

const SessionKey = "session"

// UserGetter loads accounts by id.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// GetSession extracts the session loaded by SessionLoader.
func GetSession(c *gin.Context) *domain.Session {
	s, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	session, _ := s.(*domain.Session)
	return session
}

// SessionLoader returns middleware that resolves the request credentials to a
// session. Requests without valid credentials continue anonymously.
func SessionLoader(tokens *auth.Manager, users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := tokens.SessionFromRequest(c.Request)
		if err != nil {
			if !errors.Is(err, auth.ErrNoCredentials) {
				slog.Debug("session rejected", "error", err)
			}
			c.Next()
			return
		}

		// Tokens of deleted accounts are not sessions
		user, err := users.GetByID(c.Request.Context(), session.User.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				slog.Error("load session user", "error", err, "user_id", session.User.ID)
			}
			c.Next()
			return
		}
		session.User = *user

		c.Set(SessionKey, session)
		c.Next()
	}
}

// RequireSession aborts requests that carry no session.
func RequireSession(surface domain.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetSession(c) == nil {
			ce := domain.NewChatError(domain.ErrorUnauthorized, surface)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": ce.Code(), "message": ce.Message()})
			return
		}
		c.Next()
	}
}
