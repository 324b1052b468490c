package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/set-night/mindchat/internal/domain"
)

const genericMessage = "Something went wrong. Please try again later."

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// respondError writes err as a structured error body.
func respondError(c *gin.Context, err error) {
	ce := domain.AsChatError(err, nil)
	if ce == nil {
		if errors.Is(err, context.Canceled) {
			c.Abort()
			return
		}
		slog.Error("unhandled request error", "error", err, "path", c.FullPath())
		ce = domain.NewChatError(domain.ErrorOffline, domain.SurfaceChat)
	}

	_ = c.Error(err)
	body := errorBody{Code: ce.Code(), Message: ce.Message(), Cause: ce.Cause}
	if ce.Logged() {
		slog.Error("database error", "code", ce.Code(), "cause", ce.Cause, "path", c.FullPath())
		body = errorBody{Message: genericMessage}
	}
	c.AbortWithStatusJSON(ce.StatusCode(), body)
}

func badRequest(c *gin.Context, cause string) {
	respondError(c, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceAPI).WithCause(cause))
}
