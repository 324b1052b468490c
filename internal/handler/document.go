package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/middleware"
)

func (h *Handler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Query("id"))
	if err != nil {
		respondError(c, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceDocument).WithCause("Parameter id is missing"))
		return
	}

	docs, err := h.documents.GetDocuments(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) GetSuggestions(c *gin.Context) {
	id, err := uuid.Parse(c.Query("documentId"))
	if err != nil {
		respondError(c, domain.NewChatError(domain.ErrorBadRequest, domain.SurfaceAPI).WithCause("Parameter documentId is required."))
		return
	}

	suggestions, err := h.documents.GetSuggestions(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}
