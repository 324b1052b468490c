package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/middleware"
)

func optionalID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "Parameter "+name+" must be a UUID.")
		return nil, false
	}
	return &id, true
}

// History lists the caller's chats, newest first.
func (h *Handler) History(c *gin.Context) {
	limit := config.HistoryPageSize
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			badRequest(c, "Parameter limit must be a positive integer.")
			return
		}
		limit = n
	}

	startingAfter, ok := optionalID(c, "starting_after")
	if !ok {
		return
	}
	endingBefore, ok := optionalID(c, "ending_before")
	if !ok {
		return
	}

	page, err := h.chats.History(c.Request.Context(), middleware.GetSession(c), limit, startingAfter, endingBefore)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) DeleteHistory(c *gin.Context) {
	n, err := h.chats.DeleteAllChats(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedCount": n})
}
