package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// safeRedirect keeps redirects on this site.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

// GuestSignIn provisions a guest account and signs it in. Callers that already
// hold a session are sent home.
func (h *Handler) GuestSignIn(c *gin.Context) {
	if _, err := h.tokens.SessionFromRequest(c.Request); err == nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := h.users.CreateGuest(c.Request.Context())
	if err != nil {
		slog.Error("guest sign-in failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: "bad_request:auth", Message: genericMessage})
		return
	}

	token, expiresAt, err := h.tokens.Issue(*user)
	if err != nil {
		slog.Error("issue guest token", "error", err, "user_id", user.ID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: "bad_request:auth", Message: genericMessage})
		return
	}

	http.SetCookie(c.Writer, h.tokens.Cookie(token, expiresAt, h.cookieSecure))
	c.Redirect(http.StatusFound, safeRedirect(c.Query("redirectUrl")))
}
