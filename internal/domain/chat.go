package domain

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

type Chat struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Title       string        `json:"title"`
	Visibility  Visibility    `json:"visibility"`
	LastContext *UsageSummary `json:"lastContext,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (c *Chat) OwnedBy(userID uuid.UUID) bool {
	return c.UserID == userID
}

// ChatHistory is one page of a user's chats, newest first.
type ChatHistory struct {
	Chats   []Chat `json:"chats"`
	HasMore bool   `json:"hasMore"`
}
