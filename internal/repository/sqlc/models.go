package sqlc

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	Email     string
	CreatedAt time.Time
}

type Chat struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Visibility  string
	LastContext []byte
	CreatedAt   time.Time
}

type Message struct {
	ID          uuid.UUID
	ChatID      uuid.UUID
	Role        string
	Parts       []byte
	Attachments []byte
	CreatedAt   time.Time
}

type Document struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	Title     string
	Kind      string
	Content   string
}

type Suggestion struct {
	ID                uuid.UUID
	DocumentID        uuid.UUID
	DocumentCreatedAt time.Time
	UserID            uuid.UUID
	OriginalText      string
	SuggestedText     string
	Description       string
	IsResolved        bool
	CreatedAt         time.Time
}
