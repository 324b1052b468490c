package domain

import (
	"time"

	"github.com/google/uuid"
)

type ArtifactKind string

const (
	ArtifactText  ArtifactKind = "text"
	ArtifactCode  ArtifactKind = "code"
	ArtifactSheet ArtifactKind = "sheet"
)

func (k ArtifactKind) Valid() bool {
	switch k {
	case ArtifactText, ArtifactCode, ArtifactSheet:
		return true
	}
	return false
}

// Document is one version of an artifact; versions share ID and differ by CreatedAt.
type Document struct {
	ID        uuid.UUID    `json:"id"`
	CreatedAt time.Time    `json:"createdAt"`
	UserID    uuid.UUID    `json:"userId"`
	Title     string       `json:"title"`
	Kind      ArtifactKind `json:"kind"`
	Content   string       `json:"content"`
}

type Suggestion struct {
	ID                uuid.UUID `json:"id"`
	DocumentID        uuid.UUID `json:"documentId"`
	DocumentCreatedAt time.Time `json:"documentCreatedAt"`
	UserID            uuid.UUID `json:"userId"`
	OriginalText      string    `json:"originalText"`
	SuggestedText     string    `json:"suggestedText"`
	Description       string    `json:"description"`
	IsResolved        bool      `json:"isResolved"`
	CreatedAt         time.Time `json:"createdAt"`
}
