package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
)

// DocumentService serves stored artifact versions to their owners.
type DocumentService struct {
	store DocumentStore
}

func NewDocumentService(store DocumentStore) *DocumentService {
	return &DocumentService{store: store}
}

// GetDocuments returns every version of a document, oldest first.
func (s *DocumentService) GetDocuments(ctx context.Context, session *domain.Session, id uuid.UUID) ([]domain.Document, error) {
	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceDocument)
	}

	docs, err := s.store.GetDocumentsByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if len(docs) == 0 {
		return nil, domain.NewChatError(domain.ErrorNotFound, domain.SurfaceDocument)
	}
	if docs[0].UserID != session.User.ID {
		return nil, domain.NewChatError(domain.ErrorForbidden, domain.SurfaceDocument)
	}
	return docs, nil
}

func (s *DocumentService) GetSuggestions(ctx context.Context, session *domain.Session, documentID uuid.UUID) ([]domain.Suggestion, error) {
	if session == nil {
		return nil, domain.NewChatError(domain.ErrorUnauthorized, domain.SurfaceSuggestion)
	}

	suggestions, err := s.store.GetSuggestionsByDocumentID(ctx, documentID)
	if err != nil {
		return nil, dbError(err)
	}
	if len(suggestions) == 0 {
		return []domain.Suggestion{}, nil
	}
	if suggestions[0].UserID != session.User.ID {
		return nil, domain.NewChatError(domain.ErrorForbidden, domain.SurfaceSuggestion)
	}
	return suggestions, nil
}
