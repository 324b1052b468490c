package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/llm"
)

type DocumentStore interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	SaveSuggestions(ctx context.Context, suggestions []domain.Suggestion) error
}

// Documents builds the artifact tools, which share a store and the artifact model.
type Documents struct {
	store   DocumentStore
	gateway llm.Gateway
	model   string
	now     func() time.Time
}

func NewDocuments(store DocumentStore, gateway llm.Gateway, model string) *Documents {
	return &Documents{store: store, gateway: gateway, model: model, now: time.Now}
}

func (d *Documents) Tools() []Tool {
	return []Tool{&createDocument{d}, &updateDocument{d}, &requestSuggestions{d}}
}

type documentOutput struct {
	ID      uuid.UUID           `json:"id"`
	Title   string              `json:"title"`
	Kind    domain.ArtifactKind `json:"kind"`
	Content string              `json:"content"`
}

// write streams generated content to the client as delta stages and returns the full text.
func (d *Documents) write(ctx context.Context, env Env, docID uuid.UUID, req llm.Request) (string, error) {
	stream, err := d.gateway.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		if chunk.Text == "" {
			continue
		}
		sb.WriteString(chunk.Text)
		if err := env.emit(ctx, domain.DataArtifactEvent{DocumentID: docID.String(), Stage: domain.StageDelta, Value: chunk.Text}); err != nil {
			return "", err
		}
	}
}

func (d *Documents) loadOwned(ctx context.Context, env Env, id uuid.UUID) (*domain.Document, error) {
	doc, err := d.store.GetDocumentByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, fmt.Errorf("document %s not found", id)
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.UserID != env.Session.User.ID {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return doc, nil
}

type createDocument struct{ *Documents }

func (t *createDocument) Name() string { return "createDocument" }

func (t *createDocument) Description() string {
	return "Create a document for writing or content creation activities. Generates the contents based on the title and kind."
}

func (t *createDocument) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"kind":  map[string]any{"type": "string", "enum": []string{"text", "code", "sheet"}},
		},
		"required": []string{"title", "kind"},
	}
}

func (t *createDocument) Execute(ctx context.Context, env Env, input json.RawMessage) (any, error) {
	var in struct {
		Title string              `json:"title"`
		Kind  domain.ArtifactKind `json:"kind"`
	}
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, errors.New("title is required")
	}
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("unsupported document kind %q", in.Kind)
	}

	id := uuid.New()
	docID := id.String()
	for _, ev := range []domain.DataArtifactEvent{
		{DocumentID: docID, Stage: domain.StageKind, Value: string(in.Kind)},
		{DocumentID: docID, Stage: domain.StageID, Value: docID},
		{DocumentID: docID, Stage: domain.StageTitle, Value: in.Title},
		{DocumentID: docID, Stage: domain.StageClear},
	} {
		if err := env.emit(ctx, ev); err != nil {
			return nil, err
		}
	}

	content, err := t.write(ctx, env, id, llm.Request{
		Model:    t.model,
		System:   createPrompt(in.Kind),
		Messages: []llm.Message{{Role: domain.RoleUser, Content: in.Title}},
	})
	if err != nil {
		return nil, err
	}

	doc := domain.Document{
		ID:        id,
		CreatedAt: t.now().UTC(),
		UserID:    env.Session.User.ID,
		Title:     in.Title,
		Kind:      in.Kind,
		Content:   content,
	}
	if err := t.store.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := env.emit(ctx, domain.DataArtifactEvent{DocumentID: docID, Stage: domain.StageFinish}); err != nil {
		return nil, err
	}

	return documentOutput{
		ID:      id,
		Title:   in.Title,
		Kind:    in.Kind,
		Content: "A document was created and is now visible to the user.",
	}, nil
}

type updateDocument struct{ *Documents }

func (t *updateDocument) Name() string { return "updateDocument" }

func (t *updateDocument) Description() string {
	return "Update a document with the given description."
}

func (t *updateDocument) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":          map[string]any{"type": "string", "description": "The ID of the document to update"},
			"description": map[string]any{"type": "string", "description": "The description of changes that need to be made"},
		},
		"required": []string{"id", "description"},
	}
}

func (t *updateDocument) Execute(ctx context.Context, env Env, input json.RawMessage) (any, error) {
	var in struct {
		ID          uuid.UUID `json:"id"`
		Description string    `json:"description"`
	}
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}

	doc, err := t.loadOwned(ctx, env, in.ID)
	if err != nil {
		return nil, err
	}

	docID := doc.ID.String()
	if err := env.emit(ctx, domain.DataArtifactEvent{DocumentID: docID, Stage: domain.StageClear}); err != nil {
		return nil, err
	}

	content, err := t.write(ctx, env, doc.ID, llm.Request{
		Model:    t.model,
		System:   updatePrompt(doc),
		Messages: []llm.Message{{Role: domain.RoleUser, Content: in.Description}},
	})
	if err != nil {
		return nil, err
	}

	next := *doc
	next.CreatedAt = t.now().UTC()
	next.Content = content
	if err := t.store.SaveDocument(ctx, next); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := env.emit(ctx, domain.DataArtifactEvent{DocumentID: docID, Stage: domain.StageFinish}); err != nil {
		return nil, err
	}

	return documentOutput{
		ID:      doc.ID,
		Title:   doc.Title,
		Kind:    doc.Kind,
		Content: "The document has been updated successfully.",
	}, nil
}

type requestSuggestions struct{ *Documents }

func (t *requestSuggestions) Name() string { return "requestSuggestions" }

func (t *requestSuggestions) Description() string {
	return "Request suggestions for a document"
}

func (t *requestSuggestions) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documentId": map[string]any{"type": "string", "description": "The ID of the document to request edits"},
		},
		"required": []string{"documentId"},
	}
}

type suggestionItem struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

func (t *requestSuggestions) Execute(ctx context.Context, env Env, input json.RawMessage) (any, error) {
	var in struct {
		DocumentID uuid.UUID `json:"documentId"`
	}
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}

	doc, err := t.loadOwned(ctx, env, in.DocumentID)
	if err != nil {
		return nil, err
	}

	raw, err := t.gateway.Generate(ctx, llm.Request{
		Model:    t.model,
		System:   suggestionsPrompt,
		Messages: []llm.Message{{Role: domain.RoleUser, Content: doc.Content}},
	})
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	items, err := parseSuggestions(raw)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	suggestions := make([]domain.Suggestion, 0, len(items))
	for _, item := range items {
		s := domain.Suggestion{
			ID:                uuid.New(),
			DocumentID:        doc.ID,
			DocumentCreatedAt: doc.CreatedAt,
			UserID:            env.Session.User.ID,
			OriginalText:      item.OriginalSentence,
			SuggestedText:     item.SuggestedSentence,
			Description:       item.Description,
			CreatedAt:         now,
		}
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode suggestion: %w", err)
		}
		if err := env.emit(ctx, domain.DataArtifactEvent{DocumentID: doc.ID.String(), Stage: domain.StageSuggestion, Data: data}); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}

	if len(suggestions) > 0 {
		if err := t.store.SaveSuggestions(ctx, suggestions); err != nil {
			return nil, fmt.Errorf("save suggestions: %w", err)
		}
	}

	return map[string]any{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "Suggestions have been added to the document",
	}, nil
}

// parseSuggestions accepts a bare JSON array, optionally wrapped in a markdown fence.
func parseSuggestions(raw string) ([]suggestionItem, error) {
	s := strings.TrimSpace(raw)
	if start, end := strings.Index(s, "["), strings.LastIndex(s, "]"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	var items []suggestionItem
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}

	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.OriginalSentence) == "" || strings.TrimSpace(it.SuggestedSentence) == "" {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}
