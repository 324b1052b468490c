package sqlc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentColumns = `id, created_at, user_id, title, kind, content`

func scanDocument(row interface{ Scan(...any) error }) (Document, error) {
	var i Document
	err := row.Scan(&i.ID, &i.CreatedAt, &i.UserID, &i.Title, &i.Kind, &i.Content)
	return i, err
}

const saveDocument = `-- name: SaveDocument :exec
INSERT INTO documents (id, created_at, user_id, title, kind, content)
VALUES ($1, $2, $3, $4, $5, $6)
`

type SaveDocumentParams struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UserID    uuid.UUID
	Title     string
	Kind      string
	Content   string
}

func (q *Queries) SaveDocument(ctx context.Context, arg SaveDocumentParams) error {
	_, err := q.db.Exec(ctx, saveDocument, arg.ID, arg.CreatedAt, arg.UserID, arg.Title, arg.Kind, arg.Content)
	return err
}

const getLatestDocumentByID = `-- name: GetLatestDocumentByID :one
SELECT ` + documentColumns + ` FROM documents
WHERE id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestDocumentByID(ctx context.Context, id uuid.UUID) (Document, error) {
	return scanDocument(q.db.QueryRow(ctx, getLatestDocumentByID, id))
}

const getDocumentsByID = `-- name: GetDocumentsByID :many
SELECT ` + documentColumns + ` FROM documents
WHERE id = $1
ORDER BY created_at ASC
`

func (q *Queries) GetDocumentsByID(ctx context.Context, id uuid.UUID) ([]Document, error) {
	rows, err := q.db.Query(ctx, getDocumentsByID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Document
	for rows.Next() {
		i, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createSuggestion = `-- name: CreateSuggestion :batchexec
INSERT INTO suggestions (id, document_id, document_created_at, user_id, original_text, suggested_text, description, is_resolved, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (q *Queries) CreateSuggestions(ctx context.Context, arg []Suggestion) error {
	batch := &pgx.Batch{}
	for _, s := range arg {
		batch.Queue(createSuggestion, s.ID, s.DocumentID, s.DocumentCreatedAt, s.UserID,
			s.OriginalText, s.SuggestedText, s.Description, s.IsResolved, s.CreatedAt)
	}
	return q.db.SendBatch(ctx, batch).Close()
}

const getSuggestionsByDocumentID = `-- name: GetSuggestionsByDocumentID :many
SELECT id, document_id, document_created_at, user_id, original_text, suggested_text, description, is_resolved, created_at
FROM suggestions
WHERE document_id = $1
ORDER BY created_at ASC
`

func (q *Queries) GetSuggestionsByDocumentID(ctx context.Context, documentID uuid.UUID) ([]Suggestion, error) {
	rows, err := q.db.Query(ctx, getSuggestionsByDocumentID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Suggestion
	for rows.Next() {
		var i Suggestion
		if err := rows.Scan(&i.ID, &i.DocumentID, &i.DocumentCreatedAt, &i.UserID,
			&i.OriginalText, &i.SuggestedText, &i.Description, &i.IsResolved, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
