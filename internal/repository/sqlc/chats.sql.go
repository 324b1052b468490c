package sqlc

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const chatColumns = `id, user_id, title, visibility, last_context, created_at`

func scanChat(row interface{ Scan(...any) error }) (Chat, error) {
	var i Chat
	err := row.Scan(&i.ID, &i.UserID, &i.Title, &i.Visibility, &i.LastContext, &i.CreatedAt)
	return i, err
}

const getChatByID = `-- name: GetChatByID :one
SELECT ` + chatColumns + ` FROM chats WHERE id = $1
`

func (q *Queries) GetChatByID(ctx context.Context, id uuid.UUID) (Chat, error) {
	return scanChat(q.db.QueryRow(ctx, getChatByID, id))
}

const saveChat = `-- name: SaveChat :exec
INSERT INTO chats (id, user_id, title, visibility, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`

type SaveChatParams struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Title      string
	Visibility string
	CreatedAt  time.Time
}

func (q *Queries) SaveChat(ctx context.Context, arg SaveChatParams) error {
	_, err := q.db.Exec(ctx, saveChat, arg.ID, arg.UserID, arg.Title, arg.Visibility, arg.CreatedAt)
	return err
}

const getChatsByUserID = `-- name: GetChatsByUserID :many
SELECT ` + chatColumns + ` FROM chats
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`

type GetChatsByUserIDParams struct {
	UserID uuid.UUID
	Limit  int32
}

func (q *Queries) GetChatsByUserID(ctx context.Context, arg GetChatsByUserIDParams) ([]Chat, error) {
	return q.listChats(ctx, getChatsByUserID, arg.UserID, arg.Limit)
}

const getChatsByUserIDAfter = `-- name: GetChatsByUserIDAfter :many
SELECT ` + chatColumns + ` FROM chats
WHERE user_id = $1 AND created_at > $2
ORDER BY created_at DESC
LIMIT $3
`

const getChatsByUserIDBefore = `-- name: GetChatsByUserIDBefore :many
SELECT ` + chatColumns + ` FROM chats
WHERE user_id = $1 AND created_at < $2
ORDER BY created_at DESC
LIMIT $3
`

type GetChatsByUserIDCursorParams struct {
	UserID    uuid.UUID
	CreatedAt time.Time
	Limit     int32
}

// GetChatsByUserIDAfter lists chats newer than the cursor.
func (q *Queries) GetChatsByUserIDAfter(ctx context.Context, arg GetChatsByUserIDCursorParams) ([]Chat, error) {
	return q.listChats(ctx, getChatsByUserIDAfter, arg.UserID, arg.CreatedAt, arg.Limit)
}

// GetChatsByUserIDBefore lists chats older than the cursor.
func (q *Queries) GetChatsByUserIDBefore(ctx context.Context, arg GetChatsByUserIDCursorParams) ([]Chat, error) {
	return q.listChats(ctx, getChatsByUserIDBefore, arg.UserID, arg.CreatedAt, arg.Limit)
}

func (q *Queries) listChats(ctx context.Context, query string, args ...any) ([]Chat, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Chat
	for rows.Next() {
		i, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteChatByID = `-- name: DeleteChatByID :one
DELETE FROM chats WHERE id = $1
RETURNING ` + chatColumns + `
`

func (q *Queries) DeleteChatByID(ctx context.Context, id uuid.UUID) (Chat, error) {
	return scanChat(q.db.QueryRow(ctx, deleteChatByID, id))
}

const deleteAllChatsByUserID = `-- name: DeleteAllChatsByUserID :execrows
DELETE FROM chats WHERE user_id = $1
`

func (q *Queries) DeleteAllChatsByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAllChatsByUserID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateChatVisibilityByID = `-- name: UpdateChatVisibilityByID :execrows
UPDATE chats SET visibility = $2 WHERE id = $1
`

func (q *Queries) UpdateChatVisibilityByID(ctx context.Context, id uuid.UUID, visibility string) (int64, error) {
	tag, err := q.db.Exec(ctx, updateChatVisibilityByID, id, visibility)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateChatTitleByID = `-- name: UpdateChatTitleByID :execrows
UPDATE chats SET title = $2 WHERE id = $1
`

func (q *Queries) UpdateChatTitleByID(ctx context.Context, id uuid.UUID, title string) (int64, error) {
	tag, err := q.db.Exec(ctx, updateChatTitleByID, id, title)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateChatLastContextByID = `-- name: UpdateChatLastContextByID :execrows
UPDATE chats SET last_context = $2 WHERE id = $1
`

func (q *Queries) UpdateChatLastContextByID(ctx context.Context, id uuid.UUID, lastContext []byte) (int64, error) {
	tag, err := q.db.Exec(ctx, updateChatLastContextByID, id, lastContext)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
