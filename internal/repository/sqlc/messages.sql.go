package sqlc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, chat_id, role, parts, attachments, created_at`

func scanMessage(row interface{ Scan(...any) error }) (Message, error) {
	var i Message
	err := row.Scan(&i.ID, &i.ChatID, &i.Role, &i.Parts, &i.Attachments, &i.CreatedAt)
	return i, err
}

const getMessagesByChatID = `-- name: GetMessagesByChatID :many
SELECT ` + messageColumns + ` FROM messages
WHERE chat_id = $1
ORDER BY created_at ASC, seq ASC
`

func (q *Queries) GetMessagesByChatID(ctx context.Context, chatID uuid.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, getMessagesByChatID, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Message
	for rows.Next() {
		i, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getMessageByID = `-- name: GetMessageByID :one
SELECT ` + messageColumns + ` FROM messages WHERE id = $1
`

func (q *Queries) GetMessageByID(ctx context.Context, id uuid.UUID) (Message, error) {
	return scanMessage(q.db.QueryRow(ctx, getMessageByID, id))
}

const createMessage = `-- name: CreateMessage :batchexec
INSERT INTO messages (id, chat_id, role, parts, attachments, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

type CreateMessageParams struct {
	ID          uuid.UUID
	ChatID      uuid.UUID
	Role        string
	Parts       []byte
	Attachments []byte
	CreatedAt   time.Time
}

// CreateMessages inserts all messages in one round trip, in order.
func (q *Queries) CreateMessages(ctx context.Context, arg []CreateMessageParams) error {
	batch := &pgx.Batch{}
	for _, m := range arg {
		batch.Queue(createMessage, m.ID, m.ChatID, m.Role, m.Parts, m.Attachments, m.CreatedAt)
	}
	return q.db.SendBatch(ctx, batch).Close()
}

const deleteMessagesByChatIDAfterTimestamp = `-- name: DeleteMessagesByChatIDAfterTimestamp :execrows
DELETE FROM messages WHERE chat_id = $1 AND created_at >= $2
`

func (q *Queries) DeleteMessagesByChatIDAfterTimestamp(ctx context.Context, chatID uuid.UUID, ts time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteMessagesByChatIDAfterTimestamp, chatID, ts)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getMessageCountByUserID = `-- name: GetMessageCountByUserID :one
SELECT COUNT(m.id) FROM messages m
JOIN chats c ON c.id = m.chat_id
WHERE c.user_id = $1 AND m.role = 'user' AND m.created_at >= $2
`

func (q *Queries) GetMessageCountByUserID(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, getMessageCountByUserID, userID, since).Scan(&count)
	return count, err
}
