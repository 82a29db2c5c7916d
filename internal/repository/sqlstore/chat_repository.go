package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
)

type ChatRepository struct {
	db  *DB
	now func() time.Time
}

func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db, now: utcNow}
}

func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) (int64, error) {
	now := r.now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.LastMessageAt = now

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.rebind(`
INSERT INTO chats (user_id, title, last_message_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`),
		chat.UserID,
		chat.Title,
		chat.LastMessageAt,
		chat.CreatedAt,
		chat.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chat: %w", err)
	}

	chat.ID = id
	chat.Messages = []domain.Message{}
	return id, nil
}

func (r *ChatRepository) GetForOwner(ctx context.Context, ownerID, chatID int64) (*domain.Chat, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
SELECT id, user_id, title, last_message_at, created_at, updated_at
FROM chats
WHERE id = ? AND user_id = ?`),
		chatID,
		ownerID,
	)
	chat, err := scanChat(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
SELECT id, chat_id, seq, role, content, created_at
FROM messages
WHERE chat_id = ?
ORDER BY seq ASC`), chat.ID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	chat.Messages = []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		chat.Messages = append(chat.Messages, *msg)
	}

	return chat, rows.Err()
}

// ListByOwner returns the owner's chats, most recently active first, each
// with its messages in append order.
func (r *ChatRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Chat, error) {
	rows, err := r.db.QueryContext(ctx, r.db.rebind(`
SELECT id, user_id, title, last_message_at, created_at, updated_at
FROM chats
WHERE user_id = ?
ORDER BY last_message_at DESC, id DESC`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	chats := []domain.Chat{}
	index := make(map[int64]int)
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chat.Messages = []domain.Message{}
		index[chat.ID] = len(chats)
		chats = append(chats, *chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return chats, nil
	}

	msgRows, err := r.db.QueryContext(ctx, r.db.rebind(`
SELECT m.id, m.chat_id, m.seq, m.role, m.content, m.created_at
FROM messages m
JOIN chats c ON c.id = m.chat_id
WHERE c.user_id = ?
ORDER BY m.chat_id ASC, m.seq ASC`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query owner messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[msg.ChatID]; ok {
			chats[i].Messages = append(chats[i].Messages, *msg)
		}
	}

	return chats, msgRows.Err()
}

func (r *ChatRepository) AppendMessage(ctx context.Context, ownerID, chatID int64, msg *domain.Message, idempotencyKey string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, r.db.rebind(`
SELECT id FROM chats WHERE id = ? AND user_id = ?`), chatID, ownerID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return fmt.Errorf("lookup chat: %w", err)
		}

		if idempotencyKey != "" {
			var existing int64
			err := tx.QueryRowContext(ctx, r.db.rebind(`
SELECT id FROM messages WHERE chat_id = ? AND idempotency_key = ?`), chatID, idempotencyKey).Scan(&existing)
			switch {
			case err == nil:
				return repository.ErrDuplicate
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("lookup idempotency key: %w", err)
			}
		}

		var (
			lastSeq int64
			lastAt  time.Time
		)
		err = tx.QueryRowContext(ctx, r.db.rebind(`
SELECT seq, created_at
FROM messages
WHERE chat_id = ?
ORDER BY seq DESC
LIMIT 1`), chatID).Scan(&lastSeq, &lastAt)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup last message: %w", err)
		}

		// timestamps never go backwards within a chat, even if the clock does
		at := r.now()
		if at.Before(lastAt) {
			at = lastAt.UTC()
		}

		msg.ChatID = chatID
		msg.Seq = lastSeq + 1
		msg.CreatedAt = at

		var key any
		if idempotencyKey != "" {
			key = idempotencyKey
		}

		err = tx.QueryRowContext(ctx, r.db.rebind(`
INSERT INTO messages (chat_id, seq, role, content, idempotency_key, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`),
			msg.ChatID,
			msg.Seq,
			string(msg.Role),
			msg.Content,
			key,
			msg.CreatedAt,
		).Scan(&msg.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("append message to chat %d: %w", chatID, repository.ErrConflict)
			}
			return fmt.Errorf("insert message: %w", err)
		}

		if _, err := tx.ExecContext(ctx, r.db.rebind(`
UPDATE chats
SET last_message_at=?, updated_at=?
WHERE id=?`), msg.CreatedAt, r.now(), chatID); err != nil {
			return fmt.Errorf("touch chat: %w", err)
		}
		return nil
	})
}

func scanChat(row rowScanner) (*domain.Chat, error) {
	var chat domain.Chat
	if err := row.Scan(
		&chat.ID,
		&chat.UserID,
		&chat.Title,
		&chat.LastMessageAt,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan chat: %w", err)
	}

	chat.LastMessageAt = chat.LastMessageAt.UTC()
	chat.CreatedAt = chat.CreatedAt.UTC()
	chat.UpdatedAt = chat.UpdatedAt.UTC()
	return &chat, nil
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		msg  domain.Message
		role string
	)
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.Seq, &role, &msg.Content, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	msg.Role = domain.Role(role)
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}

var (
	_ repository.ChatRepository = (*ChatRepository)(nil)
	_ repository.UserRepository = (*UserRepository)(nil)
)
