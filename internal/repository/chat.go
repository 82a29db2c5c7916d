package repository

import (
	"context"

	"bioseed-chat/internal/domain"
)

// ChatRepository exposes owner-scoped persistence for chats and their messages.
// A chat owned by someone else is reported as ErrNotFound.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (int64, error)
	GetForOwner(ctx context.Context, ownerID, chatID int64) (*domain.Chat, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Chat, error)
	// AppendMessage adds msg after the chat's last message in a single
	// transaction. It returns ErrConflict when a concurrent append claimed the
	// same position and ErrDuplicate when idempotencyKey was already used for
	// this chat. An empty key disables the duplicate check.
	AppendMessage(ctx context.Context, ownerID, chatID int64, msg *domain.Message, idempotencyKey string) error
}
