package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
)

// ChatRepository is a testify mock of repository.ChatRepository.
type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Create(ctx context.Context, chat *domain.Chat) (int64, error) {
	args := m.Called(ctx, chat)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ChatRepository) GetForOwner(ctx context.Context, ownerID, chatID int64) (*domain.Chat, error) {
	args := m.Called(ctx, ownerID, chatID)
	chat, _ := args.Get(0).(*domain.Chat)
	return chat, args.Error(1)
}

func (m *ChatRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Chat, error) {
	args := m.Called(ctx, ownerID)
	chats, _ := args.Get(0).([]domain.Chat)
	return chats, args.Error(1)
}

func (m *ChatRepository) AppendMessage(ctx context.Context, ownerID, chatID int64, msg *domain.Message, idempotencyKey string) error {
	return m.Called(ctx, ownerID, chatID, msg, idempotencyKey).Error(0)
}

var _ repository.ChatRepository = (*ChatRepository)(nil)
