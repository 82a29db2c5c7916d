package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
)

const appendMaxRetries = 4

// ChatService coordinates owner-scoped chat operations backed by repositories.
type ChatService interface {
	CreateChat(ctx context.Context, ownerID int64, title string) (*domain.Chat, error)
	ListChats(ctx context.Context, ownerID int64) ([]domain.Chat, error)
	GetChat(ctx context.Context, ownerID, chatID int64) (*domain.Chat, error)
	AppendMessage(ctx context.Context, ownerID, chatID int64, role domain.Role, content, idempotencyKey string) (*domain.Chat, error)
}

type chatService struct {
	chats   repository.ChatRepository
	logger  logrus.FieldLogger
	backoff func() retry.Backoff
}

func NewChatService(chats repository.ChatRepository, logger logrus.FieldLogger) ChatService {
	return &chatService{
		chats:  chats,
		logger: logger,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(appendMaxRetries, retry.WithJitterPercent(20, retry.NewExponential(5*time.Millisecond)))
		},
	}
}

func (s *chatService) CreateChat(ctx context.Context, ownerID int64, title string) (*domain.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultChatTitle
	}

	chat := &domain.Chat{
		UserID: ownerID,
		Title:  title,
	}
	if _, err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": ownerID, "chat_id": chat.ID}).Debug("chat created")
	return chat, nil
}

func (s *chatService) ListChats(ctx context.Context, ownerID int64) ([]domain.Chat, error) {
	chats, err := s.chats.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}
	return chats, nil
}

func (s *chatService) GetChat(ctx context.Context, ownerID, chatID int64) (*domain.Chat, error) {
	chat, err := s.chats.GetForOwner(ctx, ownerID, chatID)
	if err != nil {
		return nil, mapChatError(err)
	}
	return chat, nil
}

// AppendMessage adds a message and returns the chat with its full history.
// A position collision with a concurrent append is retried; a repeated
// idempotency key returns the chat without appending again.
func (s *chatService) AppendMessage(ctx context.Context, ownerID, chatID int64, role domain.Role, content, idempotencyKey string) (*domain.Chat, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role must be %q or %q", ErrInvalidInput, domain.RoleUser, domain.RoleAssistant)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	logger := s.logger.WithFields(logrus.Fields{"user_id": ownerID, "chat_id": chatID})

	attempt := 0
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		msg := &domain.Message{Role: role, Content: content}
		err := s.chats.AppendMessage(ctx, ownerID, chatID, msg, idempotencyKey)
		if errors.Is(err, repository.ErrConflict) {
			logger.WithField("attempt", attempt).Debug("append collided with a concurrent writer, retrying")
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrDuplicate):
		logger.WithField("idempotency_key", idempotencyKey).Info("duplicate append ignored")
	case errors.Is(err, repository.ErrConflict):
		return nil, fmt.Errorf("%w: chat is busy, try again", ErrConflict)
	default:
		return nil, mapChatError(err)
	}

	chat, err := s.chats.GetForOwner(ctx, ownerID, chatID)
	if err != nil {
		return nil, mapChatError(err)
	}
	return chat, nil
}

func mapChatError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
