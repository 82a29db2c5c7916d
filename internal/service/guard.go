package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
)

// TokenResolver maps a session token to the user ID it was issued for.
type TokenResolver interface {
	Resolve(token string) (int64, error)
}

// Guard resolves the calling identity for protected operations. The user it
// returns is the only identity downstream operations may act on.
type Guard struct {
	tokens TokenResolver
	users  repository.UserRepository
	logger logrus.FieldLogger
}

func NewGuard(tokens TokenResolver, users repository.UserRepository, logger logrus.FieldLogger) *Guard {
	return &Guard{tokens: tokens, users: users, logger: logger}
}

// Authenticate takes the raw Authorization header value. Every rejection is
// the bare ErrUnauthorized; the reason only goes to the log.
func (g *Guard) Authenticate(ctx context.Context, authorization string) (*domain.User, error) {
	token, ok := bearerToken(authorization)
	if !ok {
		g.logger.Debug("auth rejected: missing bearer token")
		return nil, ErrUnauthorized
	}

	userID, err := g.tokens.Resolve(token)
	if err != nil {
		g.logger.WithError(err).Warn("auth rejected: invalid token")
		return nil, ErrUnauthorized
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.logger.WithField("user_id", userID).Warn("auth rejected: user no longer exists")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	return sanitizeUser(user), nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
