package repository

import (
	"context"
	"time"

	"bioseed-chat/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	// Create inserts the user and sets its ID. Returns ErrDuplicate when the
	// username is taken.
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePreferences(ctx context.Context, id int64, prefs domain.Preferences) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
