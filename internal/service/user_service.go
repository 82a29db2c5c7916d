package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
)

const preferenceTheme = "theme"

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, secret string) (*domain.User, error)
	Authenticate(ctx context.Context, username, secret string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdatePreferences(ctx context.Context, userID int64, changes map[string]string) (*domain.User, error)
	ChangeSecret(ctx context.Context, userID int64, current, next string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	logger logrus.FieldLogger
	cost   int
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, logger logrus.FieldLogger) UserService {
	return &userService{
		users:  users,
		logger: logger,
		cost:   bcrypt.DefaultCost,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *userService) Register(ctx context.Context, username, secret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidInput)
	}

	hash, err := s.hashSecret(secret)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		LastLoginAt:  s.now(),
		Preferences:  domain.DefaultPreferences(),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.WithField("username", username).Warn("registration rejected: username taken")
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, secret string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || secret == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.WithField("username", username).Warn("login failed: unknown user")
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(secret)); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("login failed: secret mismatch")
		return nil, ErrUnauthorized
	}

	at := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, at); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLoginAt = at

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

// UpdatePreferences merges changes over the stored preferences. Only the
// theme option is recognized; any other key rejects the whole update.
func (s *userService) UpdatePreferences(ctx context.Context, userID int64, changes map[string]string) (*domain.User, error) {
	var unknown []string
	for key := range changes {
		if key != preferenceTheme {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unsupported preference %s", ErrInvalidInput, strings.Join(unknown, ", "))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	prefs := user.Preferences
	if theme, ok := changes[preferenceTheme]; ok {
		prefs.Theme = domain.Theme(theme)
		if !prefs.Theme.Valid() {
			return nil, fmt.Errorf("%w: theme must be %q or %q", ErrInvalidInput, domain.ThemeLight, domain.ThemeDark)
		}
	}

	if err := s.users.UpdatePreferences(ctx, userID, prefs); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.Preferences = prefs
	user.UpdatedAt = s.now()

	return sanitizeUser(user), nil
}

// ChangeSecret verifies the current secret and stores a fresh hash of next.
func (s *userService) ChangeSecret(ctx context.Context, userID int64, current, next string) (*domain.User, error) {
	if next == "" {
		return nil, fmt.Errorf("%w: new secret is required", ErrInvalidInput)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		s.logger.WithField("user_id", userID).Warn("secret change rejected: current secret mismatch")
		return nil, fmt.Errorf("%w: current secret does not match", ErrInvalidInput)
	}

	hash, err := s.hashSecret(next)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return nil, err
	}
	user.UpdatedAt = s.now()

	s.logger.WithField("user_id", userID).Info("secret changed")
	return sanitizeUser(user), nil
}

func (s *userService) hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: secret is too long", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:          user.ID,
		Username:    user.Username,
		LastLoginAt: user.LastLoginAt,
		Preferences: user.Preferences,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
