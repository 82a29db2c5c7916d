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

type UserRepository struct {
	db  *DB
	now func() time.Time
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db, now: utcNow}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}
	if !user.Preferences.Theme.Valid() {
		user.Preferences = domain.DefaultPreferences()
	}

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.rebind(`
INSERT INTO users (username, password_hash, theme, last_login_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`),
		user.Username,
		user.PasswordHash,
		string(user.Preferences.Theme),
		user.LastLoginAt,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %q: %w", user.Username, repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
SELECT id, username, password_hash, theme, last_login_at, created_at, updated_at
FROM users
WHERE username = ?`),
		username,
	)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`
SELECT id, username, password_hash, theme, last_login_at, created_at, updated_at
FROM users
WHERE id = ?`),
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, "update last login", `
UPDATE users
SET last_login_at=?, updated_at=?
WHERE id=?`, at.UTC(), r.now(), id)
}

// UpdatePreferences writes every preference column in one statement, so
// concurrent updates resolve last-writer-wins per field.
func (r *UserRepository) UpdatePreferences(ctx context.Context, id int64, prefs domain.Preferences) error {
	return r.update(ctx, "update preferences", `
UPDATE users
SET theme=?, updated_at=?
WHERE id=?`, string(prefs.Theme), r.now(), id)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, "update password hash", `
UPDATE users
SET password_hash=?, updated_at=?
WHERE id=?`, hash, r.now(), id)
}

func (r *UserRepository) update(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user  domain.User
		theme string
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&theme,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Preferences.Theme = domain.Theme(theme)
	user.LastLoginAt = user.LastLoginAt.UTC()
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
