package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bioseed-chat/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db, nil))
	return db
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(step)
		return current
	}
}

func createUser(t *testing.T, repo *UserRepository, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, PasswordHash: "hash-" + username}
	_, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, nil))
	require.Equal(t, DriverSQLite, db.Driver())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

func TestRebind(t *testing.T) {
	lite := &DB{driver: DriverSQLite}
	pg := &DB{driver: DriverPostgres}

	q := `SELECT id FROM messages WHERE chat_id = ? AND idempotency_key = ?`
	require.Equal(t, q, lite.rebind(q))
	require.Equal(t, `SELECT id FROM messages WHERE chat_id = $1 AND idempotency_key = $2`, pg.rebind(q))
}
