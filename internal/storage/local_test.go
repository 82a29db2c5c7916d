package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalService_PutAndList(t *testing.T) {
	root := t.TempDir()
	svc, err := NewLocalService(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "chat-1/abc-notes.txt", strings.NewReader("hello"), 5, "text/plain"))

	data, err := os.ReadFile(filepath.Join(root, "chat-1", "abc-notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, svc.Put(ctx, "chat-10/def-plan.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf"))

	objects, err := svc.ListObjects(ctx, "chat-1/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "chat-1/abc-notes.txt", objects[0].Key)
	assert.Equal(t, int64(5), objects[0].Size)
	require.NotNil(t, objects[0].LastModified)

	all, err := svc.ListObjects(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.ListObjects(ctx, "chat-2/")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestLocalService_RejectsEscapingKeys(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", ".", "../outside.txt", "chat-1/../../outside.txt"} {
		err := svc.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, "key %q", key)

		_, _, err = svc.Get(context.Background(), key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestLocalService_Get(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Put(ctx, "chat-1/abc-notes.txt", strings.NewReader("hello"), 5, "text/plain"))

	body, info, err := svc.Get(ctx, "chat-1/abc-notes.txt")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "chat-1/abc-notes.txt", info.Key)
	assert.Equal(t, int64(5), info.Size)

	_, _, err = svc.Get(ctx, "chat-1/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.Get(ctx, "chat-1")
	assert.ErrorIs(t, err, ErrNotFound, "directories are not objects")
}

func TestLocalService_RequiresRoot(t *testing.T) {
	_, err := NewLocalService("  ")
	assert.Error(t, err)
}
