package service_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
	"bioseed-chat/internal/repository/mocks"
	"bioseed-chat/internal/service"
	"bioseed-chat/internal/storage"
)

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryBlobs) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryBlobs) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memoryBlobs) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func newAttachmentService(t *testing.T) (service.AttachmentService, *mocks.ChatRepository, *memoryBlobs) {
	t.Helper()
	chats := new(mocks.ChatRepository)
	blobs := newMemoryBlobs()
	logger, _ := test.NewNullLogger()
	t.Cleanup(func() { chats.AssertExpectations(t) })
	return service.NewAttachmentService(chats, blobs, service.AttachmentPolicy{}, logger), chats, blobs
}

func TestAttachmentService_Accept_Success(t *testing.T) {
	svc, chats, blobs := newAttachmentService(t)
	ctx := context.Background()
	body := bytes.Repeat([]byte("soil moisture readings\n"), 450)

	chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11, UserID: 1}, nil).Once()

	att, err := svc.Accept(ctx, 1, 11, "notes.txt", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(att.StoredName, "-notes.txt"), att.StoredName)
	assert.Equal(t, "notes.txt", att.OriginalName)
	assert.Equal(t, int64(len(body)), att.Size)
	assert.True(t, strings.HasPrefix(att.ContentType, "text/plain"), att.ContentType)
	assert.Equal(t, "/chats/11/attachments/"+att.StoredName, att.Location)
	assert.Equal(t, body, blobs.objects["chat-11/"+att.StoredName])
}

func TestAttachmentService_Accept_UniqueNames(t *testing.T) {
	svc, chats, _ := newAttachmentService(t)
	ctx := context.Background()

	chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11, UserID: 1}, nil).Twice()

	first, err := svc.Accept(ctx, 1, 11, "notes.txt", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	second, err := svc.Accept(ctx, 1, 11, "notes.txt", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.NotEqual(t, first.StoredName, second.StoredName)
}

func TestAttachmentService_Accept_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("disallowed extension", func(t *testing.T) {
		svc, chats, _ := newAttachmentService(t)
		_, err := svc.Accept(ctx, 1, 11, "report.exe", 10, strings.NewReader("MZ"))
		assert.ErrorIs(t, err, service.ErrUnsupportedType)
		chats.AssertNotCalled(t, "GetForOwner", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("extension matched case-insensitively", func(t *testing.T) {
		svc, chats, _ := newAttachmentService(t)
		chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11}, nil).Once()
		_, err := svc.Accept(ctx, 1, 11, "Trial.PDF", 4, strings.NewReader("%PDF"))
		assert.NoError(t, err)
	})

	t.Run("declared size over limit", func(t *testing.T) {
		svc, _, _ := newAttachmentService(t)
		_, err := svc.Accept(ctx, 1, 11, "notes.txt", 6<<20, strings.NewReader("x"))
		assert.ErrorIs(t, err, service.ErrPayloadTooLarge)
	})

	t.Run("actual size over limit", func(t *testing.T) {
		svc, chats, blobs := newAttachmentService(t)
		chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11}, nil).Once()
		big := bytes.Repeat([]byte("a"), 6<<20)
		_, err := svc.Accept(ctx, 1, 11, "notes.txt", 0, bytes.NewReader(big))
		assert.ErrorIs(t, err, service.ErrPayloadTooLarge)
		assert.Empty(t, blobs.objects)
	})

	t.Run("chat owned by someone else", func(t *testing.T) {
		svc, chats, blobs := newAttachmentService(t)
		chats.On("GetForOwner", ctx, int64(2), int64(11)).Return(nil, repository.ErrNotFound).Once()
		_, err := svc.Accept(ctx, 2, 11, "notes.txt", 5, strings.NewReader("hello"))
		assert.ErrorIs(t, err, service.ErrNotFound)
		assert.Empty(t, blobs.objects)
	})

	t.Run("path components stripped", func(t *testing.T) {
		svc, chats, blobs := newAttachmentService(t)
		chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11}, nil).Once()
		att, err := svc.Accept(ctx, 1, 11, `..\..\etc/notes.txt`, 5, strings.NewReader("hello"))
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", att.OriginalName)
		for key := range blobs.objects {
			assert.NotContains(t, key, "..")
		}
	})

	t.Run("missing filename", func(t *testing.T) {
		svc, _, _ := newAttachmentService(t)
		_, err := svc.Accept(ctx, 1, 11, "dir/", 5, strings.NewReader("hello"))
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestAttachmentService_List(t *testing.T) {
	svc, chats, _ := newAttachmentService(t)
	ctx := context.Background()

	chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11}, nil).Twice()
	chats.On("GetForOwner", ctx, int64(1), int64(12)).Return(&domain.Chat{ID: 12}, nil).Once()
	chats.On("GetForOwner", ctx, int64(2), int64(11)).Return(nil, repository.ErrNotFound).Once()

	_, err := svc.Accept(ctx, 1, 11, "notes.txt", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	objects, err := svc.List(ctx, 1, 11)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.True(t, strings.HasSuffix(objects[0].Key, "-notes.txt"))

	objects, err = svc.List(ctx, 1, 12)
	require.NoError(t, err)
	assert.Empty(t, objects)

	_, err = svc.List(ctx, 2, 11)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAttachmentService_Open(t *testing.T) {
	svc, chats, _ := newAttachmentService(t)
	ctx := context.Background()
	body := []byte("%PDF-1.4\n1 0 obj\n")

	chats.On("GetForOwner", ctx, int64(1), int64(11)).Return(&domain.Chat{ID: 11}, nil).Times(3)
	chats.On("GetForOwner", ctx, int64(2), int64(11)).Return(nil, repository.ErrNotFound).Once()

	att, err := svc.Accept(ctx, 1, 11, "trial.pdf", int64(len(body)), bytes.NewReader(body))
	require.NoError(t, err)

	got, rc, err := svc.Open(ctx, 1, 11, att.StoredName)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.Equal(t, "trial.pdf", got.OriginalName)
	assert.Equal(t, "application/pdf", got.ContentType)
	assert.Equal(t, int64(len(body)), got.Size)
	assert.Equal(t, att.Location, got.Location)

	_, _, err = svc.Open(ctx, 1, 11, "missing.txt")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = svc.Open(ctx, 2, 11, att.StoredName)
	assert.ErrorIs(t, err, service.ErrNotFound)

	for _, name := range []string{"", "..", "../chat-12/x.txt", `..\x.txt`, ".upload-123"} {
		_, _, err := svc.Open(ctx, 1, 11, name)
		assert.ErrorIs(t, err, service.ErrNotFound, "name %q", name)
	}
}
