package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified *time.Time
}

// Service stores attachment bytes in a blob store.
type Service interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Get opens the blob under key. The caller closes the returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
