package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/repository"
	"bioseed-chat/internal/storage"
)

const DefaultMaxAttachmentBytes int64 = 5 << 20

// sniffLen is how much of a stored blob is peeked to detect its type.
const sniffLen = 3072

var DefaultAllowedExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// AttachmentPolicy bounds what Accept will store.
type AttachmentPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// AttachmentService validates uploads against a chat the caller owns and
// stages them in the blob store.
type AttachmentService interface {
	Accept(ctx context.Context, ownerID, chatID int64, filename string, declaredSize int64, body io.Reader) (*domain.Attachment, error)
	List(ctx context.Context, ownerID, chatID int64) ([]storage.ObjectInfo, error)
	Open(ctx context.Context, ownerID, chatID int64, storedName string) (*domain.Attachment, io.ReadCloser, error)
}

type attachmentService struct {
	chats   repository.ChatRepository
	blobs   storage.Service
	policy  AttachmentPolicy
	allowed map[string]struct{}
	logger  logrus.FieldLogger
}

func NewAttachmentService(chats repository.ChatRepository, blobs storage.Service, policy AttachmentPolicy, logger logrus.FieldLogger) AttachmentService {
	if policy.MaxBytes <= 0 {
		policy.MaxBytes = DefaultMaxAttachmentBytes
	}
	if len(policy.AllowedExtensions) == 0 {
		policy.AllowedExtensions = DefaultAllowedExtensions
	}

	allowed := make(map[string]struct{}, len(policy.AllowedExtensions))
	for _, ext := range policy.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}

	return &attachmentService{
		chats:   chats,
		blobs:   blobs,
		policy:  policy,
		allowed: allowed,
		logger:  logger,
	}
}

// Accept checks the name and declared size before touching the chat or the
// body, then enforces the size limit again on the bytes actually read.
func (s *attachmentService) Accept(ctx context.Context, ownerID, chatID int64, filename string, declaredSize int64, body io.Reader) (*domain.Attachment, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := s.allowed[ext]; !ok {
		return nil, fmt.Errorf("%w: %q is not an allowed extension", ErrUnsupportedType, ext)
	}
	if declaredSize > s.policy.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, s.policy.MaxBytes)
	}

	if _, err := s.chats.GetForOwner(ctx, ownerID, chatID); err != nil {
		return nil, mapChatError(err)
	}

	data, err := io.ReadAll(io.LimitReader(body, s.policy.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.policy.MaxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, s.policy.MaxBytes)
	}

	contentType := mimetype.Detect(data).String()
	stored := uuid.NewString() + "-" + name
	key := chatPrefix(chatID) + stored

	if err := s.blobs.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      ownerID,
		"chat_id":      chatID,
		"key":          key,
		"size":         len(data),
		"content_type": contentType,
	}).Info("attachment stored")

	return &domain.Attachment{
		ChatID:       chatID,
		OriginalName: name,
		StoredName:   stored,
		Location:     attachmentPath(chatID, stored),
		Size:         int64(len(data)),
		ContentType:  contentType,
	}, nil
}

func (s *attachmentService) List(ctx context.Context, ownerID, chatID int64) ([]storage.ObjectInfo, error) {
	if _, err := s.chats.GetForOwner(ctx, ownerID, chatID); err != nil {
		return nil, mapChatError(err)
	}

	objects, err := s.blobs.ListObjects(ctx, chatPrefix(chatID))
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return objects, nil
}

// Open streams a stored attachment back to the owner of its chat. Names that
// could not have been produced by Accept are reported as not found.
func (s *attachmentService) Open(ctx context.Context, ownerID, chatID int64, storedName string) (*domain.Attachment, io.ReadCloser, error) {
	if storedName == "" || sanitizeFilename(storedName) != storedName || strings.HasPrefix(storedName, ".") {
		return nil, nil, ErrNotFound
	}
	if _, err := s.chats.GetForOwner(ctx, ownerID, chatID); err != nil {
		return nil, nil, mapChatError(err)
	}

	body, info, err := s.blobs.Get(ctx, chatPrefix(chatID)+storedName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open attachment: %w", err)
	}

	contentType := info.ContentType
	reader := bufio.NewReaderSize(body, sniffLen)
	if contentType == "" {
		head, err := reader.Peek(sniffLen)
		if err != nil && !errors.Is(err, io.EOF) {
			_ = body.Close()
			return nil, nil, fmt.Errorf("read attachment: %w", err)
		}
		contentType = mimetype.Detect(head).String()
	}

	att := &domain.Attachment{
		ChatID:       chatID,
		OriginalName: originalName(storedName),
		StoredName:   storedName,
		Location:     attachmentPath(chatID, storedName),
		Size:         info.Size,
		ContentType:  contentType,
	}
	return att, readCloser{Reader: reader, Closer: body}, nil
}

// attachmentPath is the route a stored attachment can be fetched from.
func attachmentPath(chatID int64, storedName string) string {
	return fmt.Sprintf("/chats/%d/attachments/%s", chatID, url.PathEscape(storedName))
}

type readCloser struct {
	io.Reader
	io.Closer
}

// originalName drops the random prefix Accept puts in front of the name.
func originalName(stored string) string {
	const prefixLen = 36 + 1
	if len(stored) > prefixLen && stored[prefixLen-1] == '-' {
		if _, err := uuid.Parse(stored[:prefixLen-1]); err == nil {
			return stored[prefixLen:]
		}
	}
	return stored
}

func chatPrefix(chatID int64) string {
	return fmt.Sprintf("chat-%d/", chatID)
}

// sanitizeFilename keeps only the final path element of a client supplied
// name, treating both slash styles as separators.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}
