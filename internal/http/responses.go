package http

import (
	"time"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/storage"
)

type PreferencesResponse struct {
	Theme domain.Theme `json:"theme"`
}

type UserResponse struct {
	ID          int64               `json:"id"`
	Username    string              `json:"username"`
	LastLogin   string              `json:"last_login"`
	Preferences PreferencesResponse `json:"preferences"`
	CreatedAt   string              `json:"created_at"`
	UpdatedAt   string              `json:"updated_at"`
}

type SessionResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

type MessageResponse struct {
	Role      domain.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
}

type ChatResponse struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Messages      []MessageResponse `json:"messages"`
	LastMessageAt string            `json:"last_message_at"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

type UploadResponse struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Username,
		LastLogin:   formatTime(user.LastLoginAt),
		Preferences: PreferencesResponse{Theme: user.Preferences.Theme},
		CreatedAt:   formatTime(user.CreatedAt),
		UpdatedAt:   formatTime(user.UpdatedAt),
	}
}

func chatToResponse(chat domain.Chat) ChatResponse {
	resp := ChatResponse{
		ID:            chat.ID,
		Title:         chat.Title,
		LastMessageAt: formatTime(chat.LastMessageAt),
		CreatedAt:     formatTime(chat.CreatedAt),
		UpdatedAt:     formatTime(chat.UpdatedAt),
		Messages:      make([]MessageResponse, len(chat.Messages)),
	}
	for i := range chat.Messages {
		resp.Messages[i] = MessageResponse{
			Role:      chat.Messages[i].Role,
			Content:   chat.Messages[i].Content,
			Timestamp: formatTime(chat.Messages[i].CreatedAt),
		}
	}
	return resp
}

func attachmentToResponse(att *domain.Attachment) UploadResponse {
	return UploadResponse{
		Filename:    att.StoredName,
		Path:        att.Location,
		Size:        att.Size,
		ContentType: att.ContentType,
	}
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
