package domain

import "time"

// DefaultChatTitle is used when a chat is created without a title.
const DefaultChatTitle = "New Chat"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Chat is a conversation owned by exactly one user. Messages are kept in
// append order.
type Chat struct {
	ID            int64
	UserID        int64
	Title         string
	Messages      []Message
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is a single immutable turn within a chat.
type Message struct {
	ID        int64
	ChatID    int64
	Seq       int64
	Role      Role
	Content   string
	CreatedAt time.Time
}
