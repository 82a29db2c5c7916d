package domain

// Attachment references a staged upload. It is not persisted with the chat.
type Attachment struct {
	ChatID       int64
	OriginalName string
	StoredName   string
	Location     string
	Size         int64
	ContentType  string
}
