package http

import (
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

type createChatRequest struct {
	Title string `json:"title"`
}

type appendMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (h *Handler) createChat(c *gin.Context, user *domain.User) {
	var req createChatRequest
	// an empty body creates an untitled chat
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	chat, err := h.chats.CreateChat(c.Request.Context(), user.ID, req.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chatToResponse(*chat))
}

func (h *Handler) listChats(c *gin.Context, user *domain.User) {
	chats, err := h.chats.ListChats(c.Request.Context(), user.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ChatResponse, len(chats))
	for i := range chats {
		resp[i] = chatToResponse(chats[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getChat(c *gin.Context, user *domain.User) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	chat, err := h.chats.GetChat(c.Request.Context(), user.ID, chatID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatToResponse(*chat))
}

func (h *Handler) appendMessage(c *gin.Context, user *domain.User) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, err := h.chats.AppendMessage(
		c.Request.Context(),
		user.ID,
		chatID,
		domain.Role(req.Role),
		req.Content,
		c.GetHeader(idempotencyHeader),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chatToResponse(*chat))
}

func (h *Handler) uploadAttachment(c *gin.Context, user *domain.User) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	// leave room for multipart framing around the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, fmt.Errorf("%w: limit is %d bytes", service.ErrPayloadTooLarge, h.maxUploadBytes))
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.writeError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	att, err := h.attachments.Accept(c.Request.Context(), user.ID, chatID, header.Filename, header.Size, file)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attachmentToResponse(att))
}

func (h *Handler) listAttachments(c *gin.Context, user *domain.User) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	objects, err := h.attachments.List(c.Request.Context(), user.ID, chatID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]StorageObjectResponse, len(objects))
	for i := range objects {
		resp[i] = objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) downloadAttachment(c *gin.Context, user *domain.User) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}

	att, body, err := h.attachments.Open(c.Request.Context(), user.ID, chatID, c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, att.Size, att.ContentType, body, map[string]string{
		"Content-Disposition":    mime.FormatMediaType("attachment", map[string]string{"filename": att.OriginalName}),
		"X-Content-Type-Options": "nosniff",
	})
}
