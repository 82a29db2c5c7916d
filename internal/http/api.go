package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/service"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// Authenticator resolves the caller from the Authorization header.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (*domain.User, error)
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users          service.UserService
	chats          service.ChatService
	attachments    service.AttachmentService
	tokens         TokenIssuer
	guard          Authenticator
	logger         logrus.FieldLogger
	maxUploadBytes int64
}

func NewHandler(
	users service.UserService,
	chats service.ChatService,
	attachments service.AttachmentService,
	tokens TokenIssuer,
	guard Authenticator,
	maxUploadBytes int64,
	logger logrus.FieldLogger,
) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultMaxAttachmentBytes
	}
	return &Handler{
		users:          users,
		chats:          chats,
		attachments:    attachments,
		tokens:         tokens,
		guard:          guard,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(accessLog(h.logger))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.GET("/me", h.authed(h.me))
		auth.PATCH("/preferences", h.authed(h.updatePreferences))
		auth.PUT("/secret", h.authed(h.changeSecret))
	}

	chats := router.Group("/chats")
	{
		chats.POST("", h.authed(h.createChat))
		chats.GET("", h.authed(h.listChats))
		chats.GET("/:id", h.authed(h.getChat))
		chats.POST("/:id/messages", h.authed(h.appendMessage))
		chats.POST("/:id/upload", h.authed(h.uploadAttachment))
		chats.GET("/:id/attachments", h.authed(h.listAttachments))
		chats.GET("/:id/attachments/:name", h.authed(h.downloadAttachment))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// chatIDParam parses the :id route parameter. Ids that cannot name a chat
// are reported as not found, same as chats owned by someone else.
func chatIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}
