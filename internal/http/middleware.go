package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bioseed-chat/internal/domain"
)

const userKey = "user"

// accessLog writes one structured line per request.
func accessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"client":   c.ClientIP(),
		})
		if v, ok := c.Get(userKey); ok {
			if user, ok := v.(*domain.User); ok {
				entry = entry.WithField("user_id", user.ID)
			}
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}

// authed runs next only for callers the guard accepts, passing the resolved
// user along.
func (h *Handler) authed(next func(c *gin.Context, user *domain.User)) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.guard.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			h.writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userKey, user)
		next(c, user)
	}
}
