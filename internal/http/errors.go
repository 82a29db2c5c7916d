package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bioseed-chat/internal/service"
)

// writeError maps service error kinds to status codes. Unauthorized and not
// found always carry the same message; validation kinds keep the service's
// detail. Unknown errors are logged and hidden behind a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthorized.Error()})
		return
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
		return
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrPayloadTooLarge),
		errors.Is(err, service.ErrUnsupportedType):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("unhandled service error")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
