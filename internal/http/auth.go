package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"bioseed-chat/internal/domain"
	"bioseed-chat/internal/service"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Secret   string `json:"secret"`
	Password string `json:"password"`
}

func (r credentialsRequest) secret() string {
	if r.Secret != "" {
		return r.Secret
	}
	return r.Password
}

type changeSecretRequest struct {
	Current string `json:"current" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.secret())
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.respondWithSession(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.secret())
	if err != nil {
		// bad credentials are a client error here, not a missing session
		if errors.Is(err, service.ErrUnauthorized) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		h.writeError(c, err)
		return
	}

	h.respondWithSession(c, http.StatusOK, user)
}

func (h *Handler) respondWithSession(c *gin.Context, status int, user *domain.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.writeError(c, fmt.Errorf("issue token: %w", err))
		return
	}
	c.JSON(status, SessionResponse{User: userToResponse(user), Token: token})
}

func (h *Handler) me(c *gin.Context, user *domain.User) {
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) updatePreferences(c *gin.Context, user *domain.User) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	changes := make(map[string]string, len(raw))
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("preference %s must be a string", key)})
			return
		}
		changes[key] = s
	}

	updated, err := h.users.UpdatePreferences(c.Request.Context(), user.ID, changes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}

func (h *Handler) changeSecret(c *gin.Context, user *domain.User) {
	var req changeSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.users.ChangeSecret(c.Request.Context(), user.ID, req.Current, req.Secret)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}
