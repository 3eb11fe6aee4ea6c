package handlers

import (
	"errors"
	"net/http"
	"strings"

	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
)

var (
	errMissingAuthHeader = errors.New("missing Authorization header")
	errBadAuthHeader     = errors.New("invalid Authorization header format")
	errBadToken          = errors.New("invalid or expired token")
)

func (h *Handler) userIdMiddleware(c *gin.Context) {
	userId, err := h.authenticate(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Set("userId", userId)
	c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), userId))
	c.Next()
}

// authenticate parses a "Bearer <token>" header value into a user id.
func (h *Handler) authenticate(header string) (int, error) {
	if header == "" {
		return 0, errMissingAuthHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return 0, errBadAuthHeader
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		return 0, errBadToken
	}
	return userId, nil
}
