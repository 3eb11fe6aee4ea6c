package handlers

import (
	"errors"
	"net/http"

	"maintenance_center/internal/centerapi"
	"maintenance_center/internal/lifecycle"
	"maintenance_center/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errBackendUnavailable = "maintenance backend unavailable, try again"
	errBackendResponse    = "maintenance backend returned an unexpected response"
	errInternal           = "internal error"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// respondError maps service errors to HTTP. Backend messages are relayed
// unchanged so the operator sees the backend's own wording.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	var ve *lifecycle.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case lifecycle.IsValidation(err), errors.Is(err, service.ErrInvalidTimeRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrActionNotAllowed), errors.Is(err, service.ErrMutationInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, centerapi.ErrUnavailable):
		h.logAndJSONError(c, http.StatusBadGateway, errBackendUnavailable, logKey, err, kv...)
	case errors.Is(err, centerapi.ErrSchemaViolation):
		h.logAndJSONError(c, http.StatusBadGateway, errBackendResponse, logKey, err, kv...)
	default:
		if apiErr, ok := centerapi.AsAPIError(err); ok {
			code := apiErr.StatusCode
			if code < 400 || code >= 500 {
				code = http.StatusBadGateway
			}
			if h.log != nil {
				h.log.Warnw(logKey, append([]interface{}{"backend_status", apiErr.StatusCode, "err", err}, kv...)...)
			}
			c.JSON(code, gin.H{"error": apiErr.Message})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
