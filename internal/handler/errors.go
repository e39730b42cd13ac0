package handler

import (
	"errors"
	"net/http"
	"strconv"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/service"
	"facility-inspect/internal/session"

	"github.com/gin-gonic/gin"
)

// respondError maps service and session errors onto a status code and an
// {"error": msg} body.
func respondError(c *gin.Context, err error) {
	var (
		ve  *service.ValidationError
		ext *service.ExternalServiceError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case service.IsConnection(err):
		logger.Warn("request.db_unavailable", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
	case errors.As(err, &ext):
		c.JSON(http.StatusBadGateway, gin.H{"error": ext.Message})
	case errors.Is(err, session.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.With("method", c.Request.Method, "path", c.FullPath()).Error("request.failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
