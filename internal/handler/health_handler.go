package handler

import (
	"context"
	"net/http"

	"chatbridge/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db HealthChecker
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.MessageResponse{Message: "pong"})
}

func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.HealthCheck(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("database unavailable", httpdto.ErrorCode(http.StatusServiceUnavailable)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
