package handler

import (
	"net/http"

	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"
	chatbridge_errors "chatbridge/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, chatbridge_errors.ErrUnauthorized)
		return
	}

	var req httpdto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("Invalid request body", "INVALID_REQUEST"))
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), services.ChatInput{
		UserID:     userID,
		Message:    req.Message,
		SystemRole: req.SystemRole,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.ChatResponse{Response: reply})
}
