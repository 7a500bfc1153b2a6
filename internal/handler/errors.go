package handler

import (
	"errors"
	"net/http"

	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"
	chatbridge_errors "chatbridge/pkg/errors"

	"github.com/gin-gonic/gin"
)

// writeError maps err onto a status and a short client message. Server errors
// are attached to the context for ErrorHandler to log and are never echoed back.
func writeError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, httpdto.NewErrorResponse(publicMessage(err, status), httpdto.ErrorCode(status)))
}

func publicMessage(err error, status int) string {
	switch {
	case errors.Is(err, chatbridge_errors.ErrAlreadyExists):
		return "User already exists"
	case errors.Is(err, chatbridge_errors.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, chatbridge_errors.ErrInvalidInput):
		return "Missing required fields"
	case errors.Is(err, chatbridge_errors.ErrRateLimited):
		return "Too many requests"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "Access denied"
	default:
		return "Internal server error"
	}
}
