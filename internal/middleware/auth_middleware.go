package middleware

import (
	"net/http"
	"strings"

	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"
	"chatbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware rejects requests without a bearer token (401) or with one that
// fails verification (403). The verified user id is stored on the request context.
func AuthMiddleware(service *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := service.ParseAccessToken(extractBearer(c))
		if err != nil {
			status := services.HTTPStatus(err)
			message := "Access denied. No token provided."
			if status != http.StatusUnauthorized {
				message = "Invalid or expired token."
			}
			c.AbortWithStatusJSON(status, httpdto.NewErrorResponse(message, httpdto.ErrorCode(status)))
			return
		}

		ctx := services.WithUserContext(c.Request.Context(), claims.UserID)
		ctx = logger.WithUserID(ctx, claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
