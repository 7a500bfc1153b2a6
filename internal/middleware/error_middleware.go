package middleware

import (
	"net/http"

	"chatbridge/internal/transport/httpdto"
	"chatbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler logs errors attached with c.Error. Details stay server-side; if
// the handler wrote nothing the client gets a generic 500.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			l.ErrorCtx(c.Request.Context(), "request error",
				zap.String("path", c.Request.URL.Path),
				zap.Error(e.Err),
			)
		}
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Internal server error", "INTERNAL_ERROR"))
		}
	}
}

// Recovery turns a panic into a logged 500.
func Recovery(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		l.ErrorCtx(c.Request.Context(), "panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpdto.NewErrorResponse("Internal server error", "INTERNAL_ERROR"))
	})
}
