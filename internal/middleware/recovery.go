package middleware

import (
	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"github.com/alkitu/gatekeeper/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns panics in later handlers into a 500 response
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("request_id", c.GetHeader(RequestIDHeader)),
				)
				response.Error(c, apperrors.ErrInternal)
			}
		}()

		c.Next()
	}
}
