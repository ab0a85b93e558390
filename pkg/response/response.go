// Package response writes the JSON envelopes returned by the gatekeeper's own
// endpoints and failures. Requests that pass the gate are answered by the
// application instead.
package response

import (
	"errors"

	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"github.com/gin-gonic/gin"
)

// RequestIDHeader is echoed into error bodies when present on the response
const RequestIDHeader = "X-Request-ID"

// Success sends a successful JSON response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// Error aborts the request with an error JSON response. Errors that are not
// an AppError are reported as internal errors without their message.
func Error(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternal
	}
	c.AbortWithStatusJSON(appErr.Status, ErrorBody(appErr, c.Writer.Header().Get(RequestIDHeader)))
}

// ErrorBody builds the error envelope for appErr
func ErrorBody(appErr *apperrors.AppError, requestID string) gin.H {
	body := gin.H{
		"success": false,
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	return body
}
