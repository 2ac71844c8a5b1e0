package middleware

import (
	"net/http"

	"task-tracker/backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const InternalErrorMessage = "Internal server error"

// RecoveryWithLog turns a panic into the generic 500 response.
func RecoveryWithLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithRequestID(c.Request.Context(), zap.L()).Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				abortWithMessage(c, http.StatusInternalServerError, InternalErrorMessage)
			}
		}()
		c.Next()
	}
}

// ErrorHandler renders errors pushed with c.Error that no handler answered.
// Details are logged, never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		log := logger.WithRequestID(c.Request.Context(), zap.L())
		for _, ginErr := range c.Errors {
			log.Error("Unhandled request error",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Error(ginErr.Err),
			)
		}
		if !c.Writer.Written() {
			abortWithMessage(c, http.StatusInternalServerError, InternalErrorMessage)
		}
	}
}
