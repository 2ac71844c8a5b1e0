package handlers

import (
	"errors"
	"net/http"

	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API answer.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// respondError maps domain errors to their status. Anything unknown is left to
// the error middleware, which answers with a generic 500. action names the
// operation in permission errors.
func respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		respondMessage(c, http.StatusConflict, services.ErrUsernameTaken.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondMessage(c, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		respondMessage(c, http.StatusNotFound, services.ErrTaskNotFound.Error())
	case errors.Is(err, services.ErrForbidden):
		respondMessage(c, http.StatusForbidden, "You do not have permission to "+action+" this task")
	default:
		_ = c.Error(err)
	}
}
