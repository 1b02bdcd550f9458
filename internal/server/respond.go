package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spigell/rfp-responder/internal/rfp"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), envelope{Success: false, Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, rfp.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rfp.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, rfp.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, rfp.ErrDispatch):
		return http.StatusBadGateway
	case errors.Is(err, rfp.ErrExtraction):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
