package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

func abortInternal(c *gin.Context, op string, err error) {
	slog.Error("Request failed", slog.String("op", op), slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
}

func abortBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message})
}
