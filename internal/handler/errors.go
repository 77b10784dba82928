// Package handler provides HTTP request handlers for the application.
package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/models"
	"github.com/ad-tracker/video-moderation-go/internal/moderation"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

// respond writes the standard error body.
func respond(c *gin.Context, status int, message string) {
	c.JSON(status, models.ErrorResponse{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// statusFor maps moderation error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, moderation.ErrInvalidIdentifier),
		errors.Is(err, moderation.ErrInvalidStatus),
		errors.Is(err, moderation.ErrInvalidModerator):
		return http.StatusBadRequest
	case errors.Is(err, moderation.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, moderation.ErrVideoNotFound):
		return http.StatusNotFound
	case errors.Is(err, moderation.ErrAlreadyResolved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError logs err and writes the matching response. Storage failures
// are not echoed to the caller.
func handleError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.Error("Request failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		_ = c.Error(err)
		respond(c, status, "An unexpected error occurred")
		return
	}

	// Joined errors print one cause per line.
	respond(c, status, strings.ReplaceAll(err.Error(), "\n", ": "))
}
