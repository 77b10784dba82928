package middleware

import (
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/validation"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

const moderatorKey = "moderator"

// ModeratorAuth resolves the moderator from the Authorization header, which
// carries the base64-encoded moderator name. Requests without a decodable,
// valid name are rejected with 401.
func ModeratorAuth() gin.HandlerFunc {
	validator := validation.New()
	log := logger.Named("auth")

	return func(c *gin.Context) {
		moderator, ok := decodeModerator(c.GetHeader(headerAuth))
		if !ok || validator.ValidateModerator(moderator) != nil {
			log.Warn("Rejected moderator credentials",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()),
			)
			abortUnauthorized(c, "a base64-encoded moderator name is required in the Authorization header")
			return
		}

		c.Set(moderatorKey, moderator)
		c.Next()
	}
}

// ModeratorFromContext returns the moderator resolved by ModeratorAuth.
func ModeratorFromContext(c *gin.Context) (string, bool) {
	moderator := c.GetString(moderatorKey)
	return moderator, moderator != ""
}

func decodeModerator(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return "", false
	}

	return string(decoded), true
}
