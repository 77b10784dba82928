package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/metadata"
	"github.com/ad-tracker/video-moderation-go/internal/models"
	"github.com/ad-tracker/video-moderation-go/internal/validation"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

// MetadataHandler proxies video metadata lookups for moderators.
type MetadataHandler struct {
	fetcher   metadata.Fetcher
	validator *validation.Validator
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(fetcher metadata.Fetcher) *MetadataHandler {
	return &MetadataHandler{
		fetcher:   fetcher,
		validator: validation.New(),
	}
}

// GetVideoInfo returns provider metadata for a video.
func (h *MetadataHandler) GetVideoInfo(c *gin.Context) {
	videoID := c.Param("video_id")

	if !h.validator.IsResolvableVideoID(videoID) {
		respond(c, http.StatusUnprocessableEntity, "Invalid video id")
		return
	}

	md, err := h.fetcher.FetchMetadata(c.Request.Context(), videoID)
	if err != nil {
		logger.Log.Warn("Metadata lookup failed",
			zap.Error(err),
			zap.String("video_id", videoID),
		)
		respond(c, http.StatusUnprocessableEntity, "Unable to fetch video info")
		return
	}

	c.JSON(http.StatusOK, models.VideoInfoResponse{
		VideoID: videoID,
		Info:    md,
	})
}
