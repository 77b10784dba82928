package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/metrics"
	"github.com/ad-tracker/video-moderation-go/internal/middleware"
	"github.com/ad-tracker/video-moderation-go/internal/models"
	"github.com/ad-tracker/video-moderation-go/internal/service"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

const publishTimeout = 5 * time.Second

// ModerationService is the moderation workflow consumed by the handlers.
type ModerationService interface {
	Admit(ctx context.Context, videoID string) (*models.Video, bool, error)
	AssignNext(ctx context.Context, moderator string) (string, bool, error)
	Verdict(ctx context.Context, videoID, target, moderator string) (*models.Video, error)
	History(ctx context.Context, videoID string) ([]*models.LogEntry, error)
	Snapshot(ctx context.Context) (*models.Stats, error)
}

// ModerationHandler exposes the moderation queue over HTTP.
type ModerationHandler struct {
	svc       ModerationService
	publisher service.EventPublisher
	metrics   *metrics.Metrics
}

// NewModerationHandler creates a new ModerationHandler. A nil publisher
// disables events.
func NewModerationHandler(svc ModerationService, publisher service.EventPublisher, m *metrics.Metrics) *ModerationHandler {
	if publisher == nil {
		publisher = service.NoopPublisher{}
	}
	return &ModerationHandler{
		svc:       svc,
		publisher: publisher,
		metrics:   m,
	}
}

// AddVideo admits a video into the queue.
func (h *ModerationHandler) AddVideo(c *gin.Context) {
	var req models.AddVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respond(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	video, created, err := h.svc.Admit(c.Request.Context(), req.VideoID)
	if err != nil {
		handleError(c, err)
		return
	}

	if created {
		h.publish(c, models.NewModerationEvent(models.EventVideoAdmitted, video.ID, nil, video.Status))
	}

	c.JSON(http.StatusCreated, models.AddVideoResponse{VideoID: video.ID})
}

// GetVideo hands the next available video to the calling moderator.
func (h *ModerationHandler) GetVideo(c *gin.Context) {
	moderator, ok := middleware.ModeratorFromContext(c)
	if !ok {
		respond(c, http.StatusUnauthorized, "moderator identity is required")
		return
	}

	videoID, ok, err := h.svc.AssignNext(c.Request.Context(), moderator)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		respond(c, http.StatusUnprocessableEntity, "No videos in queue")
		return
	}

	h.publish(c, models.NewModerationEvent(models.EventVideoAssigned, videoID, &moderator, models.StatusPending))

	c.JSON(http.StatusOK, models.NextVideoResponse{VideoID: videoID})
}

// FlagVideo records the calling moderator's verdict.
func (h *ModerationHandler) FlagVideo(c *gin.Context) {
	moderator, ok := middleware.ModeratorFromContext(c)
	if !ok {
		respond(c, http.StatusUnauthorized, "moderator identity is required")
		return
	}

	var req models.FlagVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Log.Warn("Invalid request payload",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		respond(c, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	video, err := h.svc.Verdict(c.Request.Context(), req.VideoID, req.Status, moderator)
	if err != nil {
		handleError(c, err)
		return
	}

	h.publish(c, models.NewModerationEvent(models.EventVideoResolved, video.ID, &moderator, video.Status))

	c.JSON(http.StatusCreated, models.FlagVideoResponse{
		VideoID: video.ID,
		Status:  video.Status.String(),
	})
}

// LogVideo returns a video's audit trail.
func (h *ModerationHandler) LogVideo(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), c.Param("video_id"))
	if err != nil {
		handleError(c, err)
		return
	}

	resp := make([]models.LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, models.LogEntryResponse{
			Date:      e.CreatedAt,
			Status:    e.Status.String(),
			Moderator: e.Moderator,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// Stats returns the number of videos per status.
func (h *ModerationHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		TotalPendingVideos: stats.Pending,
		TotalSpamVideos:    stats.Spam,
		TotalNotSpamVideos: stats.NotSpam,
		TotalVideos:        stats.Total,
	})
}

// publish announces an already committed change. Failures are logged only.
func (h *ModerationHandler) publish(c *gin.Context, event *models.ModerationEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), publishTimeout)
	defer cancel()

	err := h.publisher.PublishEvent(ctx, event)
	h.metrics.ObserveEvent(string(event.Type), err)
	if err != nil {
		logger.Log.Warn("Failed to publish moderation event",
			zap.Error(err),
			zap.String("eventId", event.ID.String()),
			zap.String("type", string(event.Type)),
			zap.String("video_id", event.VideoID),
		)
	}
}
