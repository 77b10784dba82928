package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ad-tracker/video-moderation-go/internal/metrics"
	"github.com/ad-tracker/video-moderation-go/internal/middleware"
)

// RouterConfig wires the handlers into a router.
type RouterConfig struct {
	Moderation *ModerationHandler
	Metadata   *MetadataHandler
	Health     *HealthHandler
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	// APIKeys protect POST /add_video. Empty leaves it open.
	APIKeys []string
}

// NewRouter builds the gin engine serving every route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(), middleware.Metrics(cfg.Metrics))

	admit := []gin.HandlerFunc{cfg.Moderation.AddVideo}
	if len(cfg.APIKeys) > 0 {
		admit = append([]gin.HandlerFunc{middleware.NewAPIKeyAuth(cfg.APIKeys).Handler()}, admit...)
	}
	r.POST("/add_video", admit...)

	moderator := r.Group("/", middleware.ModeratorAuth())
	moderator.GET("/get_video", cfg.Moderation.GetVideo)
	moderator.POST("/flag_video", cfg.Moderation.FlagVideo)

	r.GET("/log_video/:video_id", cfg.Moderation.LogVideo)
	r.GET("/stats", cfg.Moderation.Stats)

	if cfg.Metadata != nil {
		r.GET("/get_video_info/:video_id", cfg.Metadata.GetVideoInfo)
	}

	if cfg.Health != nil {
		r.GET("/health/live", cfg.Health.LivenessProbe)
		r.GET("/health/ready", cfg.Health.ReadinessProbe)
	}

	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
