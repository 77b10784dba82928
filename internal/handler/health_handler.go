package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ad-tracker/video-moderation-go/internal/service"
)

// Pinger checks a dependency. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	database  Pinger
	cache     Pinger
	publisher service.EventPublisher
}

// NewHealthHandler creates a new HealthHandler. cache and publisher may be
// nil when those dependencies are disabled.
func NewHealthHandler(database, cache Pinger, publisher service.EventPublisher) *HealthHandler {
	return &HealthHandler{
		database:  database,
		cache:     cache,
		publisher: publisher,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.database.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now(),
		})
		return
	}

	body := gin.H{
		"status":   "UP",
		"database": "healthy",
		"time":     time.Now(),
	}

	if h.publisher != nil {
		if !h.publisher.IsHealthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"rabbitmq": "unhealthy",
				"time":     time.Now(),
			})
			return
		}
		body["rabbitmq"] = "healthy"
	}

	// The cache only speeds up metadata lookups, so it never fails readiness.
	if h.cache != nil {
		body["redis"] = "healthy"
		if err := h.cache.Ping(ctx); err != nil {
			body["redis"] = "degraded"
		}
	}

	c.JSON(http.StatusOK, body)
}
