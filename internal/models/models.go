// Package models contains the domain types and HTTP DTOs of the video
// moderation service.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AddVideoRequest is the body of POST /add_video.
type AddVideoRequest struct {
	VideoID string `json:"video_id" binding:"required,max=64"`
}

// AddVideoResponse is returned after a video is admitted.
type AddVideoResponse struct {
	VideoID string `json:"video_id"`
}

// FlagVideoRequest is the body of POST /flag_video.
type FlagVideoRequest struct {
	VideoID string `json:"video_id" binding:"required,max=64"`
	Status  string `json:"status" binding:"required"`
}

// FlagVideoResponse is returned after a verdict is recorded.
type FlagVideoResponse struct {
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

// NextVideoResponse is returned when a video is handed to a moderator.
type NextVideoResponse struct {
	VideoID string `json:"video_id"`
}

// LogEntryResponse is one row of GET /log_video/:video_id.
type LogEntryResponse struct {
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	Moderator *string   `json:"moderator"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	TotalPendingVideos int64 `json:"total_pending_videos"`
	TotalSpamVideos    int64 `json:"total_spam_videos"`
	TotalNotSpamVideos int64 `json:"total_not_spam_videos"`
	TotalVideos        int64 `json:"total_videos"`
}

// VideoInfoResponse wraps provider metadata for GET /get_video_info/:video_id.
type VideoInfoResponse struct {
	VideoID string `json:"video_id"`
	Info    any    `json:"info"`
}

// EventType names a moderation event published after a committed change.
type EventType string

// EventType constants double as routing key suffixes.
const (
	EventVideoAdmitted EventType = "admitted"
	EventVideoAssigned EventType = "assigned"
	EventVideoResolved EventType = "resolved"
)

// ModerationEvent is the message published to the events exchange.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ModerationEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	VideoID    string    `json:"video_id"`
	Moderator  *string   `json:"moderator,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewModerationEvent stamps a new event with a fresh id.
func NewModerationEvent(eventType EventType, videoID string, moderator *string, status Status) *ModerationEvent {
	return &ModerationEvent{
		ID:         uuid.New(),
		Type:       eventType,
		VideoID:    videoID,
		Moderator:  moderator,
		Status:     status.String(),
		OccurredAt: time.Now().UTC(),
	}
}

// ErrorResponse represents an error response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}
