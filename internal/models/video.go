package models

import "time"

// Video is the current moderation state of an externally hosted video. ID is
// the provider's video id and is the primary key.
type Video struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsResolved reports whether a verdict has already been recorded.
func (v *Video) IsResolved() bool {
	return v.Status.IsTerminal()
}

// LogEntry is one immutable row of a video's moderation audit trail.
// A nil Moderator marks a system-originated entry.
type LogEntry struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id"`
	Moderator *string   `json:"moderator"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewLogEntry builds an entry ready to be appended. ID and CreatedAt are
// assigned by the store.
func NewLogEntry(videoID string, moderator *string, status Status) *LogEntry {
	return &LogEntry{
		VideoID:   videoID,
		Moderator: moderator,
		Status:    status,
	}
}

// IsSystem reports whether the entry was written without a moderator.
func (e *LogEntry) IsSystem() bool {
	return e.Moderator == nil
}

// Stats is a point-in-time count of videos per status.
type Stats struct {
	Pending int64 `json:"pending"`
	Spam    int64 `json:"spam"`
	NotSpam int64 `json:"not_spam"`
	Total   int64 `json:"total"`
}
