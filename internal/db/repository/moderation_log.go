package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ad-tracker/video-moderation-go/internal/db"
	"github.com/ad-tracker/video-moderation-go/internal/models"
)

// ModerationLogRepository defines operations on the append-only moderation
// audit trail. Entries are never updated or deleted.
type ModerationLogRepository interface {
	// CreateEntry appends an entry and fills in its ID and CreatedAt.
	CreateEntry(ctx context.Context, entry *models.LogEntry) error

	// HasEntryForModerator reports whether any entry links the moderator to
	// the video. Such an entry is the moderator's standing to issue a verdict.
	HasEntryForModerator(ctx context.Context, videoID, moderator string) (bool, error)

	// HasHandoutToOther reports whether the video was handed to any
	// moderator other than the given one.
	HasHandoutToOther(ctx context.Context, videoID, moderator string) (bool, error)

	// ListByVideoID returns a video's entries oldest first. Unknown videos
	// yield an empty slice.
	ListByVideoID(ctx context.Context, videoID string) ([]*models.LogEntry, error)
}

type moderationLogRepository struct {
	conn DBTX
}

// NewModerationLogRepository creates a new ModerationLogRepository.
func NewModerationLogRepository(conn DBTX) ModerationLogRepository {
	return &moderationLogRepository{conn: conn}
}

func (r *moderationLogRepository) CreateEntry(ctx context.Context, entry *models.LogEntry) error {
	if !entry.Status.IsValid() {
		return fmt.Errorf("create log entry: %w", models.ErrUnknownStatus)
	}

	query := `
		INSERT INTO moderation_log (video_id, moderator, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.conn.QueryRow(ctx, query,
		entry.VideoID,
		entry.Moderator,
		entry.Status.String(),
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return db.WrapError(err, "create log entry")
	}

	return nil
}

func (r *moderationLogRepository) HasEntryForModerator(ctx context.Context, videoID, moderator string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM moderation_log
			WHERE video_id = $1 AND moderator = $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, videoID, moderator).Scan(&exists); err != nil {
		return false, db.WrapError(err, "check moderator log entry")
	}

	return exists, nil
}

func (r *moderationLogRepository) HasHandoutToOther(ctx context.Context, videoID, moderator string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM moderation_log
			WHERE video_id = $1 AND moderator IS NOT NULL AND moderator <> $2
		)
	`

	var exists bool
	if err := r.conn.QueryRow(ctx, query, videoID, moderator).Scan(&exists); err != nil {
		return false, db.WrapError(err, "check handout to other moderator")
	}

	return exists, nil
}

func (r *moderationLogRepository) ListByVideoID(ctx context.Context, videoID string) ([]*models.LogEntry, error) {
	query := `
		SELECT id, video_id, moderator, status, created_at
		FROM moderation_log
		WHERE video_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.conn.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "list log entries")
	}
	defer rows.Close()

	return scanLogEntries(rows)
}

func scanLogEntries(rows pgx.Rows) ([]*models.LogEntry, error) {
	entries := make([]*models.LogEntry, 0)

	for rows.Next() {
		var (
			entry  models.LogEntry
			status string
		)
		if err := rows.Scan(&entry.ID, &entry.VideoID, &entry.Moderator, &status, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}

		parsed, err := models.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("scan log entry %d: %w", entry.ID, err)
		}
		entry.Status = parsed

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}

	return entries, nil
}
