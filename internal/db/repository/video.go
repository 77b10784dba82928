package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ad-tracker/video-moderation-go/internal/db"
	"github.com/ad-tracker/video-moderation-go/internal/models"
)

// VideoRepository defines operations on the videos registry.
type VideoRepository interface {
	// CreateVideo inserts a pending video unless the id already exists.
	// created is false (and video nil) when the id was already registered.
	CreateVideo(ctx context.Context, videoID string) (video *models.Video, created bool, err error)

	// GetVideoByID retrieves a single video by ID.
	GetVideoByID(ctx context.Context, videoID string) (*models.Video, error)

	// LockVideoByID retrieves a video and holds its row lock until the
	// surrounding transaction ends.
	LockVideoByID(ctx context.Context, videoID string) (*models.Video, error)

	// LockNextPendingFor locks the oldest pending video that has not been
	// handed to a moderator other than the given one. Rows locked by
	// concurrent transactions and ids in skip are passed over.
	LockNextPendingFor(ctx context.Context, moderator string, skip []string) (*models.Video, error)

	// ResolveVideo moves a pending video to a terminal status. It returns
	// db.ErrNotFound when no pending row with that id exists.
	ResolveVideo(ctx context.Context, videoID string, status models.Status) (*models.Video, error)

	// CountByStatus counts every video per status in a single pass.
	CountByStatus(ctx context.Context) (*models.Stats, error)
}

type videoRepository struct {
	conn DBTX
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(conn DBTX) VideoRepository {
	return &videoRepository{conn: conn}
}

func (r *videoRepository) CreateVideo(ctx context.Context, videoID string) (*models.Video, bool, error) {
	query := `
		INSERT INTO videos (id, status)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, status, created_at, updated_at
	`

	video, err := scanVideo(r.conn.QueryRow(ctx, query, videoID, models.StatusPending.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, db.WrapError(err, "create video")
	}

	return video, true, nil
}

func (r *videoRepository) GetVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	query := `
		SELECT id, status, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	video, err := scanVideo(r.conn.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) LockVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	query := `
		SELECT id, status, created_at, updated_at
		FROM videos
		WHERE id = $1
		FOR UPDATE
	`

	video, err := scanVideo(r.conn.QueryRow(ctx, query, videoID))
	if err != nil {
		return nil, db.WrapError(err, "lock video by id")
	}

	return video, nil
}

func (r *videoRepository) LockNextPendingFor(ctx context.Context, moderator string, skip []string) (*models.Video, error) {
	query := `
		SELECT v.id, v.status, v.created_at, v.updated_at
		FROM videos v
		WHERE v.status = $1
		  AND NOT (v.id = ANY($3))
		  AND NOT EXISTS (
			SELECT 1
			FROM moderation_log l
			WHERE l.video_id = v.id
			  AND l.moderator IS NOT NULL
			  AND l.moderator <> $2
		  )
		ORDER BY v.created_at ASC, v.id ASC
		LIMIT 1
		FOR UPDATE OF v SKIP LOCKED
	`

	// A nil slice is sent as NULL, which would make "= ANY" filter every row.
	if skip == nil {
		skip = []string{}
	}

	video, err := scanVideo(r.conn.QueryRow(ctx, query, models.StatusPending.String(), moderator, skip))
	if err != nil {
		return nil, db.WrapError(err, "lock next pending video")
	}

	return video, nil
}

func (r *videoRepository) ResolveVideo(ctx context.Context, videoID string, status models.Status) (*models.Video, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("resolve video: %w: %q is not a verdict", models.ErrUnknownStatus, status.String())
	}

	query := `
		UPDATE videos
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING id, status, created_at, updated_at
	`

	video, err := scanVideo(r.conn.QueryRow(ctx, query, videoID, status.String(), models.StatusPending.String()))
	if err != nil {
		return nil, db.WrapError(err, "resolve video")
	}

	return video, nil
}

func (r *videoRepository) CountByStatus(ctx context.Context) (*models.Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'spam'),
			COUNT(*) FILTER (WHERE status = 'not_spam'),
			COUNT(*)
		FROM videos
	`

	stats := &models.Stats{}
	err := r.conn.QueryRow(ctx, query).Scan(
		&stats.Pending,
		&stats.Spam,
		&stats.NotSpam,
		&stats.Total,
	)
	if err != nil {
		return nil, db.WrapError(err, "count videos by status")
	}

	return stats, nil
}

// scanVideo reads one videos row, converting the stored status.
func scanVideo(row pgx.Row) (*models.Video, error) {
	var (
		video  models.Video
		status string
	)

	if err := row.Scan(&video.ID, &status, &video.CreatedAt, &video.UpdatedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("scan video %s: %w", video.ID, err)
	}
	video.Status = parsed

	return &video, nil
}
