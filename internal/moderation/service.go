// Package moderation implements the moderation queue: admitting videos,
// handing them out to moderators, accepting verdicts, and reporting on the
// result. All coordination between concurrent callers happens through the
// store's transactions and row locks.
package moderation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ad-tracker/video-moderation-go/internal/db"
	"github.com/ad-tracker/video-moderation-go/internal/db/repository"
	"github.com/ad-tracker/video-moderation-go/internal/metrics"
	"github.com/ad-tracker/video-moderation-go/internal/models"
	"github.com/ad-tracker/video-moderation-go/internal/validation"
	"github.com/ad-tracker/video-moderation-go/pkg/logger"
)

// Service runs the moderation workflow against a Store.
type Service struct {
	store     repository.Store
	validator *validation.Validator
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics makes the service report to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger replaces the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a Service on top of store.
func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		validator: validation.New(),
		log:       logger.Named("moderation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Admit registers a video for moderation. Admitting a known id returns the
// stored video unchanged and reports created=false. A new video and its
// first audit entry are written together.
func (s *Service) Admit(ctx context.Context, videoID string) (*models.Video, bool, error) {
	defer s.metrics.ObserveOperation("admit", time.Now())

	if err := s.validator.ValidateVideoID(videoID); err != nil {
		s.log.Warn("Rejected video id", zap.String("video_id", videoID), zap.Error(err))
		return nil, false, errors.Join(ErrInvalidIdentifier, err)
	}

	var (
		video   *models.Video
		created bool
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		v, ok, err := tx.Videos().CreateVideo(ctx, videoID)
		if err != nil {
			return storageError("create video", err)
		}

		if !ok {
			v, err = tx.Videos().GetVideoByID(ctx, videoID)
			if err != nil {
				return storageError("get video", err)
			}
			video = v
			return nil
		}

		entry := models.NewLogEntry(videoID, nil, models.StatusPending)
		if err := tx.Logs().CreateEntry(ctx, entry); err != nil {
			return storageError("create log entry", err)
		}

		video, created = v, true
		return nil
	})
	if err != nil {
		err = classify("admit", err)
		s.log.Error("Failed to admit video", zap.String("video_id", videoID), zap.Error(err))
		return nil, false, err
	}

	s.metrics.ObserveAdmission(created)
	if created {
		s.log.Info("Video admitted", zap.String("video_id", videoID))
	} else {
		s.log.Debug("Video already admitted",
			zap.String("video_id", videoID),
			zap.String("status", video.Status.String()))
	}

	return video, created, nil
}

// AssignNext hands the oldest available pending video to moderator and
// records the handout. A video handed to one moderator is never offered to
// another; a moderator asking again is offered their own unresolved handout
// first if it is the oldest. ok is false when nothing is available.
func (s *Service) AssignNext(ctx context.Context, moderator string) (videoID string, ok bool, err error) {
	defer s.metrics.ObserveOperation("assign_next", time.Now())

	if err := s.validator.ValidateModerator(moderator); err != nil {
		return "", false, errors.Join(ErrInvalidModerator, err)
	}

	var assigned string

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		skip := []string{}

		for {
			video, err := tx.Videos().LockNextPendingFor(ctx, moderator, skip)
			if db.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return storageError("select next video", err)
			}

			// The row lock may have been granted after a competing handout
			// committed; re-read the log with a fresh snapshot.
			taken, err := tx.Logs().HasHandoutToOther(ctx, video.ID, moderator)
			if err != nil {
				return storageError("check handout", err)
			}
			if taken {
				skip = append(skip, video.ID)
				continue
			}

			entry := models.NewLogEntry(video.ID, &moderator, models.StatusPending)
			if err := tx.Logs().CreateEntry(ctx, entry); err != nil {
				return storageError("record handout", err)
			}

			assigned = video.ID
			return nil
		}
	})
	if err != nil {
		err = classify("assign next", err)
		s.log.Error("Failed to assign video", zap.String("moderator", moderator), zap.Error(err))
		return "", false, err
	}

	s.metrics.ObserveHandout(assigned != "")
	if assigned == "" {
		s.log.Debug("No video available", zap.String("moderator", moderator))
		return "", false, nil
	}

	s.log.Info("Video handed out",
		zap.String("video_id", assigned),
		zap.String("moderator", moderator))

	return assigned, true, nil
}

// Verdict records moderator's decision on a video. target must be spam or
// not_spam, the moderator must have been handed the video, and the video
// must still be pending. The status change and its audit entry commit
// together.
func (s *Service) Verdict(ctx context.Context, videoID, target, moderator string) (*models.Video, error) {
	defer s.metrics.ObserveOperation("verdict", time.Now())

	status, err := models.ParseStatus(target)
	if err != nil || !status.IsTerminal() {
		s.metrics.ObserveVerdict("invalid_status")
		return nil, errors.Join(ErrInvalidStatus, errors.New("status must be spam or not_spam"))
	}
	if err := s.validator.ValidateVideoID(videoID); err != nil {
		s.metrics.ObserveVerdict("invalid_identifier")
		return nil, errors.Join(ErrInvalidIdentifier, err)
	}
	if err := s.validator.ValidateModerator(moderator); err != nil {
		s.metrics.ObserveVerdict("invalid_moderator")
		return nil, errors.Join(ErrInvalidModerator, err)
	}

	var resolved *models.Video

	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Store) error {
		video, err := tx.Videos().LockVideoByID(ctx, videoID)
		if db.IsNotFound(err) {
			return ErrVideoNotFound
		}
		if err != nil {
			return storageError("lock video", err)
		}

		allowed, err := tx.Logs().HasEntryForModerator(ctx, videoID, moderator)
		if err != nil {
			return storageError("check authorization", err)
		}
		if !allowed {
			return ErrUnauthorized
		}

		if video.IsResolved() {
			return ErrAlreadyResolved
		}

		updated, err := tx.Videos().ResolveVideo(ctx, videoID, status)
		if db.IsNotFound(err) {
			return ErrAlreadyResolved
		}
		if err != nil {
			return storageError("resolve video", err)
		}

		entry := models.NewLogEntry(videoID, &moderator, status)
		if err := tx.Logs().CreateEntry(ctx, entry); err != nil {
			return storageError("record verdict", err)
		}

		resolved = updated
		return nil
	})
	if err != nil {
		err = classify("verdict", err)
		s.metrics.ObserveVerdict(outcome(err))

		fields := []zap.Field{
			zap.String("video_id", videoID),
			zap.String("moderator", moderator),
			zap.String("status", target),
			zap.Error(err),
		}
		if errors.Is(err, ErrStorageFailure) {
			s.log.Error("Failed to record verdict", fields...)
		} else {
			s.log.Warn("Verdict rejected", fields...)
		}
		return nil, err
	}

	s.metrics.ObserveVerdict(status.String())
	s.log.Info("Verdict recorded",
		zap.String("video_id", videoID),
		zap.String("moderator", moderator),
		zap.String("status", status.String()))

	return resolved, nil
}

// History returns a video's audit trail oldest first. Unknown videos yield
// an empty slice.
func (s *Service) History(ctx context.Context, videoID string) ([]*models.LogEntry, error) {
	defer s.metrics.ObserveOperation("history", time.Now())

	// Ids Admit would reject can never have been stored.
	if !s.validator.IsValidVideoID(videoID) {
		return []*models.LogEntry{}, nil
	}

	entries, err := s.store.Logs().ListByVideoID(ctx, videoID)
	if err != nil {
		return nil, storageError("list history", err)
	}
	return entries, nil
}

// Snapshot counts videos per status in a single read.
func (s *Service) Snapshot(ctx context.Context) (*models.Stats, error) {
	defer s.metrics.ObserveOperation("snapshot", time.Now())

	stats, err := s.store.Videos().CountByStatus(ctx)
	if err != nil {
		return nil, storageError("count videos", err)
	}
	return stats, nil
}

// classify passes domain errors through and marks anything else, such as a
// failed begin or commit, as a storage failure.
func classify(op string, err error) error {
	var se *StorageError
	switch {
	case errors.As(err, &se),
		errors.Is(err, ErrVideoNotFound),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrAlreadyResolved):
		return err
	default:
		return storageError(op, err)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrVideoNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyResolved):
		return "already_resolved"
	default:
		return "storage_failure"
	}
}
