package moderation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ad-tracker/video-moderation-go/internal/db"
	"github.com/ad-tracker/video-moderation-go/internal/db/repository"
	"github.com/ad-tracker/video-moderation-go/internal/models"
)

// fakeState is the in-memory equivalent of the two tables.
type fakeState struct {
	videos map[string]models.Video
	logs   []models.LogEntry
	nextID int64
	now    time.Time
}

func (st *fakeState) clone() *fakeState {
	videos := make(map[string]models.Video, len(st.videos))
	for id, v := range st.videos {
		videos[id] = v
	}
	return &fakeState{
		videos: videos,
		logs:   append([]models.LogEntry(nil), st.logs...),
		nextID: st.nextID,
		now:    st.now,
	}
}

// tick advances the fake clock so every write gets a distinct timestamp.
func (st *fakeState) tick() time.Time {
	st.now = st.now.Add(time.Second)
	return st.now
}

// fakeStore implements repository.Store. Transactions are serialized by a
// single mutex and undone on error.
type fakeStore struct {
	mu     *sync.Mutex
	state  *fakeState
	inTx   bool
	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		mu: &sync.Mutex{},
		state: &fakeState{
			videos: make(map[string]models.Video),
			now:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		failOn: make(map[string]error),
	}
}

func (s *fakeStore) Videos() repository.VideoRepository {
	return &fakeVideos{s}
}

func (s *fakeStore) Logs() repository.ModerationLogRepository {
	return &fakeLogs{s}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err := s.failOn["InTx"]; err != nil {
		return err
	}

	saved := s.state.clone()
	tx := &fakeStore{mu: s.mu, state: s.state, inTx: true, failOn: s.failOn}

	if err := fn(ctx, tx); err != nil {
		*s.state = *saved
		return err
	}
	return nil
}

// enter locks the store for calls made outside a transaction.
func (s *fakeStore) enter(method string) (func(), error) {
	unlock := func() {}
	if !s.inTx {
		s.mu.Lock()
		unlock = s.mu.Unlock
	}
	if err := s.failOn[method]; err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

// logCount returns how many entries exist for a video.
func (s *fakeStore) logCount(videoID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.state.logs {
		if e.VideoID == videoID {
			n++
		}
	}
	return n
}

// video returns the stored row for videoID.
func (s *fakeStore) video(videoID string) (models.Video, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.state.videos[videoID]
	return v, ok
}

type fakeVideos struct {
	s *fakeStore
}

func (r *fakeVideos) CreateVideo(ctx context.Context, videoID string) (*models.Video, bool, error) {
	unlock, err := r.s.enter("CreateVideo")
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	if _, exists := r.s.state.videos[videoID]; exists {
		return nil, false, nil
	}

	now := r.s.state.tick()
	v := models.Video{ID: videoID, Status: models.StatusPending, CreatedAt: now, UpdatedAt: now}
	r.s.state.videos[videoID] = v
	return &v, true, nil
}

func (r *fakeVideos) GetVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	unlock, err := r.s.enter("GetVideoByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := r.s.state.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("get video by id: %w", db.ErrNotFound)
	}
	return &v, nil
}

func (r *fakeVideos) LockVideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	unlock, err := r.s.enter("LockVideoByID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := r.s.state.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("lock video by id: %w", db.ErrNotFound)
	}
	return &v, nil
}

func (r *fakeVideos) LockNextPendingFor(ctx context.Context, moderator string, skip []string) (*models.Video, error) {
	unlock, err := r.s.enter("LockNextPendingFor")
	if err != nil {
		return nil, err
	}
	defer unlock()

	skipped := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	takenByOther := make(map[string]bool)
	for _, e := range r.s.state.logs {
		if e.Moderator != nil && *e.Moderator != moderator {
			takenByOther[e.VideoID] = true
		}
	}

	var candidates []models.Video
	for _, v := range r.s.state.videos {
		if v.Status == models.StatusPending && !skipped[v.ID] && !takenByOther[v.ID] {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("lock next pending video: %w", db.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return &candidates[0], nil
}

func (r *fakeVideos) ResolveVideo(ctx context.Context, videoID string, status models.Status) (*models.Video, error) {
	unlock, err := r.s.enter("ResolveVideo")
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := r.s.state.videos[videoID]
	if !ok || v.Status != models.StatusPending {
		return nil, fmt.Errorf("resolve video: %w", db.ErrNotFound)
	}
	v.Status = status
	v.UpdatedAt = r.s.state.tick()
	r.s.state.videos[videoID] = v
	return &v, nil
}

func (r *fakeVideos) CountByStatus(ctx context.Context) (*models.Stats, error) {
	unlock, err := r.s.enter("CountByStatus")
	if err != nil {
		return nil, err
	}
	defer unlock()

	stats := &models.Stats{}
	for _, v := range r.s.state.videos {
		switch v.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusSpam:
			stats.Spam++
		case models.StatusNotSpam:
			stats.NotSpam++
		}
		stats.Total++
	}
	return stats, nil
}

type fakeLogs struct {
	s *fakeStore
}

func (r *fakeLogs) CreateEntry(ctx context.Context, entry *models.LogEntry) error {
	unlock, err := r.s.enter("CreateEntry")
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := r.s.state.videos[entry.VideoID]; !ok {
		return fmt.Errorf("create log entry: %w", db.ErrForeignKeyViolation)
	}

	r.s.state.nextID++
	entry.ID = r.s.state.nextID
	entry.CreatedAt = r.s.state.tick()

	stored := *entry
	if entry.Moderator != nil {
		m := *entry.Moderator
		stored.Moderator = &m
	}
	r.s.state.logs = append(r.s.state.logs, stored)
	return nil
}

func (r *fakeLogs) HasEntryForModerator(ctx context.Context, videoID, moderator string) (bool, error) {
	unlock, err := r.s.enter("HasEntryForModerator")
	if err != nil {
		return false, err
	}
	defer unlock()

	for _, e := range r.s.state.logs {
		if e.VideoID == videoID && e.Moderator != nil && *e.Moderator == moderator {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLogs) HasHandoutToOther(ctx context.Context, videoID, moderator string) (bool, error) {
	unlock, err := r.s.enter("HasHandoutToOther")
	if err != nil {
		return false, err
	}
	defer unlock()

	for _, e := range r.s.state.logs {
		if e.VideoID == videoID && e.Moderator != nil && *e.Moderator != moderator {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLogs) ListByVideoID(ctx context.Context, videoID string) ([]*models.LogEntry, error) {
	unlock, err := r.s.enter("ListByVideoID")
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries := make([]*models.LogEntry, 0)
	for i := range r.s.state.logs {
		if r.s.state.logs[i].VideoID == videoID {
			e := r.s.state.logs[i]
			entries = append(entries, &e)
		}
	}
	return entries, nil
}
