//go:build integration
// +build integration

package moderation

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/video-moderation-go/internal/db/repository"
	"github.com/ad-tracker/video-moderation-go/internal/db/testutil"
	"github.com/ad-tracker/video-moderation-go/internal/models"
)

func TestService_Postgres(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	svc := NewService(repository.NewStore(td.Pool))
	ctx := context.Background()

	t.Run("full moderation flow", func(t *testing.T) {
		td.TruncateTables(t)

		_, created, err := svc.Admit(ctx, "x8abc12")
		require.NoError(t, err)
		require.True(t, created)

		_, created, err = svc.Admit(ctx, "x8abc12")
		require.NoError(t, err)
		assert.False(t, created)

		id, ok, err := svc.AssignNext(ctx, "john.doe")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "x8abc12", id)

		_, ok, err = svc.AssignNext(ctx, "jane.doe")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = svc.Verdict(ctx, id, "spam", "jane.doe")
		assert.ErrorIs(t, err, ErrUnauthorized)

		video, err := svc.Verdict(ctx, id, "spam", "john.doe")
		require.NoError(t, err)
		assert.Equal(t, models.StatusSpam, video.Status)

		_, err = svc.Verdict(ctx, id, "not_spam", "john.doe")
		assert.ErrorIs(t, err, ErrAlreadyResolved)

		history, err := svc.History(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Nil(t, history[0].Moderator)
		assert.Equal(t, models.StatusPending, history[0].Status)
		assert.Equal(t, "john.doe", *history[1].Moderator)
		assert.Equal(t, models.StatusPending, history[1].Status)
		assert.Equal(t, models.StatusSpam, history[2].Status)

		stats, err := svc.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Stats{Spam: 1, Total: 1}, *stats)
	})

	t.Run("concurrent moderators never share a video", func(t *testing.T) {
		td.TruncateTables(t)

		const videos, moderators = 12, 16
		for i := 0; i < videos; i++ {
			_, _, err := svc.Admit(ctx, fmt.Sprintf("vid%03d", i))
			require.NoError(t, err)
		}

		var (
			mu       sync.Mutex
			wg       sync.WaitGroup
			assigned = make(map[string]string)
		)
		for i := 0; i < moderators; i++ {
			wg.Add(1)
			go func(moderator string) {
				defer wg.Done()
				id, ok, err := svc.AssignNext(ctx, moderator)
				if !assert.NoError(t, err) || !ok {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if owner, taken := assigned[id]; taken {
					t.Errorf("video %s handed to %s and %s", id, owner, moderator)
				}
				assigned[id] = moderator
			}(fmt.Sprintf("mod%02d", i))
		}
		wg.Wait()

		assert.Len(t, assigned, videos)
	})

	t.Run("concurrent verdicts resolve once", func(t *testing.T) {
		td.TruncateTables(t)

		_, _, err := svc.Admit(ctx, "race01")
		require.NoError(t, err)
		_, ok, err := svc.AssignNext(ctx, "john.doe")
		require.NoError(t, err)
		require.True(t, ok)

		var (
			wg        sync.WaitGroup
			successes int
			mu        sync.Mutex
		)
		for _, target := range []string{"spam", "not_spam", "spam", "not_spam"} {
			wg.Add(1)
			go func(target string) {
				defer wg.Done()
				_, err := svc.Verdict(ctx, "race01", target, "john.doe")
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, ErrAlreadyResolved)
			}(target)
		}
		wg.Wait()

		assert.Equal(t, 1, successes)

		history, err := svc.History(ctx, "race01")
		require.NoError(t, err)
		assert.Len(t, history, 3)
	})
}
