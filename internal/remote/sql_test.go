package remote

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skulwise/skulwise/internal/connectivity"
	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/store"
)

func newTestSQL(t *testing.T) *SQL {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s, err := NewSQL(context.Background(), st.DB(), nil)
	require.NoError(t, err)
	return s
}

func TestSQLFlashcardReplayIsIgnored(t *testing.T) {
	s := newTestSQL(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	review := offline.FlashcardReview{UserID: "user-1", CardID: "card-1", Outcome: offline.OutcomeGotIt, ReviewedAt: at}
	require.NoError(t, s.ApplyFlashcardReview(ctx, "rec-1", review))
	// Same record delivered again after a lost acknowledgement.
	require.NoError(t, s.ApplyFlashcardReview(ctx, "rec-1", review))

	review.Outcome = offline.OutcomeReview
	review.ReviewedAt = at.Add(time.Hour)
	require.NoError(t, s.ApplyFlashcardReview(ctx, "rec-2", review))

	stats, err := s.Flashcard(ctx, "card-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TimesReviewed)
	assert.Equal(t, 1, stats.TimesCorrect)
	assert.True(t, stats.LastReviewed.Equal(at.Add(time.Hour)))

	ok, err := s.Applied(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Flashcard(ctx, "card-1", "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStudySessionsAndXP(t *testing.T) {
	s := newTestSQL(t)
	ctx := context.Background()
	session := offline.StudySession{
		UserID: "user-1", Subject: "history", DurationMinutes: 30, XPEarned: 30,
		CompletedAt: time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, s.ApplyStudySession(ctx, "rec-1", session))
	require.NoError(t, s.ApplyStudySession(ctx, "rec-1", session))
	require.NoError(t, s.ApplyStudySession(ctx, "rec-2", session))

	n, err := s.StudySessionCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Profile(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ApplyXPUpdate(ctx, "rec-3", offline.XPUpdate{UserID: "user-1", TotalXP: 80}))
	require.NoError(t, s.ApplyXPUpdate(ctx, "rec-4", offline.XPUpdate{UserID: "user-1", TotalXP: 110}))

	p, err := s.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(110), p.XP)
}

func TestSQLDrainsOfflineQueue(t *testing.T) {
	remoteDB := newTestSQL(t)
	st, err := store.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := offline.NewManager(offline.DefaultConfig(), st.KV(), remoteDB, connectivity.NewSignal(true))
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	t.Cleanup(func() { _ = m.Close() })

	at := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	for _, a := range []offline.Action{
		offline.FlashcardReview{UserID: "user-1", CardID: "card-1", Outcome: offline.OutcomeGotIt, ReviewedAt: at},
		offline.XPUpdate{UserID: "user-1", TotalXP: 10},
	} {
		_, err := m.Enqueue(ctx, a)
		require.NoError(t, err)
	}
	m.Wait()
	m.Sync(ctx)

	assert.Zero(t, m.Len())
	p, err := remoteDB.Profile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.XP)
	stats, err := remoteDB.Flashcard(ctx, "card-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TimesReviewed)
}
