package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateUnlocksOnce(t *testing.T) {
	defs := Achievements()
	now := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

	statuses, unlocked := Evaluate(State{TotalXP: 50}, Counters{NotesProcessed: 1}, defs, nil, now)
	require.Len(t, statuses, len(defs))
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first_upload", unlocked[0].ID)

	first := statuses[0]
	require.True(t, first.Unlocked)
	require.NotNil(t, first.UnlockedAt)
	assert.Equal(t, now, *first.UnlockedAt)

	later := now.Add(48 * time.Hour)
	again, unlockedAgain := Evaluate(State{TotalXP: 50}, Counters{NotesProcessed: 1}, defs, statuses, later)
	assert.Empty(t, unlockedAgain)
	assert.Equal(t, statuses, again)
	assert.Equal(t, now, *again[0].UnlockedAt)
}

func TestEvaluateNeverRelocks(t *testing.T) {
	defs := Achievements()
	at := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	statuses := []AchievementStatus{{ID: "week_streak", Unlocked: true, UnlockedAt: &at}}

	got, _ := Evaluate(State{Streak: 1}, Counters{}, defs, statuses, at.Add(time.Hour))
	for _, st := range got {
		if st.ID == "week_streak" {
			assert.True(t, st.Unlocked)
			assert.Equal(t, at, *st.UnlockedAt)
			return
		}
	}
	t.Fatal("week_streak status missing")
}

func TestEvaluateKeepsUnknownStatuses(t *testing.T) {
	at := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	statuses := []AchievementStatus{{ID: "retired", Unlocked: true, UnlockedAt: &at}}

	got, _ := Evaluate(State{}, Counters{}, Achievements(), statuses, at)
	last := got[len(got)-1]
	assert.Equal(t, "retired", last.ID)
	assert.True(t, last.Unlocked)
}

func TestAchievementPredicates(t *testing.T) {
	tests := []struct {
		id       string
		state    State
		counters Counters
		want     bool
	}{
		{"first_upload", State{}, Counters{NotesProcessed: 1}, true},
		{"flashcard_master", State{}, Counters{FlashcardsCompleted: 49}, false},
		{"flashcard_master", State{}, Counters{FlashcardsCompleted: 50}, true},
		{"week_streak", State{Streak: 7}, Counters{}, true},
		{"level_up", State{TotalXP: TotalXPFor(5) - 1}, Counters{}, false},
		{"level_up", State{TotalXP: TotalXPFor(5)}, Counters{}, true},
		{"audio_lover", State{}, Counters{AudioGenerated: 25}, true},
		{"knowledge_seeker", State{}, Counters{NotesProcessed: 99}, false},
		{"xp_hoarder", State{TotalXP: 2000}, Counters{}, true},
	}

	for _, tt := range tests {
		def, ok := AchievementByID(tt.id)
		require.True(t, ok, tt.id)
		assert.Equal(t, tt.want, def.Predicate(tt.state, tt.counters), "%s %+v %+v", tt.id, tt.state, tt.counters)
	}
}
