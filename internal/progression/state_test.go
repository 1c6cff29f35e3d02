package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFirstActivity(t *testing.T) {
	today := NewDay(2024, time.January, 10)
	out, err := Record(State{}, Counters{}, ActivityUploadNotes, today)
	require.NoError(t, err)

	assert.Equal(t, State{TotalXP: 50, Streak: 1, LastActivity: today}, out.State)
	assert.Equal(t, 1, out.Counters.NotesProcessed)
	assert.False(t, out.Award.LeveledUp)
}

func TestRecordAddsStreakBonus(t *testing.T) {
	start := State{TotalXP: 80, Streak: 3, LastActivity: NewDay(2024, time.January, 10)}
	out, err := Record(start, Counters{}, ActivityCompleteFlashcard, NewDay(2024, time.January, 11))
	require.NoError(t, err)

	assert.Equal(t, int64(80+10+15), out.State.TotalXP)
	assert.Equal(t, 4, out.State.Streak)
	assert.True(t, out.Award.LeveledUp)
	assert.Equal(t, 2, out.Award.NewLevel)
	assert.Equal(t, 1, out.Counters.FlashcardsCompleted)
}

func TestRecordSameDayKeepsDate(t *testing.T) {
	day := NewDay(2024, time.January, 10)
	start := State{TotalXP: 10, Streak: 2, LastActivity: day}
	out, err := Record(start, Counters{}, ActivityDailyLogin, day)
	require.NoError(t, err)
	assert.Equal(t, day, out.State.LastActivity)
	assert.Equal(t, 2, out.State.Streak)
}

func TestRecordDoesNotMutateInputs(t *testing.T) {
	start := State{TotalXP: 10, Streak: 2, LastActivity: NewDay(2024, time.January, 10)}
	counters := Counters{NotesProcessed: 3}
	_, err := Record(start, counters, ActivityUploadNotes, NewDay(2024, time.January, 12))
	require.NoError(t, err)
	assert.Equal(t, int64(10), start.TotalXP)
	assert.Equal(t, 3, counters.NotesProcessed)
}

func TestRecordUnknownActivity(t *testing.T) {
	_, err := Record(State{}, Counters{}, Activity("nap"), NewDay(2024, time.January, 1))
	require.ErrorIs(t, err, ErrUnknownActivity)
}
