package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPForCatalog(t *testing.T) {
	want := map[Activity]int64{
		ActivityUploadNotes:       50,
		ActivityCompleteFlashcard: 10,
		ActivityDailyLogin:        20,
		ActivityStudySession:      30,
	}
	for _, a := range AllActivities() {
		xp, err := XPFor(a)
		require.NoError(t, err)
		assert.Equal(t, want[a], xp, string(a))
	}
}

func TestAddXPUploadNotesScenario(t *testing.T) {
	first, err := AddXP(0, ActivityUploadNotes)
	require.NoError(t, err)
	assert.Equal(t, Award{NewTotal: 50, XPGained: 50, LeveledUp: false, NewLevel: 1}, first)

	second, err := AddXP(first.NewTotal, ActivityUploadNotes)
	require.NoError(t, err)
	assert.Equal(t, Award{NewTotal: 100, XPGained: 50, LeveledUp: true, NewLevel: 2}, second)
}

func TestAddXPUnknownActivity(t *testing.T) {
	_, err := AddXP(0, Activity("juggling"))
	require.ErrorIs(t, err, ErrUnknownActivity)
}

func TestAddAmountNegativePanics(t *testing.T) {
	assert.Panics(t, func() { AddAmount(-5, 10) })
	assert.Panics(t, func() { AddAmount(5, -10) })
}
