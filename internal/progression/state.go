// Package progression computes levels, streaks and achievement unlocks from
// XP totals and activity dates.
//
// Every function is pure: inputs are passed explicitly and new values are
// returned. Nothing here performs I/O or reads the wall clock; callers
// supply a Day or a Clock.
package progression

// State is one learner's cumulative standing. The level is always derived
// from TotalXP via Level and is never stored.
type State struct {
	TotalXP      int64 `json:"total_xp"`
	Streak       int   `json:"streak"`
	LastActivity Day   `json:"last_activity_date"`
}

// Level returns LevelFor(s.TotalXP).
func (s State) Level() int { return LevelFor(s.TotalXP) }

// Progress returns ProgressFor(s.TotalXP).
func (s State) Progress() Progress { return ProgressFor(s.TotalXP) }

// Counters are auxiliary activity tallies consulted by achievement
// predicates.
type Counters struct {
	NotesProcessed      int `json:"notes_processed"`
	FlashcardsCompleted int `json:"flashcards_completed"`
	AudioGenerated      int `json:"audio_generated"`
	StudySessions       int `json:"study_sessions"`
}

// Bump returns c with the counter belonging to activity incremented.
func (c Counters) Bump(activity Activity) Counters {
	switch activity {
	case ActivityUploadNotes:
		c.NotesProcessed++
	case ActivityCompleteFlashcard:
		c.FlashcardsCompleted++
	case ActivityStudySession:
		c.StudySessions++
	}
	return c
}

// Outcome is the full effect of recording one activity.
type Outcome struct {
	State    State
	Counters Counters
	Award    Award
	Streak   StreakUpdate
}

// Record applies activity performed on today: streak rule, catalog XP plus
// any streak bonus, and counter bump. LeveledUp in the returned Award
// compares the level before and after both amounts.
func Record(state State, counters Counters, activity Activity, today Day) (Outcome, error) {
	base, err := XPFor(activity)
	if err != nil {
		return Outcome{}, err
	}

	streak := UpdateStreak(state, today)
	award := AddAmount(state.TotalXP, base+streak.Bonus)

	next := State{
		TotalXP:      award.NewTotal,
		Streak:       streak.Streak,
		LastActivity: state.LastActivity,
	}
	if state.LastActivity.IsZero() || streak.Gap > 0 {
		next.LastActivity = today
	}

	return Outcome{
		State:    next,
		Counters: counters.Bump(activity),
		Award:    award,
		Streak:   streak,
	}, nil
}
