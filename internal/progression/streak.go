package progression

// StreakUpdate is the result of applying one day's activity to a streak.
type StreakUpdate struct {
	Streak int
	Bonus  int64
	// Gap is the number of days since the previous activity. It is
	// negative when there was none or when today precedes it.
	Gap int
}

// UpdateStreak applies the streak rule for activity on today:
//
//	gap == 1  streak+1, bonus awarded
//	gap  > 1  streak reset to 1, no bonus
//	gap == 0  unchanged, no bonus
//
// A first-ever activity starts the streak at 1. Activity dated before the
// last recorded day leaves the streak untouched.
func UpdateStreak(state State, today Day) StreakUpdate {
	if state.LastActivity.IsZero() {
		return StreakUpdate{Streak: 1, Gap: -1}
	}

	gap := DaysBetween(state.LastActivity, today)
	switch {
	case gap == 1:
		return StreakUpdate{Streak: state.Streak + 1, Bonus: StreakBonusXP, Gap: gap}
	case gap > 1:
		return StreakUpdate{Streak: 1, Gap: gap}
	default:
		return StreakUpdate{Streak: state.Streak, Gap: gap}
	}
}
