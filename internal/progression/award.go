package progression

import "fmt"

// Activity identifies an XP-earning user action.
type Activity string

const (
	ActivityUploadNotes       Activity = "upload_notes"
	ActivityCompleteFlashcard Activity = "complete_flashcard"
	ActivityDailyLogin        Activity = "daily_login"
	ActivityStudySession      Activity = "study_session"
)

// StreakBonusXP is awarded when activity continues a streak into a new day.
const StreakBonusXP int64 = 15

var activityXP = map[Activity]int64{
	ActivityUploadNotes:       50,
	ActivityCompleteFlashcard: 10,
	ActivityDailyLogin:        20,
	ActivityStudySession:      30,
}

// AllActivities returns the catalog in display order.
func AllActivities() []Activity {
	return []Activity{
		ActivityUploadNotes,
		ActivityCompleteFlashcard,
		ActivityDailyLogin,
		ActivityStudySession,
	}
}

// XPFor returns the fixed XP value of an activity.
func XPFor(a Activity) (int64, error) {
	xp, ok := activityXP[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownActivity, a)
	}
	return xp, nil
}

// Award is the outcome of adding XP to a total.
type Award struct {
	NewTotal  int64
	XPGained  int64
	LeveledUp bool
	NewLevel  int
}

// AddXP awards the catalog value of activity on top of currentTotal.
func AddXP(currentTotal int64, activity Activity) (Award, error) {
	xp, err := XPFor(activity)
	if err != nil {
		return Award{}, err
	}
	return AddAmount(currentTotal, xp), nil
}

// AddAmount awards an arbitrary non-negative amount, such as an achievement
// reward or streak bonus.
func AddAmount(currentTotal, amount int64) Award {
	mustNonNegative(currentTotal)
	mustNonNegative(amount)

	newTotal := currentTotal + amount
	newLevel := LevelFor(newTotal)
	return Award{
		NewTotal:  newTotal,
		XPGained:  amount,
		LeveledUp: newLevel > LevelFor(currentTotal),
		NewLevel:  newLevel,
	}
}
