package progression

import "time"

// AchievementDefinition is an immutable catalog entry.
type AchievementDefinition struct {
	ID          string
	Title       string
	Description string
	Icon        string
	XPReward    int64
	Predicate   func(State, Counters) bool
}

// AchievementStatus is one learner's standing on one achievement. Once
// Unlocked is true it never reverts and UnlockedAt is never rewritten.
type AchievementStatus struct {
	ID         string     `json:"id"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

var catalog = []AchievementDefinition{
	{
		ID:          "first_upload",
		Title:       "First Steps",
		Description: "Upload your first set of notes",
		Icon:        "📚",
		XPReward:    20,
		Predicate:   func(_ State, c Counters) bool { return c.NotesProcessed >= 1 },
	},
	{
		ID:          "flashcard_master",
		Title:       "Flashcard Master",
		Description: "Complete 50 flashcards",
		Icon:        "🎴",
		XPReward:    100,
		Predicate:   func(_ State, c Counters) bool { return c.FlashcardsCompleted >= 50 },
	},
	{
		ID:          "week_streak",
		Title:       "Week Warrior",
		Description: "Maintain a 7-day study streak",
		Icon:        "🔥",
		XPReward:    150,
		Predicate:   func(s State, _ Counters) bool { return s.Streak >= 7 },
	},
	{
		ID:          "level_up",
		Title:       "Rising Scholar",
		Description: "Reach level 5",
		Icon:        "⭐",
		XPReward:    200,
		Predicate:   func(s State, _ Counters) bool { return s.Level() >= 5 },
	},
	{
		ID:          "audio_lover",
		Title:       "Audio Enthusiast",
		Description: "Generate 25 audio summaries",
		Icon:        "🎧",
		XPReward:    120,
		Predicate:   func(_ State, c Counters) bool { return c.AudioGenerated >= 25 },
	},
	{
		ID:          "knowledge_seeker",
		Title:       "Knowledge Seeker",
		Description: "Process 100 sets of notes",
		Icon:        "🧠",
		XPReward:    300,
		Predicate:   func(_ State, c Counters) bool { return c.NotesProcessed >= 100 },
	},
	{
		ID:          "xp_hoarder",
		Title:       "XP Hoarder",
		Description: "Earn 2,000 XP in total",
		Icon:        "💰",
		XPReward:    100,
		Predicate:   func(s State, _ Counters) bool { return s.TotalXP >= 2000 },
	},
}

// Achievements returns a copy of the built-in catalog in display order.
func Achievements() []AchievementDefinition {
	out := make([]AchievementDefinition, len(catalog))
	copy(out, catalog)
	return out
}

// AchievementByID looks up a catalog entry.
func AchievementByID(id string) (AchievementDefinition, bool) {
	for _, def := range catalog {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDefinition{}, false
}

// Evaluate tests every locked achievement in defs against state and
// counters. It returns a new status slice ordered like defs, followed by
// any statuses for IDs outside defs, and the definitions unlocked by this
// call. Already unlocked statuses are copied through untouched, so
// repeated calls are no-ops.
func Evaluate(state State, counters Counters, defs []AchievementDefinition, statuses []AchievementStatus, now time.Time) ([]AchievementStatus, []AchievementDefinition) {
	prev := make(map[string]AchievementStatus, len(statuses))
	for _, st := range statuses {
		prev[st.ID] = st
	}
	known := make(map[string]bool, len(defs))

	out := make([]AchievementStatus, 0, len(defs))
	var unlocked []AchievementDefinition
	for _, def := range defs {
		known[def.ID] = true
		st, ok := prev[def.ID]
		if !ok {
			st = AchievementStatus{ID: def.ID}
		}
		if st.Unlocked {
			out = append(out, cloneStatus(st))
			continue
		}
		if def.Predicate != nil && def.Predicate(state, counters) {
			at := now
			st = AchievementStatus{ID: def.ID, Unlocked: true, UnlockedAt: &at}
			unlocked = append(unlocked, def)
		}
		out = append(out, st)
	}
	for _, st := range statuses {
		if !known[st.ID] {
			out = append(out, cloneStatus(st))
		}
	}
	return out, unlocked
}

func cloneStatus(st AchievementStatus) AchievementStatus {
	if st.UnlockedAt != nil {
		at := *st.UnlockedAt
		st.UnlockedAt = &at
	}
	return st
}
