package progression

import "math"

const (
	baseLevelXP   = 100
	levelXPGrowth = 1.5
)

// XPRequiredFor returns the XP needed to complete level n (n >= 1):
// floor(100 * 1.5^(n-1)). Values past the int64 range saturate.
func XPRequiredFor(level int) int64 {
	if level < 1 {
		panic("progression: level must be >= 1")
	}
	v := math.Floor(baseLevelXP * math.Pow(levelXPGrowth, float64(level-1)))
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// TotalXPFor returns the cumulative XP at which level n begins.
// TotalXPFor(1) is 0.
func TotalXPFor(level int) int64 {
	if level < 1 {
		panic("progression: level must be >= 1")
	}
	var total int64
	for n := 1; n < level; n++ {
		req := XPRequiredFor(n)
		if total > math.MaxInt64-req {
			return math.MaxInt64
		}
		total += req
	}
	return total
}

// LevelFor returns the level reached with totalXP: the largest n such that
// TotalXPFor(n) <= totalXP. It panics on negative XP.
func LevelFor(totalXP int64) int {
	mustNonNegative(totalXP)
	level := 1
	var cumulative int64
	for {
		req := XPRequiredFor(level)
		if req > totalXP-cumulative {
			return level
		}
		cumulative += req
		level++
	}
}

// Progress describes how far a total sits inside its level.
type Progress struct {
	Level          int
	CurrentLevelXP int64
	XPToNextLevel  int64
	Percentage     float64
}

// ProgressFor computes level progress for totalXP.
func ProgressFor(totalXP int64) Progress {
	level := LevelFor(totalXP)
	required := XPRequiredFor(level)
	current := totalXP - TotalXPFor(level)

	pct := float64(current) / float64(required) * 100
	pct = math.Max(0, math.Min(100, pct))

	return Progress{
		Level:          level,
		CurrentLevelXP: current,
		XPToNextLevel:  required - current,
		Percentage:     pct,
	}
}

func mustNonNegative(xp int64) {
	if xp < 0 {
		panic(ErrNegativeXP)
	}
}
