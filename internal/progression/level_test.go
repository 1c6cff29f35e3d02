package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPRequiredFor(t *testing.T) {
	tests := []struct {
		level int
		want  int64
	}{
		{1, 100},
		{2, 150},
		{3, 225},
		{4, 337},
		{5, 506},
		{6, 759},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, XPRequiredFor(tt.level), "level %d", tt.level)
	}
}

func TestTotalXPFor(t *testing.T) {
	assert.Equal(t, int64(0), TotalXPFor(1))
	assert.Equal(t, int64(100), TotalXPFor(2))
	assert.Equal(t, int64(250), TotalXPFor(3))
	assert.Equal(t, int64(475), TotalXPFor(4))
	assert.Equal(t, int64(812), TotalXPFor(5))
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 1},
		{50, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{474, 3},
		{475, 4},
		{812, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.xp), "xp %d", tt.xp)
	}
}

func TestLevelForMonotonic(t *testing.T) {
	prev := LevelFor(0)
	require.Equal(t, 1, prev)
	for xp := int64(1); xp <= 50_000; xp++ {
		got := LevelFor(xp)
		if got < prev {
			t.Fatalf("LevelFor(%d) = %d < LevelFor(%d) = %d", xp, got, xp-1, prev)
		}
		prev = got
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for xp := int64(0); xp <= 50_000; xp += 7 {
		level := LevelFor(xp)
		lo := TotalXPFor(level)
		hi := TotalXPFor(level + 1)
		if lo > xp || xp >= hi {
			t.Fatalf("xp %d: level %d spans [%d, %d)", xp, level, lo, hi)
		}
	}
}

func TestLevelForLargeTotals(t *testing.T) {
	level := LevelFor(1 << 60)
	assert.Greater(t, level, 80)
	assert.LessOrEqual(t, TotalXPFor(level), int64(1<<60))
}

func TestLevelForNegativePanics(t *testing.T) {
	assert.PanicsWithValue(t, ErrNegativeXP, func() { LevelFor(-1) })
}

func TestProgressFor(t *testing.T) {
	p := ProgressFor(175)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(75), p.CurrentLevelXP)
	assert.Equal(t, int64(75), p.XPToNextLevel)
	assert.InDelta(t, 50.0, p.Percentage, 0.0001)

	p = ProgressFor(0)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, int64(100), p.XPToNextLevel)
	assert.Zero(t, p.Percentage)
}

func TestProgressPercentageBounds(t *testing.T) {
	for xp := int64(0); xp < 5_000; xp += 13 {
		p := ProgressFor(xp)
		if p.Percentage < 0 || p.Percentage >= 100 {
			t.Fatalf("xp %d: percentage %v out of [0, 100)", xp, p.Percentage)
		}
		if p.CurrentLevelXP+p.XPToNextLevel != XPRequiredFor(p.Level) {
			t.Fatalf("xp %d: current %d + remaining %d != required %d",
				xp, p.CurrentLevelXP, p.XPToNextLevel, XPRequiredFor(p.Level))
		}
	}
}
