package study

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/progression"
)

// SnapshotKey is the storage slot of the local projection.
const SnapshotKey = "skulwise-progression"

// Snapshot is the optimistic local view of a learner's progression. It is
// updated before the matching actions reach the remote store.
type Snapshot struct {
	UserID       string                          `json:"user_id"`
	State        progression.State               `json:"state"`
	Counters     progression.Counters            `json:"counters"`
	Achievements []progression.AchievementStatus `json:"achievements"`
	LastLogin    progression.Day                 `json:"last_login"`
}

// Level returns the level derived from the XP total.
func (s Snapshot) Level() int { return s.State.Level() }

// Unlocked returns the ids of unlocked achievements.
func (s Snapshot) Unlocked() []string {
	var ids []string
	for _, st := range s.Achievements {
		if st.Unlocked {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

func loadSnapshot(ctx context.Context, storage offline.Storage, key, userID string) (Snapshot, error) {
	raw, ok, err := storage.Get(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read progression: %w", err)
	}
	if !ok || raw == "" {
		return Snapshot{UserID: userID}, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode progression: %w", err)
	}
	if snap.UserID != "" && snap.UserID != userID {
		return Snapshot{}, fmt.Errorf("%w: stored for %q", ErrOtherUser, snap.UserID)
	}
	snap.UserID = userID
	return snap, nil
}

func saveSnapshot(ctx context.Context, storage offline.Storage, key string, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode progression: %w", err)
	}
	if err := storage.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write progression: %w", err)
	}
	return nil
}
