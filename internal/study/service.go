// Package study records learner activity: it advances the local
// progression projection and queues the matching remote writes.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skulwise/skulwise/internal/logging"
	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/progression"
)

var (
	// ErrOtherUser is returned when the stored projection belongs to a
	// different learner.
	ErrOtherUser = errors.New("progression belongs to another user")
	// ErrInvalidInput is returned for malformed operation arguments.
	ErrInvalidInput = errors.New("invalid input")
)

// Queue accepts actions for delivery to the remote store.
type Queue interface {
	EnqueueAll(ctx context.Context, actions ...offline.Action) ([]offline.Record, error)
}

// Result reports the effect of one operation.
type Result struct {
	Activity progression.Activity
	// XPGained includes the streak bonus and achievement rewards.
	XPGained      int64
	StreakBonus   int64
	AchievementXP int64
	TotalXP       int64
	Level         int
	LeveledUp     bool
	Streak        int
	Unlocked      []progression.AchievementDefinition
	// Skipped is set when the operation had no effect, such as a second
	// daily login on the same day.
	Skipped bool
	Records []offline.Record
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c progression.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.NewComponentLogger(logger, "study") }
}

// WithSnapshotKey overrides SnapshotKey.
func WithSnapshotKey(key string) Option {
	return func(s *Service) { s.key = key }
}

// Service records activity for one learner. Operations are serialized so
// the projection is never read and written concurrently.
type Service struct {
	mu      sync.Mutex
	storage offline.Storage
	queue   Queue
	userID  string
	key     string
	clock   progression.Clock
	defs    []progression.AchievementDefinition
	logger  *slog.Logger
}

// NewService creates a Service for userID.
func NewService(userID string, storage offline.Storage, queue Queue, opts ...Option) *Service {
	s := &Service{
		storage: storage,
		queue:   queue,
		userID:  userID,
		key:     SnapshotKey,
		clock:   progression.SystemClock,
		defs:    progression.Achievements(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current projection.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadSnapshot(ctx, s.storage, s.key, s.userID)
}

// UploadNotes records a processed set of notes.
func (s *Service) UploadNotes(ctx context.Context) (Result, error) {
	return s.record(ctx, progression.ActivityUploadNotes, nil)
}

// ReviewFlashcard records a flashcard review and queues the card's
// counter update.
func (s *Service) ReviewFlashcard(ctx context.Context, cardID string, outcome offline.ReviewOutcome) (Result, error) {
	if strings.TrimSpace(cardID) == "" {
		return Result{}, fmt.Errorf("%w: card id is required", ErrInvalidInput)
	}
	if outcome != offline.OutcomeGotIt && outcome != offline.OutcomeReview {
		return Result{}, fmt.Errorf("%w: unknown outcome %q", ErrInvalidInput, outcome)
	}
	return s.record(ctx, progression.ActivityCompleteFlashcard, func(_ Result, at time.Time) offline.Action {
		return offline.FlashcardReview{
			UserID:     s.userID,
			CardID:     cardID,
			Outcome:    outcome,
			ReviewedAt: at,
		}
	})
}

// SessionInput describes a finished study session.
type SessionInput struct {
	Subject         string
	Topic           string
	DurationMinutes int
	SessionType     string
}

// CompleteStudySession records a finished session. The queued session
// carries the XP earned by the activity itself, streak bonus included.
func (s *Service) CompleteStudySession(ctx context.Context, in SessionInput) (Result, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return Result{}, fmt.Errorf("%w: subject is required", ErrInvalidInput)
	}
	if in.DurationMinutes < 0 {
		return Result{}, fmt.Errorf("%w: negative duration", ErrInvalidInput)
	}
	if in.SessionType == "" {
		in.SessionType = "study"
	}
	return s.record(ctx, progression.ActivityStudySession, func(r Result, at time.Time) offline.Action {
		return offline.StudySession{
			UserID:          s.userID,
			Subject:         in.Subject,
			Topic:           in.Topic,
			DurationMinutes: in.DurationMinutes,
			XPEarned:        r.XPGained - r.AchievementXP,
			SessionType:     in.SessionType,
			CompletedAt:     at,
		}
	})
}

// DailyLogin awards the login bonus at most once per calendar day.
func (s *Service) DailyLogin(ctx context.Context) (Result, error) {
	return s.record(ctx, progression.ActivityDailyLogin, nil)
}

// RecordAudioGenerated counts a generated audio summary. It earns no XP
// of its own but can unlock achievements.
func (s *Service) RecordAudioGenerated(ctx context.Context) (Result, error) {
	return s.record(ctx, "", nil)
}

// record runs one activity through the progression rules, saves the
// projection and then queues domain (when non-nil) and the new XP total in
// one write. If queueing fails the previous projection is restored. An
// empty activity only bumps the audio counter.
func (s *Service) record(ctx context.Context, activity progression.Activity, domain func(Result, time.Time) offline.Action) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := loadSnapshot(ctx, s.storage, s.key, s.userID)
	if err != nil {
		return Result{}, err
	}
	now := s.clock.Now()
	today := progression.DayOf(now)
	before := snap.State
	prior := snap
	prior.Achievements = slices.Clone(snap.Achievements)

	res := Result{Activity: activity}
	if activity == progression.ActivityDailyLogin && snap.LastLogin == today {
		res.Skipped = true
		res.TotalXP = snap.State.TotalXP
		res.Level = snap.Level()
		res.Streak = snap.State.Streak
		return res, nil
	}

	if activity == "" {
		snap.Counters.AudioGenerated++
	} else {
		out, err := progression.Record(snap.State, snap.Counters, activity, today)
		if err != nil {
			return Result{}, err
		}
		snap.State, snap.Counters = out.State, out.Counters
		res.XPGained = out.Award.XPGained
		res.StreakBonus = out.Streak.Bonus
		if activity == progression.ActivityDailyLogin {
			snap.LastLogin = today
		}
	}

	// Rewards can push the total over another threshold, so evaluate until
	// nothing new unlocks.
	for {
		statuses, unlocked := progression.Evaluate(snap.State, snap.Counters, s.defs, snap.Achievements, now)
		snap.Achievements = statuses
		if len(unlocked) == 0 {
			break
		}
		var reward int64
		for _, def := range unlocked {
			reward += def.XPReward
		}
		snap.State.TotalXP = progression.AddAmount(snap.State.TotalXP, reward).NewTotal
		res.AchievementXP += reward
		res.Unlocked = append(res.Unlocked, unlocked...)
	}
	res.XPGained += res.AchievementXP
	res.TotalXP = snap.State.TotalXP
	res.Level = snap.Level()
	res.LeveledUp = res.Level > before.Level()
	res.Streak = snap.State.Streak

	if err := saveSnapshot(ctx, s.storage, s.key, snap); err != nil {
		return Result{}, err
	}

	var actions []offline.Action
	if domain != nil {
		actions = append(actions, domain(res, now.UTC()))
	}
	if snap.State.TotalXP != before.TotalXP {
		actions = append(actions, offline.XPUpdate{UserID: s.userID, TotalXP: snap.State.TotalXP})
	}
	if len(actions) > 0 {
		recs, err := s.queue.EnqueueAll(ctx, actions...)
		if err != nil {
			if rerr := saveSnapshot(context.WithoutCancel(ctx), s.storage, s.key, prior); rerr != nil {
				s.logger.Error("projection rollback failed",
					slog.String(logging.FieldUserID, s.userID),
					logging.Error(rerr))
			}
			return Result{}, fmt.Errorf("queue %s: %w", actions[0].Kind(), err)
		}
		res.Records = recs
	}

	attrs := []any{
		slog.String(logging.FieldUserID, s.userID),
		slog.Int64("xp_gained", res.XPGained),
		slog.Int64("total_xp", res.TotalXP),
		slog.Int("level", res.Level),
		slog.Int("streak", res.Streak),
	}
	if activity != "" {
		attrs = append(attrs, slog.String("activity", string(activity)))
	}
	for _, def := range res.Unlocked {
		s.logger.Info("achievement unlocked",
			slog.String(logging.FieldUserID, s.userID),
			slog.String("achievement", def.ID))
	}
	s.logger.Debug("activity recorded", attrs...)
	return res, nil
}

// NewCardID returns a fresh flashcard id for generated cards.
func NewCardID() string {
	return uuid.NewString()
}
