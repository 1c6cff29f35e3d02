package offline

import (
	"context"
	"fmt"
	"time"
)

// Kind tags an Action variant on the wire.
type Kind string

const (
	KindStudySession      Kind = "STUDY_SESSION"
	KindFlashcardProgress Kind = "FLASHCARD_PROGRESS"
	KindXPUpdate          Kind = "XP_UPDATE"
)

// Action is a queued mutation. The set of variants is closed: only
// StudySession, FlashcardReview and XPUpdate implement it.
type Action interface {
	Kind() Kind
	Validate() error
	applyTo(ctx context.Context, id string, a Applier) error
}

// Applier performs one queued mutation against the remote store. id is the
// record id and should be used as an idempotency key. Implementations must
// honour ctx; a call still running when its deadline passes is abandoned.
type Applier interface {
	ApplyStudySession(ctx context.Context, id string, s StudySession) error
	ApplyFlashcardReview(ctx context.Context, id string, r FlashcardReview) error
	ApplyXPUpdate(ctx context.Context, id string, u XPUpdate) error
}

// StudySession records a completed study session.
type StudySession struct {
	UserID          string    `json:"userId"`
	Subject         string    `json:"subject"`
	Topic           string    `json:"topic"`
	DurationMinutes int       `json:"duration"`
	XPEarned        int64     `json:"xpEarned"`
	SessionType     string    `json:"sessionType"`
	CompletedAt     time.Time `json:"completedAt"`
}

func (StudySession) Kind() Kind { return KindStudySession }

func (s StudySession) Validate() error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("%w: study session: user id is required", ErrInvalidAction)
	case s.Subject == "":
		return fmt.Errorf("%w: study session: subject is required", ErrInvalidAction)
	case s.DurationMinutes < 0:
		return fmt.Errorf("%w: study session: negative duration %d", ErrInvalidAction, s.DurationMinutes)
	case s.XPEarned < 0:
		return fmt.Errorf("%w: study session: negative xp %d", ErrInvalidAction, s.XPEarned)
	case s.CompletedAt.IsZero():
		return fmt.Errorf("%w: study session: completion time is required", ErrInvalidAction)
	}
	return nil
}

func (s StudySession) applyTo(ctx context.Context, id string, a Applier) error {
	return a.ApplyStudySession(ctx, id, s)
}

// ReviewOutcome is the learner's self-assessment of a flashcard.
type ReviewOutcome string

const (
	OutcomeGotIt  ReviewOutcome = "got-it"
	OutcomeReview ReviewOutcome = "review"
)

// Correct reports whether the outcome counts towards times_correct.
func (o ReviewOutcome) Correct() bool { return o == OutcomeGotIt }

// FlashcardReview increments the review counters of an existing card.
type FlashcardReview struct {
	UserID     string        `json:"userId"`
	CardID     string        `json:"cardId"`
	Outcome    ReviewOutcome `json:"actionType"`
	ReviewedAt time.Time     `json:"timestamp"`
}

func (FlashcardReview) Kind() Kind { return KindFlashcardProgress }

func (r FlashcardReview) Validate() error {
	switch {
	case r.UserID == "":
		return fmt.Errorf("%w: flashcard review: user id is required", ErrInvalidAction)
	case r.CardID == "":
		return fmt.Errorf("%w: flashcard review: card id is required", ErrInvalidAction)
	case r.Outcome != OutcomeGotIt && r.Outcome != OutcomeReview:
		return fmt.Errorf("%w: flashcard review: unknown outcome %q", ErrInvalidAction, r.Outcome)
	case r.ReviewedAt.IsZero():
		return fmt.Errorf("%w: flashcard review: review time is required", ErrInvalidAction)
	}
	return nil
}

func (r FlashcardReview) applyTo(ctx context.Context, id string, a Applier) error {
	return a.ApplyFlashcardReview(ctx, id, r)
}

// XPUpdate overwrites the learner's remote XP total.
type XPUpdate struct {
	UserID  string `json:"userId"`
	TotalXP int64  `json:"newXp"`
}

func (XPUpdate) Kind() Kind { return KindXPUpdate }

func (u XPUpdate) Validate() error {
	switch {
	case u.UserID == "":
		return fmt.Errorf("%w: xp update: user id is required", ErrInvalidAction)
	case u.TotalXP < 0:
		return fmt.Errorf("%w: xp update: negative total %d", ErrInvalidAction, u.TotalXP)
	}
	return nil
}

func (u XPUpdate) applyTo(ctx context.Context, id string, a Applier) error {
	return a.ApplyXPUpdate(ctx, id, u)
}
