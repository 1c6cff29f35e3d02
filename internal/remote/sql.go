package remote

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/skulwise/skulwise/internal/logging"
	"github.com/skulwise/skulwise/internal/offline"
	"github.com/skulwise/skulwise/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// SQL applies actions to a SQLite database. Every apply runs in one
// transaction together with an insert into applied_actions, so a record id
// is applied at most once no matter how often it is delivered.
type SQL struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

var _ offline.Applier = (*SQL)(nil)

// NewSQL creates the remote tables in db if needed.
func NewSQL(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SQL, error) {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create remote schema: %w", err)
	}
	return &SQL{
		db:     db,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "remote.sql"),
	}, nil
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// ApplyStudySession inserts the session row keyed by the record id.
func (s *SQL) ApplyStudySession(ctx context.Context, id string, ss offline.StudySession) error {
	return s.once(ctx, id, offline.KindStudySession, func(tx *sql.Tx) error {
		query, args := builder().
			Insert("study_sessions").
			Columns("id", "user_id", "subject", "topic", "duration_minutes", "xp_earned", "session_type", "completed_at").
			Values(id, ss.UserID, ss.Subject, ss.Topic, ss.DurationMinutes, ss.XPEarned, ss.SessionType, ss.CompletedAt.UnixMilli()).
			OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
			Query()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// ApplyFlashcardReview increments the card's counters, creating the card
// row on its first review.
func (s *SQL) ApplyFlashcardReview(ctx context.Context, id string, r offline.FlashcardReview) error {
	correct := 0
	if r.Outcome.Correct() {
		correct = 1
	}
	reviewed := r.ReviewedAt.UnixMilli()
	return s.once(ctx, id, offline.KindFlashcardProgress, func(tx *sql.Tx) error {
		query, args := builder().
			Insert("flashcards").
			Columns("id", "user_id", "times_reviewed", "times_correct", "last_reviewed").
			Values(r.CardID, r.UserID, 1, correct, reviewed).
			OnConflict(
				entsql.ConflictColumns("id", "user_id"),
				entsql.ResolveWith(func(u *entsql.UpdateSet) {
					u.Add("times_reviewed", 1)
					u.Add("times_correct", correct)
					u.Set("last_reviewed", reviewed)
				}),
			).
			Query()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// ApplyXPUpdate sets the learner's XP total, creating the profile if needed.
func (s *SQL) ApplyXPUpdate(ctx context.Context, id string, u offline.XPUpdate) error {
	return s.once(ctx, id, offline.KindXPUpdate, func(tx *sql.Tx) error {
		query, args := builder().
			Insert("user_profiles").
			Columns("id", "xp_points", "updated_at").
			Values(u.UserID, u.TotalXP, s.now().UnixMilli()).
			OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
			Query()
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// once runs apply and records id in the ledger inside one transaction.
// An id already in the ledger is acknowledged without running apply.
func (s *SQL) once(ctx context.Context, id string, kind offline.Kind, apply func(tx *sql.Tx) error) error {
	err := store.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback()

		seen, err := applied(ctx, tx, id)
		if err != nil {
			return err
		}
		if seen {
			s.logger.Debug("duplicate delivery ignored",
				slog.String(logging.FieldActionID, id),
				slog.String(logging.FieldActionType, string(kind)))
			return nil
		}
		if err := apply(tx); err != nil {
			return err
		}
		query, args := builder().
			Insert("applied_actions").
			Columns("id", "kind", "applied_at").
			Values(id, string(kind), s.now().UnixMilli()).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record ledger: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("apply %s %s: %w", kind, id, err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func applied(ctx context.Context, q queryRower, id string) (bool, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(builder().Table("applied_actions")).
		Where(entsql.EQ("id", id)).
		Query()
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	return n > 0, nil
}

// Applied reports whether the record id has been applied.
func (s *SQL) Applied(ctx context.Context, id string) (bool, error) {
	return applied(ctx, s.db, id)
}

// Profile is a learner row.
type Profile struct {
	UserID    string
	XP        int64
	UpdatedAt time.Time
}

// Profile returns the learner's profile or ErrNotFound.
func (s *SQL) Profile(ctx context.Context, userID string) (Profile, error) {
	query, args := builder().
		Select("xp_points", "updated_at").
		From(builder().Table("user_profiles")).
		Where(entsql.EQ("id", userID)).
		Query()
	p := Profile{UserID: userID}
	var updated int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.XP, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(updated)
	return p, nil
}

// FlashcardStats are the review counters of one card.
type FlashcardStats struct {
	CardID        string
	TimesReviewed int
	TimesCorrect  int
	LastReviewed  time.Time
}

// Flashcard returns the card's counters or ErrNotFound.
func (s *SQL) Flashcard(ctx context.Context, cardID, userID string) (FlashcardStats, error) {
	query, args := builder().
		Select("times_reviewed", "times_correct", "last_reviewed").
		From(builder().Table("flashcards")).
		Where(entsql.And(entsql.EQ("id", cardID), entsql.EQ("user_id", userID))).
		Query()
	st := FlashcardStats{CardID: cardID}
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.TimesReviewed, &st.TimesCorrect, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return FlashcardStats{}, ErrNotFound
	}
	if err != nil {
		return FlashcardStats{}, fmt.Errorf("query flashcard: %w", err)
	}
	if last.Valid {
		st.LastReviewed = time.UnixMilli(last.Int64)
	}
	return st, nil
}

// StudySessionCount returns the number of sessions stored for the learner.
func (s *SQL) StudySessionCount(ctx context.Context, userID string) (int, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(builder().Table("study_sessions")).
		Where(entsql.EQ("user_id", userID)).
		Query()
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count study sessions: %w", err)
	}
	return n, nil
}
