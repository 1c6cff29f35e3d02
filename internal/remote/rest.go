// Package remote applies queued offline actions to the authoritative store.
//
// REST talks to a PostgREST endpoint (the hosted backend); SQL applies the
// same mutations to a SQLite database and keeps a ledger of applied record
// ids so a replayed record is never applied twice.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/skulwise/skulwise/internal/logging"
	"github.com/skulwise/skulwise/internal/offline"
)

const maxErrorBody = 512

// RESTConfig configures the REST applier.
type RESTConfig struct {
	BaseURL string
	APIKey  string
	// AccessToken is the learner's session token. The API key is used as
	// bearer when it is empty.
	AccessToken string
	// RatePerSecond caps outgoing requests. Zero means unlimited.
	RatePerSecond float64
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// REST applies actions through a PostgREST API.
type REST struct {
	base    *url.URL
	apiKey  string
	token   string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ offline.Applier = (*REST)(nil)

// NewREST validates cfg and returns a REST applier.
func NewREST(cfg RESTConfig, logger *slog.Logger) (*REST, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
		burst = max(1, int(cfg.RatePerSecond))
	}
	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}
	return &REST{
		base:    base,
		apiKey:  cfg.APIKey,
		token:   token,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logging.NewComponentLogger(logger, "remote.rest"),
	}, nil
}

type studySessionRow struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Subject         string `json:"subject"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"duration_minutes"`
	XPEarned        int64  `json:"xp_earned"`
	SessionType     string `json:"session_type"`
	CompletedAt     string `json:"completed_at"`
}

// ApplyStudySession inserts the session keyed by the record id; a replay
// is ignored by the server as a duplicate.
func (r *REST) ApplyStudySession(ctx context.Context, id string, s offline.StudySession) error {
	row := studySessionRow{
		ID:              id,
		UserID:          s.UserID,
		Subject:         s.Subject,
		Topic:           s.Topic,
		DurationMinutes: s.DurationMinutes,
		XPEarned:        s.XPEarned,
		SessionType:     s.SessionType,
		CompletedAt:     s.CompletedAt.UTC().Format(time.RFC3339Nano),
	}
	q := url.Values{"on_conflict": {"id"}}
	_, err := r.do(ctx, "insert study session", http.MethodPost, "/rest/v1/study_sessions", q, id,
		"resolution=ignore-duplicates,return=minimal", row)
	return err
}

// ApplyFlashcardReview calls an RPC that increments the card counters once
// per action id.
func (r *REST) ApplyFlashcardReview(ctx context.Context, id string, rv offline.FlashcardReview) error {
	body := map[string]any{
		"p_action_id":   id,
		"p_card_id":     rv.CardID,
		"p_user_id":     rv.UserID,
		"p_correct":     rv.Outcome.Correct(),
		"p_reviewed_at": rv.ReviewedAt.UTC().Format(time.RFC3339Nano),
	}
	_, err := r.do(ctx, "record flashcard review", http.MethodPost, "/rest/v1/rpc/record_flashcard_review", nil, id,
		"return=minimal", body)
	return err
}

// ApplyXPUpdate overwrites xp_points on the learner's profile.
func (r *REST) ApplyXPUpdate(ctx context.Context, id string, u offline.XPUpdate) error {
	q := url.Values{"id": {"eq." + u.UserID}}
	body := map[string]any{"xp_points": u.TotalXP}
	resp, err := r.do(ctx, "update xp", http.MethodPatch, "/rest/v1/user_profiles", q, id,
		"return=representation", body)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(resp, &rows); err != nil {
		return fmt.Errorf("update xp: decode response: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("update xp for %s: %w", u.UserID, ErrNotFound)
	}
	return nil
}

func (r *REST) do(ctx context.Context, op, method, path string, query url.Values, idempotencyKey, prefer string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", op, err)
	}

	u := r.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	r.logger.Debug("remote request",
		slog.String("op", op),
		slog.String(logging.FieldActionID, idempotencyKey),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg}
	}
	return data, nil
}
