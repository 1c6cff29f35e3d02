// Package offline keeps a durable FIFO queue of mutations made while the
// remote store may be unreachable and replays them when connectivity
// returns.
//
// Delivery is at-least-once: a record leaves the queue only after its
// Applier call succeeded and the shortened queue was written back to
// storage. Appliers receive the record id as an idempotency key.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skulwise/skulwise/internal/connectivity"
	"github.com/skulwise/skulwise/internal/logging"
)

// DefaultStorageKey is the storage slot holding the serialized queue.
const DefaultStorageKey = "skulwise-offline-actions"

// Storage is a durable string key-value store.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Connectivity reports reachability of the remote store.
type Connectivity interface {
	Online() bool
	Subscribe() (<-chan connectivity.Transition, func())
}

// Config tunes a Manager.
type Config struct {
	// Key is the storage slot for the queue. Undecodable entries are moved
	// to Key + ".rejected".
	Key string
	// SettleDelay is waited after an offline to online transition before syncing.
	SettleDelay time.Duration
	// ApplyTimeout bounds each Applier call. Zero disables the watchdog.
	ApplyTimeout time.Duration
	// RetryInterval schedules periodic sync attempts while records are
	// pending. Zero disables it.
	RetryInterval time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Key:           DefaultStorageKey,
		SettleDelay:   time.Second,
		ApplyTimeout:  30 * time.Second,
		RetryInterval: time.Minute,
	}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logging.NewComponentLogger(logger, "offline") }
}

// WithNow replaces the wall clock used for record timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDFunc replaces the record id generator.
func WithIDFunc(fn func() (string, error)) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithErrorKind labels sync failures in the log with classify(err).
func WithErrorKind(classify func(error) string) Option {
	return func(m *Manager) { m.errorKind = classify }
}

// SyncResult summarizes one Sync call.
type SyncResult struct {
	Attempted int
	Applied   int
	Failed    int
	Remaining int
	// Skipped is set when another pass was already running.
	Skipped bool
}

// Manager owns the queue and its storage slot.
type Manager struct {
	cfg     Config
	storage Storage
	applier Applier
	conn    Connectivity
	logger  *slog.Logger
	now     func() time.Time
	newID   func() (string, error)

	errorKind func(error) string

	mu     sync.Mutex
	queue  []Record
	loaded bool
	closed bool

	syncing atomic.Bool
	bg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager builds a Manager. Load must be called before Enqueue.
func NewManager(cfg Config, storage Storage, applier Applier, conn Connectivity, opts ...Option) *Manager {
	if cfg.Key == "" {
		cfg.Key = DefaultStorageKey
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:     cfg,
		storage: storage,
		applier: applier,
		conn:    conn,
		logger:  logging.NewComponentLogger(nil, "offline"),
		now:     time.Now,
		newID:   newRecordID,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Load reads the persisted queue. Entries that no longer decode are moved to
// the rejected slot so they neither block the queue nor get lost.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.storage.Get(ctx, m.cfg.Key)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	var records []Record
	if ok && raw != "" {
		var rejected []json.RawMessage
		records, rejected, err = decodeQueue(raw)
		if err != nil {
			m.logger.Error("persisted queue is unreadable, quarantining", logging.Error(err))
			rejected = []json.RawMessage{json.RawMessage(mustQuote(raw))}
			records = nil
		}
		if len(rejected) > 0 {
			if err := m.quarantine(ctx, rejected); err != nil {
				return fmt.Errorf("load queue: %w", err)
			}
			if err := m.persist(ctx, records); err != nil {
				return &PersistError{Op: "load", Err: err}
			}
		}
	}
	m.queue = records
	m.loaded = true
	m.logger.Info("offline queue loaded", slog.Int("pending", len(records)))
	return nil
}

func mustQuote(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

// RejectedKey returns the storage slot holding entries quarantined from key.
func RejectedKey(key string) string { return key + ".rejected" }

func (m *Manager) quarantine(ctx context.Context, entries []json.RawMessage) error {
	key := RejectedKey(m.cfg.Key)
	var existing []json.RawMessage
	raw, ok, err := m.storage.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read rejected entries: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &existing); err != nil {
			existing = []json.RawMessage{json.RawMessage(mustQuote(raw))}
		}
	}
	b, err := json.Marshal(append(existing, entries...))
	if err != nil {
		return err
	}
	if err := m.storage.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write rejected entries: %w", err)
	}
	m.logger.Warn("quarantined undecodable queue entries", slog.Int("count", len(entries)), slog.String("key", key))
	return nil
}

// persist writes records to storage. Callers hold m.mu.
func (m *Manager) persist(ctx context.Context, records []Record) error {
	raw, err := encodeQueue(records)
	if err != nil {
		return err
	}
	return m.storage.Set(ctx, m.cfg.Key, raw)
}

// Enqueue validates action, appends it and writes the whole queue to storage
// before returning. If the write fails nothing is appended. When online a
// sync is started in the background.
func (m *Manager) Enqueue(ctx context.Context, action Action) (Record, error) {
	recs, err := m.EnqueueAll(ctx, action)
	if err != nil {
		return Record{}, err
	}
	return recs[0], nil
}

// EnqueueAll appends actions in order with a single storage write. Either
// every action is queued or none is.
func (m *Manager) EnqueueAll(ctx context.Context, actions ...Action) ([]Record, error) {
	if len(actions) == 0 {
		return nil, nil
	}
	for _, action := range actions {
		if action == nil {
			return nil, fmt.Errorf("%w: nil action", ErrInvalidAction)
		}
		if err := action.Validate(); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	if !m.loaded {
		m.mu.Unlock()
		return nil, ErrQueueNotLoaded
	}
	createdAt := m.now().UTC().Truncate(time.Millisecond)
	recs := make([]Record, 0, len(actions))
	for _, action := range actions {
		id, err := m.newID()
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("generate record id: %w", err)
		}
		recs = append(recs, Record{ID: id, Action: action, CreatedAt: createdAt})
	}
	next := append(slices.Clip(m.queue), recs...)
	if err := m.persist(ctx, next); err != nil {
		m.mu.Unlock()
		m.logger.Error("enqueue not persisted",
			slog.String(logging.FieldActionType, string(actions[0].Kind())),
			slog.Int("actions", len(actions)),
			logging.Error(err))
		return nil, &PersistError{Op: "enqueue", Err: err}
	}
	m.queue = next
	m.mu.Unlock()

	for _, rec := range recs {
		m.logger.Debug("action enqueued",
			slog.String(logging.FieldActionID, rec.ID),
			slog.String(logging.FieldActionType, string(rec.Action.Kind())))
	}

	if m.conn.Online() {
		m.triggerSync()
	}
	return recs, nil
}

// Pending returns a copy of the queue in sync order.
func (m *Manager) Pending() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.queue)
}

// Len returns the number of pending records.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Online reports the connectivity status seen by the manager.
func (m *Manager) Online() bool { return m.conn.Online() }

// Sync runs one pass over a snapshot of the queue. It is a no-op when
// offline or empty and is skipped when another pass is running. Records
// enqueued during the pass stay queued for the next one.
func (m *Manager) Sync(ctx context.Context) SyncResult {
	if !m.syncing.CompareAndSwap(false, true) {
		return SyncResult{Skipped: true, Remaining: m.Len()}
	}
	defer m.syncing.Store(false)

	m.mu.Lock()
	snapshot := slices.Clone(m.queue)
	m.mu.Unlock()

	res := SyncResult{Remaining: len(snapshot)}
	if len(snapshot) == 0 || !m.conn.Online() {
		return res
	}

	applied := make(map[string]struct{}, len(snapshot))
	for _, rec := range snapshot {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++
		if err := m.apply(ctx, rec); err != nil {
			res.Failed++
			attrs := []any{
				slog.String(logging.FieldActionID, rec.ID),
				slog.String(logging.FieldActionType, string(rec.Action.Kind())),
				logging.Error(err),
			}
			if m.errorKind != nil {
				attrs = append(attrs, slog.String("error_kind", m.errorKind(err)))
			}
			m.logger.Warn("sync failed, record stays queued", attrs...)
			continue
		}
		applied[rec.ID] = struct{}{}
		res.Applied++
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(applied) > 0 {
		remaining := make([]Record, 0, len(m.queue))
		for _, rec := range m.queue {
			if _, ok := applied[rec.ID]; !ok {
				remaining = append(remaining, rec)
			}
		}
		// Applied records stay in memory when the write fails; they will be
		// delivered again and the applier's idempotency absorbs the repeat.
		if err := m.persist(context.WithoutCancel(ctx), remaining); err != nil {
			m.logger.Error("sync result not persisted", logging.Error(err))
		} else {
			m.queue = remaining
		}
	}
	res.Remaining = len(m.queue)

	if res.Attempted > 0 {
		m.logger.Info("sync pass finished",
			slog.Int("applied", res.Applied),
			slog.Int("failed", res.Failed),
			slog.Int("remaining", res.Remaining))
	}
	return res
}

// apply runs the applier under the watchdog. A call that outlives
// ApplyTimeout is reported as failed and left running in the background.
func (m *Manager) apply(ctx context.Context, rec Record) error {
	if m.cfg.ApplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ApplyTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("applier panic: %v", r)
			}
		}()
		done <- rec.Action.applyTo(ctx, rec.ID, m.applier)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return &ApplyError{RecordID: rec.ID, Kind: rec.Action.Kind(), Err: err}
	}
	return nil
}

func (m *Manager) triggerSync() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.bg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.bg.Done()
		m.Sync(m.ctx)
	}()
}

// Run reacts to connectivity transitions until ctx is cancelled. It starts
// with one sync pass when online, syncs SettleDelay after every reconnect
// and, if configured, retries every RetryInterval while records remain.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if !loaded {
		return ErrQueueNotLoaded
	}

	events, unsubscribe := m.conn.Subscribe()
	defer unsubscribe()

	if m.conn.Online() {
		m.triggerSync()
	}

	var retry <-chan time.Time
	if m.cfg.RetryInterval > 0 {
		ticker := time.NewTicker(m.cfg.RetryInterval)
		defer ticker.Stop()
		retry = ticker.C
	}

	settle := time.NewTimer(m.cfg.SettleDelay)
	settle.Stop()
	defer settle.Stop()
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case tr, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if tr.Online {
				m.logger.Info("connectivity restored", slog.Duration("settle_delay", m.cfg.SettleDelay))
				settle.Reset(m.cfg.SettleDelay)
				settleC = settle.C
			} else {
				m.logger.Info("connectivity lost")
				settle.Stop()
				settleC = nil
			}
		case <-settleC:
			settleC = nil
			if m.conn.Online() {
				m.triggerSync()
			}
		case <-retry:
			if m.conn.Online() && m.Len() > 0 {
				m.triggerSync()
			}
		}
	}
}

// Wait blocks until background sync passes have finished.
func (m *Manager) Wait() { m.bg.Wait() }

// Close cancels background syncs and waits for them. Appliers still running
// past their watchdog are not waited for.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.bg.Wait()
	return nil
}
