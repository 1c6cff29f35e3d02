package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skulwise/skulwise/internal/connectivity"
)

var errStorageFull = errors.New("storage full")

type memStorage struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	sets   int
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (s *memStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.data[key] = value
	return nil
}

func (s *memStorage) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

func (s *memStorage) raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

type applyCall struct {
	ID   string
	Kind Kind
	At   time.Time
}

// fakeApplier records calls. fail decides per record id whether a call
// fails; hook runs before the call returns and may block.
type fakeApplier struct {
	mu    sync.Mutex
	calls []applyCall
	fail  func(id string, attempt int) error
	hook  func(ctx context.Context, id string)
}

func (a *fakeApplier) record(ctx context.Context, id string, kind Kind) error {
	a.mu.Lock()
	attempt := 0
	for _, c := range a.calls {
		if c.ID == id {
			attempt++
		}
	}
	a.calls = append(a.calls, applyCall{ID: id, Kind: kind, At: time.Now()})
	fail, hook := a.fail, a.hook
	a.mu.Unlock()

	if hook != nil {
		hook(ctx, id)
	}
	if fail != nil {
		return fail(id, attempt)
	}
	return nil
}

func (a *fakeApplier) ApplyStudySession(ctx context.Context, id string, _ StudySession) error {
	return a.record(ctx, id, KindStudySession)
}

func (a *fakeApplier) ApplyFlashcardReview(ctx context.Context, id string, _ FlashcardReview) error {
	return a.record(ctx, id, KindFlashcardProgress)
}

func (a *fakeApplier) ApplyXPUpdate(ctx context.Context, id string, _ XPUpdate) error {
	return a.record(ctx, id, KindXPUpdate)
}

func (a *fakeApplier) Calls() []applyCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]applyCall(nil), a.calls...)
}

func (a *fakeApplier) callsFor(id string) int {
	n := 0
	for _, c := range a.Calls() {
		if c.ID == id {
			n++
		}
	}
	return n
}

type harness struct {
	storage *memStorage
	applier *fakeApplier
	signal  *connectivity.Signal
	manager *Manager
}

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("rec-%03d", n), nil
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
}

func newHarness(t *testing.T, online bool, cfg Config) *harness {
	t.Helper()
	h := &harness{
		storage: newMemStorage(),
		applier: &fakeApplier{},
		signal:  connectivity.NewSignal(online),
	}
	h.manager = h.reopen(t, cfg)
	return h
}

// reopen simulates a process restart over the same storage.
func (h *harness) reopen(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, h.storage, h.applier, h.signal,
		WithIDFunc(sequentialIDs()),
		WithNow(fixedNow))
	require.NoError(t, m.Load(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func xp(total int64) XPUpdate {
	return XPUpdate{UserID: "user-1", TotalXP: total}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleDelay = 10 * time.Millisecond
	cfg.ApplyTimeout = time.Second
	cfg.RetryInterval = 0
	return cfg
}
