package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalEmitsOnlyChanges(t *testing.T) {
	s := NewSignal(false)
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	assert.False(t, s.Set(false))
	assert.True(t, s.Set(true))
	assert.False(t, s.Set(true))
	assert.True(t, s.Set(false))

	first := <-events
	second := <-events
	assert.True(t, first.Online)
	assert.False(t, second.Online)
	select {
	case tr := <-events:
		t.Fatalf("unexpected transition %+v", tr)
	default:
	}
}

func TestSignalUnsubscribeClosesChannel(t *testing.T) {
	s := NewSignal(true)
	events, unsubscribe := s.Subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := <-events
	assert.False(t, ok)
	assert.True(t, s.Set(false))
}

func TestSignalFullSubscriberDoesNotBlock(t *testing.T) {
	s := NewSignal(false)
	_, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*3; i++ {
		s.Set(i%2 == 0)
	}
}

func TestProberTracksServerHealth(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	signal := NewSignal(false)
	p := NewProber(srv.URL, time.Second, signal, nil)
	ctx := context.Background()

	require.True(t, p.Check(ctx))
	assert.True(t, signal.Online())

	status.Store(http.StatusServiceUnavailable)
	assert.False(t, p.Check(ctx))
	assert.False(t, signal.Online())

	status.Store(http.StatusNotFound)
	assert.True(t, p.Check(ctx))
}

func TestProberUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	signal := NewSignal(true)
	p := NewProber(url, time.Second, signal, nil)
	assert.False(t, p.Check(context.Background()))
	assert.False(t, signal.Online())
}

func TestProberRunStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	signal := NewSignal(false)
	p := NewProber(srv.URL, 10*time.Millisecond, signal, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, signal.Online, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("prober did not stop")
	}
}
