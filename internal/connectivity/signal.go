// Package connectivity tracks whether the remote store is reachable and
// fans out online/offline transitions to subscribers.
package connectivity

import (
	"sync"
	"time"
)

// subscriberBuffer bounds each subscriber channel. A full channel drops the
// event; receivers can always read the latest state through Online.
const subscriberBuffer = 16

// Transition is a change in connectivity status.
type Transition struct {
	Online bool
	At     time.Time
}

// Signal is a concurrency-safe online flag. Only real changes emit a
// Transition.
type Signal struct {
	mu     sync.Mutex
	online bool
	now    func() time.Time
	subs   map[int]chan Transition
	nextID int
}

// NewSignal returns a Signal with the given initial status.
func NewSignal(online bool) *Signal {
	return &Signal{
		online: online,
		now:    time.Now,
		subs:   make(map[int]chan Transition),
	}
}

// Online reports the current status.
func (s *Signal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set updates the status and notifies subscribers when it changed.
// It reports whether a transition happened.
func (s *Signal) Set(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.online == online {
		return false
	}
	s.online = online
	tr := Transition{Online: online, At: s.now()}
	for _, ch := range s.subs {
		select {
		case ch <- tr:
		default:
		}
	}
	return true
}

// Subscribe registers for transitions. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (s *Signal) Subscribe() (<-chan Transition, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Transition, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}
