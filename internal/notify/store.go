// Package notify holds short-lived user-facing messages.
package notify

import (
	"sync"
	"time"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 3000 * time.Millisecond

// Kind is the visual category of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Entry is one notification.
type Entry struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	Kind      Kind      `json:"kind"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock is the time source of a Store.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Store is a list of notifications that remove themselves after their duration.
type Store struct {
	mu      sync.Mutex
	clock   Clock
	nextID  uint64
	entries []Entry
	timers  map[uint64]Timer
}

// NewStore creates an empty store. A nil clock means SystemClock.
func NewStore(clock Clock) *Store {
	if clock == nil {
		clock = SystemClock
	}
	return &Store{
		clock:  clock,
		timers: make(map[uint64]Timer),
	}
}

// Notify appends a message and schedules its removal. Non-positive durations use
// DefaultDuration. The returned ID is never reused by this store.
func (s *Store) Notify(message string, kind Kind, d time.Duration) uint64 {
	if d <= 0 {
		d = DefaultDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, Entry{
		ID:        id,
		Message:   message,
		Kind:      kind,
		ExpiresAt: s.clock.Now().Add(d),
	})
	s.timers[id] = s.clock.AfterFunc(d, func() { s.Dismiss(id) })
	return id
}

func (s *Store) Success(message string) uint64 { return s.Notify(message, KindSuccess, DefaultDuration) }

func (s *Store) Error(message string) uint64 { return s.Notify(message, KindError, DefaultDuration) }

func (s *Store) Info(message string) uint64 { return s.Notify(message, KindInfo, DefaultDuration) }

// Dismiss removes an entry early.
func (s *Store) Dismiss(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return
		}
	}
}

// Active returns the entries that have not expired, oldest first.
func (s *Store) Active() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if now.Before(e.ExpiresAt) {
			out = append(out, e)
		}
	}
	return out
}

// Export returns the active entries and empties the store, for carrying them across
// a redirect.
func (s *Store) Export() []Entry {
	active := s.Active()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.entries = nil
	return active
}

// Restore re-adds exported entries with their remaining lifetime. Expired entries are
// dropped. Restored entries receive fresh IDs.
func (s *Store) Restore(entries []Entry) {
	now := s.clock.Now()
	for _, e := range entries {
		remaining := e.ExpiresAt.Sub(now)
		if remaining <= 0 {
			continue
		}
		s.Notify(e.Message, e.Kind, remaining)
	}
}
