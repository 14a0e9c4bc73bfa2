// Package session holds the browser's authenticated identity. A Store is built for one
// browser request, restored once from durable storage, and observed by the caches that
// depend on who is logged in.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Store.
type State int

const (
	// StateUnknown means durable storage has not been read yet.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the store.
type Snapshot struct {
	State    State
	Identity model.Identity
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// Role returns the identity's role, or RoleNone when not authenticated.
func (s Snapshot) Role() model.Role {
	if s.State != StateAuthenticated {
		return model.RoleNone
	}
	return s.Identity.Role
}

// Persister is the durable storage behind a Store.
type Persister interface {
	// Load returns the stored identity, or nil when nothing is stored.
	Load(ctx context.Context) (*model.Identity, error)
	Save(ctx context.Context, identity model.Identity) error
	Clear(ctx context.Context) error
}

type observer struct {
	id int
	fn func(Snapshot)
}

// Store is the session state machine. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	state     State
	identity  model.Identity
	persister Persister
	observers []observer
	nextID    int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStore creates a store in StateUnknown.
func NewStore(persister Persister, logger zerolog.Logger) *Store {
	return &Store{
		persister: persister,
		now:       time.Now,
		logger:    logger.With().Str("component", "session").Logger(),
	}
}

// Restore performs the single transition out of StateUnknown by reading durable
// storage. Unreadable storage or an expired token restores as anonymous.
func (s *Store) Restore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUnknown {
		s.mu.Unlock()
		return model.ErrSessionRestored
	}

	identity, err := s.persister.Load(ctx)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("failed to read stored session, continuing anonymous")
		s.state = StateAnonymous
	case identity == nil || identity.Token == "":
		s.state = StateAnonymous
	case TokenExpired(identity.Token, s.now()):
		s.logger.Info().Str("user_id", identity.ID).Msg("stored session expired")
		s.state = StateAnonymous
		if err := s.persister.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear expired session")
		}
	default:
		s.state = StateAuthenticated
		s.identity = *identity
	}
	snap := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, snap)
	return nil
}

// Login stores identity and moves the store to StateAuthenticated. The state is left
// unchanged when the identity cannot be persisted.
func (s *Store) Login(ctx context.Context, identity model.Identity) error {
	if identity.Token == "" {
		return model.NewDomainError(model.ErrCodeNotAuthenticated, "Login returned no credential")
	}

	s.mu.Lock()
	if err := s.persister.Save(ctx, identity); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.state = StateAuthenticated
	s.identity = identity
	snap := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	s.logger.Debug().Str("user_id", identity.ID).Str("role", identity.Role.String()).Msg("logged in")
	notifyAll(observers, snap)
	return nil
}

// Logout moves the store to StateAnonymous and clears durable storage. The transition
// happens even when clearing storage fails; that error is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateAnonymous
	s.identity = model.Identity{}
	err := s.persister.Clear(ctx)
	snap := s.snapshotLocked()
	observers := s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, snap)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Snapshot returns the current state and identity.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Token returns the bearer credential, or "" when not authenticated.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return ""
	}
	return s.identity.Token
}

// Loading reports whether the store is still in StateUnknown.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateUnknown
}

// Subscribe registers fn to be called after every transition, in subscription order.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Identity: s.identity}
}

func (s *Store) observersLocked() []func(Snapshot) {
	fns := make([]func(Snapshot), len(s.observers))
	for i, o := range s.observers {
		fns[i] = o.fn
	}
	return fns
}

func notifyAll(fns []func(Snapshot), snap Snapshot) {
	for _, fn := range fns {
		fn(snap)
	}
}
