// Package cart mirrors the remote cart for one browser request. Every write is
// followed by a refresh so local totals always match what checkout will charge.
package cart

import (
	"context"
	"sync"

	"storefront/internal/model"
	"storefront/internal/session"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// API is the remote cart resource.
type API interface {
	Lines(ctx context.Context) ([]model.CartLine, error)
	Add(ctx context.Context, productID, quantity int) error
	Update(ctx context.Context, lineID, quantity int) error
	Remove(ctx context.Context, lineID int) error
}

// Authenticator reports whether a session is present.
type Authenticator interface {
	Snapshot() session.Snapshot
}

// Store holds the cached cart lines. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	lines      []model.CartLine
	generation uint64
	api        API
	auth       Authenticator
	logger     zerolog.Logger
}

// NewStore creates an empty cart store.
func NewStore(api API, auth Authenticator, logger zerolog.Logger) *Store {
	return &Store{
		api:    api,
		auth:   auth,
		logger: logger.With().Str("component", "cart").Logger(),
	}
}

// Bind resets the cart whenever the session leaves the authenticated state. The
// returned function detaches it.
func (s *Store) Bind(sess *session.Store) func() {
	return sess.Subscribe(func(snap session.Snapshot) {
		if !snap.Authenticated() {
			s.Reset()
		}
	})
}

// Refresh replaces the local lines with the server's. On failure the cart becomes
// empty. A result that was superseded by a newer refresh or a reset is dropped.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	lines, err := s.api.Lines(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("cart refresh failed, showing empty cart")
		lines = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debug().Uint64("generation", gen).Msg("discarding stale cart refresh")
		return
	}
	s.lines = lines
}

// Add adds one unit of a product.
func (s *Store) Add(ctx context.Context, productID int) error {
	return s.AddLine(ctx, productID, 1)
}

// AddLine adds quantity units of a product, then refreshes.
func (s *Store) AddLine(ctx context.Context, productID, quantity int) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if err := s.api.Add(ctx, productID, quantity); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// UpdateQuantity sets a line's quantity, then refreshes.
func (s *Store) UpdateQuantity(ctx context.Context, lineID, quantity int) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	if err := s.api.Update(ctx, lineID, quantity); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// RemoveLine deletes a line, then refreshes.
func (s *Store) RemoveLine(ctx context.Context, lineID int) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	if err := s.api.Remove(ctx, lineID); err != nil {
		return err
	}
	s.Refresh(ctx)
	return nil
}

// Reset empties the local cart and invalidates in-flight refreshes.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.lines = nil
}

// Lines returns a copy of the cached lines.
func (s *Store) Lines() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Preview returns at most n lines for the header mini-cart.
func (s *Store) Preview(n int) []model.CartLine {
	lines := s.Lines()
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}

// Count is the number of distinct lines, not the number of units.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Units is the sum of line quantities.
func (s *Store) Units() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of discounted line subtotals.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Empty reports whether the cart has no lines.
func (s *Store) Empty() bool {
	return s.Count() == 0
}

func (s *Store) requireSession() error {
	if s.auth == nil || !s.auth.Snapshot().Authenticated() {
		return model.ErrNotAuthenticated
	}
	return nil
}
