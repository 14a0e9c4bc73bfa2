package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct {
	identity *model.Identity
	loadErr  error
	saveErr  error
	clearErr error
	clears   int
}

func (p *memPersister) Load(ctx context.Context) (*model.Identity, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.identity, nil
}

func (p *memPersister) Save(ctx context.Context, identity model.Identity) error {
	if p.saveErr != nil {
		return p.saveErr
	}
	p.identity = &identity
	return nil
}

func (p *memPersister) Clear(ctx context.Context) error {
	p.clears++
	p.identity = nil
	return p.clearErr
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		persister     *memPersister
		expectedState State
		expectedRole  model.Role
		expectClear   bool
	}{
		{
			name:          "Empty storage restores anonymous",
			persister:     &memPersister{},
			expectedState: StateAnonymous,
		},
		{
			name:          "Stored identity restores authenticated",
			persister:     &memPersister{identity: &model.Identity{ID: "1", Role: model.RoleStaff, Token: signedToken(t, now.Add(time.Hour))}},
			expectedState: StateAuthenticated,
			expectedRole:  model.RoleStaff,
		},
		{
			name:          "Opaque token restores authenticated",
			persister:     &memPersister{identity: &model.Identity{ID: "1", Role: model.RoleCustomer, Token: "opaque"}},
			expectedState: StateAuthenticated,
			expectedRole:  model.RoleCustomer,
		},
		{
			name:          "Expired token restores anonymous and clears",
			persister:     &memPersister{identity: &model.Identity{ID: "1", Role: model.RoleAdmin, Token: signedToken(t, now.Add(-time.Minute))}},
			expectedState: StateAnonymous,
			expectClear:   true,
		},
		{
			name:          "Identity without token restores anonymous",
			persister:     &memPersister{identity: &model.Identity{ID: "1"}},
			expectedState: StateAnonymous,
		},
		{
			name:          "Unreadable storage restores anonymous",
			persister:     &memPersister{loadErr: errors.New("bad cookie")},
			expectedState: StateAnonymous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(tt.persister, zerolog.Nop())
			store.now = func() time.Time { return now }
			require.True(t, store.Loading())

			require.NoError(t, store.Restore(ctx))

			snap := store.Snapshot()
			assert.False(t, store.Loading())
			assert.Equal(t, tt.expectedState, snap.State)
			assert.Equal(t, tt.expectedRole, snap.Role())
			if tt.expectClear {
				assert.Equal(t, 1, tt.persister.clears)
			}
		})
	}
}

func TestStore_RestoreOnlyOnce(t *testing.T) {
	store := NewStore(&memPersister{}, zerolog.Nop())
	require.NoError(t, store.Restore(context.Background()))

	err := store.Restore(context.Background())

	assert.ErrorIs(t, err, model.ErrSessionRestored)
}

func TestStore_LoginLogout(t *testing.T) {
	ctx := context.Background()
	persister := &memPersister{}
	store := NewStore(persister, zerolog.Nop())
	identity := model.Identity{ID: "7", Name: "Ann", Role: model.RoleAdmin, Token: "tok"}

	require.NoError(t, store.Login(ctx, identity))

	assert.Equal(t, StateAuthenticated, store.Snapshot().State)
	assert.Equal(t, "tok", store.Token())
	require.NotNil(t, persister.identity)
	assert.Equal(t, identity, *persister.identity)

	require.NoError(t, store.Logout(ctx))

	snap := store.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, model.Identity{}, snap.Identity)
	assert.Empty(t, store.Token())
	assert.Nil(t, persister.identity)
}

func TestStore_LoginFromUnknownState(t *testing.T) {
	store := NewStore(&memPersister{}, zerolog.Nop())

	require.NoError(t, store.Login(context.Background(), model.Identity{ID: "1", Token: "tok"}))

	assert.False(t, store.Loading())
	assert.True(t, store.Snapshot().Authenticated())
}

func TestStore_LoginPersistFailureKeepsState(t *testing.T) {
	store := NewStore(&memPersister{saveErr: errors.New("cookie too large")}, zerolog.Nop())
	require.NoError(t, store.Restore(context.Background()))

	err := store.Login(context.Background(), model.Identity{ID: "1", Token: "tok"})

	assert.Error(t, err)
	assert.Equal(t, StateAnonymous, store.Snapshot().State)
}

func TestStore_LoginRequiresToken(t *testing.T) {
	store := NewStore(&memPersister{}, zerolog.Nop())

	err := store.Login(context.Background(), model.Identity{ID: "1"})

	var domainErr *model.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.True(t, store.Loading())
}

func TestStore_LogoutAlwaysAnonymous(t *testing.T) {
	clearErr := errors.New("redis down")
	persister := &memPersister{clearErr: clearErr}
	store := NewStore(persister, zerolog.Nop())
	require.NoError(t, store.Login(context.Background(), model.Identity{ID: "1", Token: "tok"}))

	err := store.Logout(context.Background())

	assert.ErrorIs(t, err, clearErr)
	assert.Equal(t, StateAnonymous, store.Snapshot().State)
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&memPersister{}, zerolog.Nop())

	var order []string
	var states []State
	unsubscribeFirst := store.Subscribe(func(s Snapshot) {
		order = append(order, "first")
		states = append(states, s.State)
	})
	store.Subscribe(func(s Snapshot) {
		order = append(order, "second")
	})

	require.NoError(t, store.Restore(ctx))
	require.NoError(t, store.Login(ctx, model.Identity{ID: "1", Token: "tok"}))
	unsubscribeFirst()
	require.NoError(t, store.Logout(ctx))

	assert.Equal(t, []string{"first", "second", "first", "second", "second"}, order)
	assert.Equal(t, []State{StateAnonymous, StateAuthenticated}, states)
}

func TestStore_ObserverMayReadStore(t *testing.T) {
	store := NewStore(&memPersister{}, zerolog.Nop())
	var token string
	store.Subscribe(func(Snapshot) { token = store.Token() })

	require.NoError(t, store.Login(context.Background(), model.Identity{ID: "1", Token: "tok"}))

	assert.Equal(t, "tok", token)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "Future exp", token: signedToken(t, now.Add(time.Hour)), expected: false},
		{name: "Past exp", token: signedToken(t, now.Add(-time.Second)), expected: true},
		{name: "Exp equal to now", token: signedToken(t, now), expected: true},
		{name: "Opaque token", token: "not-a-jwt", expected: false},
		{name: "Empty token", token: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenExpired(tt.token, now))
		})
	}
}

func TestTokenExpired_NoExpClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.False(t, TokenExpired(token, time.Now()))
}
