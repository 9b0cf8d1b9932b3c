package library

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Transitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		steps   func(m *Manager) error
		want    Identity
		wantErr error
	}{
		{
			name:  "unknown to guest",
			steps: func(m *Manager) error { return m.EnterGuest(ctx, "g") },
			want:  Guest("g"),
		},
		{
			name:  "unknown to authenticated",
			steps: func(m *Manager) error { return m.Login(ctx, 1) },
			want:  Authenticated(1),
		},
		{
			name: "guest to authenticated",
			steps: func(m *Manager) error {
				require.NoError(t, m.EnterGuest(ctx, "g"))
				return m.Login(ctx, 1)
			},
			want: Authenticated(1),
		},
		{
			name: "logout",
			steps: func(m *Manager) error {
				require.NoError(t, m.Login(ctx, 1))
				return m.Logout(ctx)
			},
			want: Unknown(),
		},
		{
			name: "same identity is a no-op",
			steps: func(m *Manager) error {
				require.NoError(t, m.Login(ctx, 1))
				return m.Login(ctx, 1)
			},
			want: Authenticated(1),
		},
		{
			name: "guest cannot log out",
			steps: func(m *Manager) error {
				require.NoError(t, m.EnterGuest(ctx, "g"))
				return m.Logout(ctx)
			},
			want:    Guest("g"),
			wantErr: ErrInvalidTransition,
		},
		{
			name: "account switch requires logout",
			steps: func(m *Manager) error {
				require.NoError(t, m.Login(ctx, 1))
				return m.Login(ctx, 2)
			},
			want:    Authenticated(1),
			wantErr: ErrInvalidTransition,
		},
		{
			name: "authenticated cannot become guest",
			steps: func(m *Manager) error {
				require.NoError(t, m.Login(ctx, 1))
				return m.EnterGuest(ctx, "g")
			},
			want:    Authenticated(1),
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "empty guest id is rejected",
			steps:   func(m *Manager) error { return m.EnterGuest(ctx, "") },
			want:    Unknown(),
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			err := tt.steps(m)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, tt.want.Equal(m.Current()), "current identity is %s", m.Current())
		})
	}
}

func TestManager_NotifiesSubscribersInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	var seen []string
	m.Subscribe(func(_ context.Context, tr Transition) error {
		seen = append(seen, "first:"+tr.To.Key())
		return nil
	})
	unsubscribe := m.Subscribe(func(_ context.Context, tr Transition) error {
		seen = append(seen, "second:"+tr.To.Key())
		return nil
	})

	require.NoError(t, m.EnterGuest(ctx, "g"))
	unsubscribe()
	require.NoError(t, m.Login(ctx, 4))

	assert.Equal(t, []string{"first:guest:g", "second:guest:g", "first:user:4"}, seen)
}

func TestManager_JoinsSubscriberErrors(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	errA := errors.New("a")
	errB := errors.New("b")
	m.Subscribe(func(context.Context, Transition) error { return errA })
	m.Subscribe(func(context.Context, Transition) error { return errB })

	err := m.Login(ctx, 1)

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.True(t, Authenticated(1).Equal(m.Current()))
}

func TestBind_LoginReplacesGuestCollections(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seed(9, KindFavorites, "C")
	cache := newFakeCache()
	svc := newTestService(remote, cache)
	m := NewManager()
	Bind(m, svc, nil)

	require.NoError(t, m.EnterGuest(ctx, "device"))
	require.True(t, svc.ToggleFavorite(ctx, m.Current(), "A", 0).OK)
	require.True(t, svc.ToggleFavorite(ctx, m.Current(), "B", 0).OK)

	require.NoError(t, m.Login(ctx, 9))

	shelf, err := svc.View(ctx, m.Current())
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, shelf.Favorites)
	assert.Empty(t, shelf.Reading)
	assert.Empty(t, shelf.Read)
	assert.Empty(t, remote.books(9, KindReading))

	// Guest data stays on the device.
	stored, found, err := cache.LoadShelf(ctx, "device")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"A", "B"}, stored.Favorites)
}

func TestBind_LogoutClearsView(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.seed(2, KindRead, "x")
	svc := newTestService(remote, newFakeCache())
	m := NewManager()
	Bind(m, svc, nil)

	require.NoError(t, m.Login(ctx, 2))
	svc.mu.RLock()
	_, cached := svc.views[Authenticated(2).Key()]
	svc.mu.RUnlock()
	require.True(t, cached)

	require.NoError(t, m.Logout(ctx))

	svc.mu.RLock()
	_, cached = svc.views[Authenticated(2).Key()]
	svc.mu.RUnlock()
	assert.False(t, cached)
	out := svc.ToggleFavorite(ctx, m.Current(), "x", 0)
	assert.Equal(t, CodeNotAuthenticated, out.Reason)
}

func TestBind_LoginReportsLoadFailure(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.fail("list", KindReading)
	svc := newTestService(remote, newFakeCache())
	m := NewManager()
	Bind(m, svc, nil)

	err := m.Login(ctx, 1)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.True(t, Authenticated(1).Equal(m.Current()))

	remote.heal()
	shelf, err := svc.View(ctx, m.Current())
	require.NoError(t, err)
	assert.Zero(t, shelf.Total())
}
