package library

import (
	"context"
	"errors"
	"sync"
)

// Transition is delivered to subscribers after the manager changes identity.
type Transition struct {
	From Identity
	To   Identity
}

// Listener reacts to a transition. Errors are collected and returned to the
// caller that triggered the switch; the switch itself is not undone.
type Listener func(ctx context.Context, t Transition) error

type subscription struct {
	id int
	fn Listener
}

// Manager is the identity state machine of one client session:
//
//	Unknown -> Guest
//	Unknown -> Authenticated
//	Guest -> Authenticated
//	Authenticated -> Unknown (logout)
//
// Re-entering the current identity is a no-op. Everything else is rejected
// with ErrInvalidTransition.
type Manager struct {
	switching sync.Mutex

	mu          sync.RWMutex
	current     Identity
	nextSubID   int
	subscribers []subscription
}

// NewManager returns a manager in the Unknown state.
func NewManager() *Manager {
	return &Manager{current: Unknown()}
}

// Current returns the identity the session is acting as.
func (m *Manager) Current() Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn for future transitions. Subscribers run in
// registration order. The returned func removes the subscription.
func (m *Manager) Subscribe(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers = append(m.subscribers, subscription{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subscribers {
			if s.id == id {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

// EnterGuest switches an unresolved session to the guest identity.
func (m *Manager) EnterGuest(ctx context.Context, guestID string) error {
	return m.switchTo(ctx, Guest(guestID))
}

// Login switches to the authenticated identity of userID. Guest state is
// not carried over into the account.
func (m *Manager) Login(ctx context.Context, userID uint) error {
	return m.switchTo(ctx, Authenticated(userID))
}

// Logout returns an authenticated session to Unknown.
func (m *Manager) Logout(ctx context.Context) error {
	return m.switchTo(ctx, Unknown())
}

func (m *Manager) switchTo(ctx context.Context, to Identity) error {
	m.switching.Lock()
	defer m.switching.Unlock()

	m.mu.Lock()
	from := m.current
	if from.Equal(to) {
		m.mu.Unlock()
		return nil
	}
	if !allowed(from, to) {
		m.mu.Unlock()
		return InvalidTransition(from, to)
	}
	m.current = to
	subs := make([]subscription, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	t := Transition{From: from, To: to}
	var errs []error
	for _, s := range subs {
		if err := s.fn(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func allowed(from, to Identity) bool {
	if to.Kind != IdentityUnknown && !to.Resolved() {
		return false
	}
	switch from.Kind {
	case IdentityUnknown:
		return to.Kind == IdentityGuest || to.Kind == IdentityAuthenticated
	case IdentityGuest:
		return to.Kind == IdentityAuthenticated
	case IdentityAuthenticated:
		return to.Kind == IdentityUnknown
	default:
		return false
	}
}

// Bind wires a manager to the library service and position tracker:
// leaving an identity cancels its pending position writes and forgets its
// in-memory collections; entering a resolved identity reloads them from
// its own store. tracker may be nil.
func Bind(m *Manager, svc *Service, tracker *Tracker) func() {
	return bind(m, svc, tracker, nil)
}

// bind is Bind for managers that share a service with other clients.
// When inUse reports that another client still acts as the identity being
// left, its pending writes are flushed instead of cancelled and its view
// is kept.
func bind(m *Manager, svc *Service, tracker *Tracker, inUse func(Identity) bool) func() {
	return m.Subscribe(func(ctx context.Context, t Transition) error {
		if t.From.Resolved() {
			leave(ctx, svc, tracker, t.From, inUse != nil && inUse(t.From))
		}
		if !t.To.Resolved() {
			return nil
		}
		_, err := svc.Load(ctx, t.To)
		return err
	})
}

func leave(ctx context.Context, svc *Service, tracker *Tracker, id Identity, shared bool) {
	if shared {
		if tracker != nil {
			tracker.FlushIdentity(ctx, id)
		}
		return
	}
	if tracker != nil {
		tracker.CancelIdentity(id)
	}
	svc.Drop(id)
}
