package library

import (
	"context"
	"sync"
	"time"
)

type client struct {
	manager  *Manager
	unbind   func()
	lastSeen time.Time
}

// Clients keeps one bound Manager per client session.
type Clients struct {
	svc     *Service
	tracker *Tracker
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

// NewClients creates an empty registry. tracker may be nil.
func NewClients(svc *Service, tracker *Tracker) *Clients {
	return &Clients{
		svc:     svc,
		tracker: tracker,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Acquire returns the manager for clientID, creating and binding it on
// first use.
func (c *Clients) Acquire(clientID string) *Manager {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.clients[clientID]
	if !ok {
		m := NewManager()
		cl = &client{manager: m, unbind: bind(m, c.svc, c.tracker, c.inUse)}
		c.clients[clientID] = cl
	}
	cl.lastSeen = c.now()
	return cl.manager
}

// Peek returns the manager for clientID without creating one.
func (c *Clients) Peek(clientID string) (*Manager, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl, ok := c.clients[clientID]
	if !ok {
		return nil, false
	}
	return cl.manager, true
}

// Forget unbinds and removes clientID. Pending position writes of the
// client's identity are flushed rather than dropped.
func (c *Clients) Forget(ctx context.Context, clientID string) {
	c.mu.Lock()
	cl, ok := c.clients[clientID]
	delete(c.clients, clientID)
	c.mu.Unlock()
	if ok {
		c.release(ctx, cl)
	}
}

// Sweep forgets every client idle for longer than idle and returns how many
// were removed.
func (c *Clients) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := c.now().Add(-idle)

	c.mu.Lock()
	var stale []*client
	for id, cl := range c.clients {
		if cl.lastSeen.Before(cutoff) {
			stale = append(stale, cl)
			delete(c.clients, id)
		}
	}
	c.mu.Unlock()

	for _, cl := range stale {
		c.release(ctx, cl)
	}
	return len(stale)
}

// Len returns the number of tracked clients.
func (c *Clients) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}

// DropUnbound forgets the view of an identity that was served without a
// client session, unless a registered client acts as it.
func (c *Clients) DropUnbound(id Identity) {
	if id.Resolved() && !c.inUse(id) {
		c.svc.Drop(id)
	}
}

// inUse reports whether a registered client currently acts as id. A
// switching manager already reports its new identity.
func (c *Clients) inUse(id Identity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cl := range c.clients {
		if cl.manager.Current().Equal(id) {
			return true
		}
	}
	return false
}

// release runs after cl left the registry. Pending writes are flushed; the
// view is dropped only when no other client still uses the identity.
func (c *Clients) release(ctx context.Context, cl *client) {
	cl.unbind()
	id := cl.manager.Current()
	if !id.Resolved() {
		return
	}
	if c.tracker != nil {
		c.tracker.FlushIdentity(ctx, id)
	}
	if !c.inUse(id) {
		c.svc.Drop(id)
	}
}
