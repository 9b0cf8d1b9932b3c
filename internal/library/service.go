package library

import (
	"context"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Action describes what a toggle did to the target collection.
type Action string

const (
	ActionAdded     Action = "added"
	ActionRemoved   Action = "removed"
	ActionUnchanged Action = "unchanged"
)

// Outcome is what the toggle operations report back to the UI layer. A
// false OK always carries a Reason so callers can tell a full library from
// a backend failure.
type Outcome struct {
	OK     bool   `json:"ok"`
	Kind   Kind   `json:"kind"`
	Book   string `json:"book_id"`
	Action Action `json:"action,omitempty"`
	Reason Code   `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

func succeeded(kind Kind, book string, action Action) Outcome {
	return Outcome{OK: true, Kind: kind, Book: book, Action: action}
}

func failed(kind Kind, book string, err error) Outcome {
	reason := CodeOf(err)
	if reason == "" {
		reason = CodeStoreUnavailable
	}
	return Outcome{Kind: kind, Book: book, Reason: reason, Err: err}
}

// Options configures a Service.
type Options struct {
	// GuestQuota applies to guests when the caller passes no explicit limit.
	GuestQuota Quota
	Logger     *log.Logger
}

// Service is the toggle façade: the only entry point that changes
// collection membership. It keeps a per-identity view of confirmed state
// and serializes operations per identity.
type Service struct {
	stores     Stores
	guestQuota Quota
	logger     *log.Logger

	locks *keyLock
	mu    sync.RWMutex
	views map[string]Shelf
}

// NewService creates a toggle façade over stores.
func NewService(stores Stores, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		stores:     stores,
		guestQuota: opts.GuestQuota,
		logger:     logger.WithPrefix("library"),
		locks:      newKeyLock(),
		views:      make(map[string]Shelf),
	}
}

// ToggleFavorite removes book from favorites when present, otherwise adds it
// subject to mutual exclusion and quota. maxItems <= 0 selects the default
// quota for the identity.
func (s *Service) ToggleFavorite(ctx context.Context, id Identity, book string, maxItems int) Outcome {
	return s.Toggle(ctx, id, KindFavorites, book, maxItems)
}

// ToggleReading is ToggleFavorite for the reading collection.
func (s *Service) ToggleReading(ctx context.Context, id Identity, book string, maxItems int) Outcome {
	return s.Toggle(ctx, id, KindReading, book, maxItems)
}

// ToggleRead is ToggleFavorite for the read collection.
func (s *Service) ToggleRead(ctx context.Context, id Identity, book string, maxItems int) Outcome {
	return s.Toggle(ctx, id, KindRead, book, maxItems)
}

// Toggle flips membership of book in kind.
func (s *Service) Toggle(ctx context.Context, id Identity, kind Kind, book string, maxItems int) Outcome {
	book = strings.TrimSpace(book)
	if !kind.Valid() {
		return failed(kind, book, InvalidCollectionKind(kind.String()))
	}
	if book == "" {
		return failed(kind, book, InvalidBook(book))
	}

	store, err := s.stores.For(id)
	if err != nil {
		return failed(kind, book, err)
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	shelf, err := s.view(ctx, id, store)
	if err != nil {
		return failed(kind, book, err)
	}

	if shelf.Has(kind, book) {
		if err := store.Remove(ctx, id, kind, book); err != nil {
			s.logger.Warn("remove failed", "identity", id, "kind", kind, "book", book, "err", err)
			return failed(kind, book, err)
		}
		s.commit(id, shelf.Without(kind, book))
		return succeeded(kind, book, ActionRemoved)
	}

	return s.add(ctx, id, store, shelf, kind, book, s.quotaFor(id, maxItems))
}

func (s *Service) add(ctx context.Context, id Identity, store CollectionStore, shelf Shelf, kind Kind, book string, quota Quota) Outcome {
	adm := Admit(shelf, kind, book)
	if adm.Skip {
		return succeeded(kind, book, ActionUnchanged)
	}
	if err := quota.Check(shelf, kind, book); err != nil {
		return failed(kind, book, err)
	}

	var evicted []Kind
	for _, weaker := range adm.Evict {
		if err := store.Remove(ctx, id, weaker, book); err != nil {
			s.logger.Warn("eviction failed", "identity", id, "kind", weaker, "book", book, "err", err)
			s.commit(id, shelf)
			return failed(kind, book, err)
		}
		shelf = shelf.Without(weaker, book)
		evicted = append(evicted, weaker)
	}

	if err := store.Add(ctx, id, kind, book); err != nil {
		s.logger.Warn("add failed", "identity", id, "kind", kind, "book", book, "err", err)
		s.commit(id, s.restore(ctx, id, store, shelf, evicted, book))
		return failed(kind, book, err)
	}

	s.commit(id, shelf.With(kind, book))
	return succeeded(kind, book, ActionAdded)
}

// restore puts book back into the collections it was evicted from after a
// failed add. Whatever cannot be restored stays out of the view, since the
// view only ever reflects what the store confirmed.
func (s *Service) restore(ctx context.Context, id Identity, store CollectionStore, shelf Shelf, evicted []Kind, book string) Shelf {
	for _, k := range evicted {
		if err := store.Add(ctx, id, k, book); err != nil {
			s.logger.Error("rollback failed", "identity", id, "kind", k, "book", book, "err", err)
			continue
		}
		shelf = shelf.With(k, book)
	}
	return shelf
}

func (s *Service) quotaFor(id Identity, maxItems int) Quota {
	if maxItems > 0 {
		return Quota{Max: maxItems}
	}
	if id.IsGuest() {
		return s.guestQuota
	}
	return Unlimited
}

// View returns the identity's confirmed collections, loading them from the
// backing store on first use.
func (s *Service) View(ctx context.Context, id Identity) (Shelf, error) {
	store, err := s.stores.For(id)
	if err != nil {
		return Shelf{}, err
	}
	return s.view(ctx, id, store)
}

// Membership returns the collection currently holding book for id.
func (s *Service) Membership(ctx context.Context, id Identity, book string) (Kind, bool, error) {
	shelf, err := s.View(ctx, id)
	if err != nil {
		return "", false, err
	}
	kind, ok := shelf.KindOf(book)
	return kind, ok, nil
}

// Load replaces the in-memory view of id with a fresh read of its store.
func (s *Service) Load(ctx context.Context, id Identity) (Shelf, error) {
	store, err := s.stores.For(id)
	if err != nil {
		return Shelf{}, err
	}

	unlock := s.locks.Lock(id.Key())
	defer unlock()

	shelf, err := store.Load(ctx, id)
	if err != nil {
		return Shelf{}, err
	}
	s.commit(id, shelf)
	s.logger.Debug("library loaded", "identity", id, "items", shelf.Total())
	return shelf, nil
}

// Drop forgets the in-memory view of id. Stored data is untouched.
func (s *Service) Drop(id Identity) {
	s.mu.Lock()
	delete(s.views, id.Key())
	s.mu.Unlock()
}

// Cached reports whether id has an in-memory view.
func (s *Service) Cached(id Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.views[id.Key()]
	return ok
}

func (s *Service) view(ctx context.Context, id Identity, store CollectionStore) (Shelf, error) {
	s.mu.RLock()
	shelf, ok := s.views[id.Key()]
	s.mu.RUnlock()
	if ok {
		return shelf, nil
	}

	shelf, err := store.Load(ctx, id)
	if err != nil {
		return Shelf{}, err
	}
	s.commit(id, shelf)
	return shelf, nil
}

func (s *Service) commit(id Identity, shelf Shelf) {
	s.mu.Lock()
	s.views[id.Key()] = shelf
	s.mu.Unlock()
}
