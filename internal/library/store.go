package library

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CollectionStore persists the collections of one class of identity.
type CollectionStore interface {
	Load(ctx context.Context, id Identity) (Shelf, error)
	List(ctx context.Context, id Identity, kind Kind) ([]string, error)
	Add(ctx context.Context, id Identity, kind Kind, book string) error
	Remove(ctx context.Context, id Identity, kind Kind, book string) error
}

// RemoteStore is the relational backend: one table per collection keyed by
// (user_id, book_id).
type RemoteStore interface {
	ListBooks(ctx context.Context, userID uint, kind Kind) ([]string, error)
	InsertBook(ctx context.Context, userID uint, kind Kind, book string) error
	DeleteBook(ctx context.Context, userID uint, kind Kind, book string) error
}

// LocalCache is the device-scoped durable cache holding guest collections.
type LocalCache interface {
	LoadShelf(ctx context.Context, guestID string) (shelf Shelf, found bool, err error)
	SaveShelf(ctx context.Context, guestID string, shelf Shelf) error
}

// Stores routes an identity to the backend owning its data.
type Stores struct {
	Remote RemoteStore
	Local  LocalCache
}

// For returns the collection store for id.
func (s Stores) For(id Identity) (CollectionStore, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}
	if id.IsGuest() {
		if s.Local == nil {
			return nil, StoreUnavailable("guest cache not configured", nil)
		}
		return guestStore{cache: s.Local}, nil
	}
	if s.Remote == nil {
		return nil, StoreUnavailable("remote store not configured", nil)
	}
	return remoteStore{remote: s.Remote}, nil
}

type remoteStore struct {
	remote RemoteStore
}

// Load fetches the three collections concurrently.
func (r remoteStore) Load(ctx context.Context, id Identity) (Shelf, error) {
	results := make([][]string, len(Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		g.Go(func() error {
			books, err := r.remote.ListBooks(gctx, id.UserID, kind)
			if err != nil {
				return StoreUnavailable("load "+kind.String(), err)
			}
			results[i] = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Shelf{}, err
	}

	shelf := EmptyShelf()
	for i, kind := range Kinds {
		shelf = shelf.Replace(kind, results[i])
	}
	return shelf, nil
}

func (r remoteStore) List(ctx context.Context, id Identity, kind Kind) ([]string, error) {
	books, err := r.remote.ListBooks(ctx, id.UserID, kind)
	if err != nil {
		return nil, StoreUnavailable("list "+kind.String(), err)
	}
	return books, nil
}

func (r remoteStore) Add(ctx context.Context, id Identity, kind Kind, book string) error {
	if err := r.remote.InsertBook(ctx, id.UserID, kind, book); err != nil {
		return StoreUnavailable("add to "+kind.String(), err)
	}
	return nil
}

func (r remoteStore) Remove(ctx context.Context, id Identity, kind Kind, book string) error {
	if err := r.remote.DeleteBook(ctx, id.UserID, kind, book); err != nil {
		return StoreUnavailable("remove from "+kind.String(), err)
	}
	return nil
}

// guestStore rewrites all three collections on every change, so the cache
// always holds a complete snapshot.
type guestStore struct {
	cache LocalCache
}

func (g guestStore) Load(ctx context.Context, id Identity) (Shelf, error) {
	shelf, found, err := g.cache.LoadShelf(ctx, id.GuestID)
	if err != nil {
		return Shelf{}, StoreUnavailable("load guest cache", err)
	}
	if !found {
		return EmptyShelf(), nil
	}
	return shelf.clone(), nil
}

func (g guestStore) List(ctx context.Context, id Identity, kind Kind) ([]string, error) {
	shelf, err := g.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return shelf.Books(kind), nil
}

func (g guestStore) Add(ctx context.Context, id Identity, kind Kind, book string) error {
	return g.update(ctx, id, func(s Shelf) Shelf { return s.With(kind, book) })
}

func (g guestStore) Remove(ctx context.Context, id Identity, kind Kind, book string) error {
	return g.update(ctx, id, func(s Shelf) Shelf { return s.Without(kind, book) })
}

func (g guestStore) update(ctx context.Context, id Identity, change func(Shelf) Shelf) error {
	shelf, err := g.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := g.cache.SaveShelf(ctx, id.GuestID, change(shelf)); err != nil {
		return StoreUnavailable("save guest cache", err)
	}
	return nil
}
