package library

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var errBackend = errors.New("backend down")

type fakeRemote struct {
	mu      sync.Mutex
	rows    map[uint]map[Kind][]string
	failOn  map[string]bool // "insert:reading", "delete:favorites", "list:read"
	inserts int
	deletes int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: make(map[uint]map[Kind][]string), failOn: make(map[string]bool)}
}

func (f *fakeRemote) seed(userID uint, kind Kind, books ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[Kind][]string)
	}
	f.rows[userID][kind] = append(f.rows[userID][kind], books...)
}

func (f *fakeRemote) fail(op string, kind Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op+":"+kind.String()] = true
}

func (f *fakeRemote) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = make(map[string]bool)
}

func (f *fakeRemote) books(userID uint, kind Kind) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rows[userID][kind])
}

func (f *fakeRemote) ListBooks(_ context.Context, userID uint, kind Kind) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["list:"+kind.String()] {
		return nil, errBackend
	}
	return slices.Clone(f.rows[userID][kind]), nil
}

func (f *fakeRemote) InsertBook(_ context.Context, userID uint, kind Kind, book string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["insert:"+kind.String()] {
		return errBackend
	}
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[Kind][]string)
	}
	if !slices.Contains(f.rows[userID][kind], book) {
		f.rows[userID][kind] = append(f.rows[userID][kind], book)
	}
	f.inserts++
	return nil
}

func (f *fakeRemote) DeleteBook(_ context.Context, userID uint, kind Kind, book string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn["delete:"+kind.String()] {
		return errBackend
	}
	if f.rows[userID] == nil {
		return nil
	}
	f.rows[userID][kind] = slices.DeleteFunc(f.rows[userID][kind], func(b string) bool { return b == book })
	f.deletes++
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	shelf  map[string]Shelf
	saves  int
	broken bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{shelf: make(map[string]Shelf)}
}

func (f *fakeCache) LoadShelf(_ context.Context, guestID string) (Shelf, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return Shelf{}, false, errBackend
	}
	s, ok := f.shelf[guestID]
	return s, ok, nil
}

func (f *fakeCache) SaveShelf(_ context.Context, guestID string, shelf Shelf) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errBackend
	}
	f.shelf[guestID] = shelf
	f.saves++
	return nil
}

type savedPosition struct {
	id  Identity
	pos Position
}

type fakePositions struct {
	mu     sync.Mutex
	stored map[string]Position
	writes []savedPosition
	err    error
}

func newFakePositions() *fakePositions {
	return &fakePositions{stored: make(map[string]Position)}
}

func (f *fakePositions) GetProgress(_ context.Context, userID uint, book string) (*Position, error) {
	return f.get(Authenticated(userID), book)
}

func (f *fakePositions) UpsertProgress(_ context.Context, userID uint, pos Position) error {
	return f.save(Authenticated(userID), pos)
}

func (f *fakePositions) GetGuestPosition(_ context.Context, guestID, book string) (*Position, error) {
	return f.get(Guest(guestID), book)
}

func (f *fakePositions) SaveGuestPosition(_ context.Context, guestID string, pos Position) error {
	return f.save(Guest(guestID), pos)
}

func (f *fakePositions) get(id Identity, book string) (*Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.stored[positionKey(id, book)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePositions) save(id Identity, pos Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored[positionKey(id, pos.BookID)] = pos
	f.writes = append(f.writes, savedPosition{id: id, pos: pos})
	return nil
}

func (f *fakePositions) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakePositions) lastWrite() savedPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[len(f.writes)-1]
}
