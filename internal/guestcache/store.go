// Package guestcache is the device-scoped durable cache behind guest
// libraries. It keeps a full snapshot of each guest's three collections and
// the guest's reading positions in a bbolt file.
package guestcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mrlokans/bookshelf/internal/library"
)

// Bucket names
var (
	bucketCollections = []byte("guest_collections")
	bucketPositions   = []byte("guest_positions")
)

var (
	_ library.LocalCache     = (*Store)(nil)
	_ library.LocalPositions = (*Store)(nil)
)

// record is the stored form of a guest library.
type record struct {
	Favorites []string  `json:"favorites"`
	Reading   []string  `json:"reading"`
	Read      []string  `json:"read"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store implements library.LocalCache and library.LocalPositions on bbolt.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the cache file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCollections, bucketPositions} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadShelf returns the guest's collections. found is false for a guest
// that never saved anything.
func (s *Store) LoadShelf(_ context.Context, guestID string) (library.Shelf, bool, error) {
	var rec record
	found, err := s.get(bucketCollections, guestID, &rec)
	if err != nil || !found {
		return library.Shelf{}, false, err
	}
	shelf := library.EmptyShelf().
		Replace(library.KindFavorites, rec.Favorites).
		Replace(library.KindReading, rec.Reading).
		Replace(library.KindRead, rec.Read)
	return shelf, true, nil
}

// SaveShelf overwrites the guest's snapshot with all three collections.
func (s *Store) SaveShelf(_ context.Context, guestID string, shelf library.Shelf) error {
	rec := record{
		Favorites: orEmpty(shelf.Favorites),
		Reading:   orEmpty(shelf.Reading),
		Read:      orEmpty(shelf.Read),
		UpdatedAt: s.now().UTC(),
	}
	return s.put(bucketCollections, guestID, rec)
}

func positionKey(guestID, book string) string {
	return guestID + "/" + book
}

// GetGuestPosition returns the stored position or nil.
func (s *Store) GetGuestPosition(_ context.Context, guestID, book string) (*library.Position, error) {
	var pos library.Position
	found, err := s.get(bucketPositions, positionKey(guestID, book), &pos)
	if err != nil || !found {
		return nil, err
	}
	return &pos, nil
}

// SaveGuestPosition stores pos under the guest.
func (s *Store) SaveGuestPosition(_ context.Context, guestID string, pos library.Position) error {
	if pos.LastUpdated.IsZero() {
		pos.LastUpdated = s.now()
	}
	pos.LastUpdated = pos.LastUpdated.UTC()
	return s.put(bucketPositions, positionKey(guestID, pos.BookID), pos)
}

// Forget removes everything stored for the guest.
func (s *Store) Forget(guestID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketCollections).Delete([]byte(guestID)); err != nil {
			return err
		}
		return deletePrefix(tx.Bucket(bucketPositions), []byte(guestID+"/"))
	})
}

// Purge removes guests whose library was last written before cutoff along
// with their positions, and positions older than cutoff of any guest. It
// returns the number of guest libraries removed.
func (s *Store) Purge(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		collections := tx.Bucket(bucketCollections)
		positions := tx.Bucket(bucketPositions)

		var stale [][]byte
		err := collections.ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil || rec.UpdatedAt.Before(cutoff) {
				stale = append(stale, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := collections.Delete(k); err != nil {
				return err
			}
			if err := deletePrefix(positions, append(bytes.Clone(k), '/')); err != nil {
				return err
			}
		}
		removed = len(stale)

		var old [][]byte
		err = positions.ForEach(func(k, v []byte) error {
			var pos library.Position
			if err := json.Unmarshal(v, &pos); err != nil || pos.LastUpdated.Before(cutoff) {
				old = append(old, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range old {
			if err := positions.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}

// Stats returns the number of stored guest libraries and positions.
func (s *Store) Stats() (guests, positions int, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		guests = tx.Bucket(bucketCollections).Stats().KeyN
		positions = tx.Bucket(bucketPositions).Stats().KeyN
		return nil
	})
	return guests, positions, err
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string, dest any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			data = bytes.Clone(v)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("corrupt entry %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func (s *Store) put(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func deletePrefix(b *bolt.Bucket, prefix []byte) error {
	c := b.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, bytes.Clone(k))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
