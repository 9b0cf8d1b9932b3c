package library

import "slices"

// Shelf is a snapshot of an identity's three collections. Methods never
// mutate the receiver; With and Without return modified copies.
type Shelf struct {
	Favorites []string `json:"favorites"`
	Reading   []string `json:"reading"`
	Read      []string `json:"read"`
}

// EmptyShelf returns a shelf with non-nil empty collections.
func EmptyShelf() Shelf {
	return Shelf{Favorites: []string{}, Reading: []string{}, Read: []string{}}
}

// Books returns the ids in the given collection, in insertion order.
func (s Shelf) Books(kind Kind) []string {
	switch kind {
	case KindFavorites:
		return s.Favorites
	case KindReading:
		return s.Reading
	case KindRead:
		return s.Read
	default:
		return nil
	}
}

// Has reports whether book is in the given collection.
func (s Shelf) Has(kind Kind, book string) bool {
	return slices.Contains(s.Books(kind), book)
}

// KindOf returns the collection holding book, if any.
func (s Shelf) KindOf(book string) (Kind, bool) {
	for _, k := range Kinds {
		if s.Has(k, book) {
			return k, true
		}
	}
	return "", false
}

// Total is the quota-relevant item count across all collections.
func (s Shelf) Total() int {
	return len(s.Favorites) + len(s.Reading) + len(s.Read)
}

// With returns a copy of s with book appended to kind. Adding an existing
// member returns an unchanged copy.
func (s Shelf) With(kind Kind, book string) Shelf {
	out := s.clone()
	if out.Has(kind, book) {
		return out
	}
	out.set(kind, append(out.Books(kind), book))
	return out
}

// Without returns a copy of s with book removed from kind.
func (s Shelf) Without(kind Kind, book string) Shelf {
	out := s.clone()
	out.set(kind, slices.DeleteFunc(out.Books(kind), func(id string) bool { return id == book }))
	return out
}

// Replace returns a copy of s whose kind collection is books.
func (s Shelf) Replace(kind Kind, books []string) Shelf {
	out := s.clone()
	out.set(kind, slices.Clone(books))
	return out
}

func (s *Shelf) set(kind Kind, books []string) {
	if books == nil {
		books = []string{}
	}
	switch kind {
	case KindFavorites:
		s.Favorites = books
	case KindReading:
		s.Reading = books
	case KindRead:
		s.Read = books
	}
}

func (s Shelf) clone() Shelf {
	out := Shelf{
		Favorites: slices.Clone(s.Favorites),
		Reading:   slices.Clone(s.Reading),
		Read:      slices.Clone(s.Read),
	}
	for _, k := range Kinds {
		if out.Books(k) == nil {
			out.set(k, []string{})
		}
	}
	return out
}
