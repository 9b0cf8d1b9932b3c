// Package collections stores library membership in one table per
// collection (favorites, reading, read), each keyed by (user_id, book_id).
//
// # Interface Implementation
//
//	var _ library.RemoteStore = (*Repository)(nil)
//
// # Usage
//
//	repo := collections.NewRepository(db)
//	ids, err := repo.ListBooks(ctx, userID, library.KindFavorites)
package collections

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

var _ library.RemoteStore = (*Repository)(nil)

// Repository handles membership rows of the three collections.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new collections repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func model(kind library.Kind) (any, error) {
	switch kind {
	case library.KindFavorites:
		return &entities.Favorite{}, nil
	case library.KindReading:
		return &entities.Reading{}, nil
	case library.KindRead:
		return &entities.Read{}, nil
	default:
		return nil, library.InvalidCollectionKind(kind.String())
	}
}

func row(kind library.Kind, userID uint, book string) any {
	switch kind {
	case library.KindFavorites:
		return &entities.Favorite{UserID: userID, BookID: book}
	case library.KindReading:
		return &entities.Reading{UserID: userID, BookID: book}
	default:
		return &entities.Read{UserID: userID, BookID: book}
	}
}

// ListBooks returns the book ids of the user's collection in insertion order.
func (r *Repository) ListBooks(ctx context.Context, userID uint, kind library.Kind) ([]string, error) {
	m, err := model(kind)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = r.db.WithContext(ctx).Model(m).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Pluck("book_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return ids, nil
}

// InsertBook adds the book to the collection. Inserting an existing member
// is not an error.
func (r *Repository) InsertBook(ctx context.Context, userID uint, kind library.Kind, book string) error {
	if _, err := model(kind); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}}, DoNothing: true}).
		Create(row(kind, userID, book)).Error
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", kind, err)
	}
	return nil
}

// DeleteBook removes the book from the collection. Deleting a non-member is
// not an error.
func (r *Repository) DeleteBook(ctx context.Context, userID uint, kind library.Kind, book string) error {
	m, err := model(kind)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, book).
		Delete(m).Error
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", kind, err)
	}
	return nil
}

// CountBooks returns how many books the user holds across all collections.
func (r *Repository) CountBooks(ctx context.Context, userID uint) (int64, error) {
	var total int64
	for _, kind := range library.Kinds {
		m, _ := model(kind)
		var n int64
		if err := r.db.WithContext(ctx).Model(m).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return 0, fmt.Errorf("failed to count %s: %w", kind, err)
		}
		total += n
	}
	return total, nil
}

// BooksIn returns the catalogue rows of the user's collection.
func (r *Repository) BooksIn(ctx context.Context, userID uint, kind library.Kind) ([]entities.Book, error) {
	ids, err := r.ListBooks(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	books := []entities.Book{}
	if len(ids) == 0 {
		return books, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}
	return books, nil
}
