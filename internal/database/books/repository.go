// Package books provides database operations for the book catalogue.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetBookByID(ctx, id)
package books

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrMissingDetails = errors.New("title and author are required and cannot be empty")
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns the whole catalogue, newest first.
func (r *Repository) ListBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&books).Error
	return books, err
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBooksByIDs returns the books with the given ids. Unknown ids are skipped.
func (r *Repository) GetBooksByIDs(ctx context.Context, ids []string) ([]entities.Book, error) {
	if len(ids) == 0 {
		return []entities.Book{}, nil
	}
	var books []entities.Book
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&books).Error
	return books, err
}

// CreateBook validates and inserts a book. Title and author are trimmed and
// must not be empty.
func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	book.Description = strings.TrimSpace(book.Description)
	if book.Title == "" || book.Author == "" {
		return ErrMissingDetails
	}
	return r.db.WithContext(ctx).Create(book).Error
}

// CountBooks returns the catalogue size.
func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Count(&count).Error
	return count, err
}
