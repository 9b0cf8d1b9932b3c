package http

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// This file consolidates the store interfaces used by HTTP controllers.
// Each controller depends only on the methods it calls.

// BookStore is the book catalogue.
type BookStore interface {
	ListBooks(ctx context.Context) ([]entities.Book, error)
	GetBookByID(ctx context.Context, id string) (*entities.Book, error)
	CreateBook(ctx context.Context, book *entities.Book) error
}

// ShelfBooks resolves an account's collection into full book rows.
type ShelfBooks interface {
	BooksIn(ctx context.Context, userID uint, kind library.Kind) ([]entities.Book, error)
}

// TokenValidator checks API tokens for the validation endpoint.
type TokenValidator interface {
	ValidateToken(token string) (*entities.User, error)
}

// ActivityRecorder receives account activity.
type ActivityRecorder interface {
	LogAuth(userID uint, action, description, ipAddr, userAgent string, success bool)
	LogToggle(userID uint, outcome library.Outcome)
}

// ActivityLog lists recorded account activity, most recent first.
type ActivityLog interface {
	GetEvents(userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, userID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}
