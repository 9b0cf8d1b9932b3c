// Package progress stores reading positions of authenticated users, one row
// per (user_id, book_id).
//
// # Interface Implementation
//
//	var _ library.RemotePositions = (*Repository)(nil)
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

var _ library.RemotePositions = (*Repository)(nil)

// Repository handles reading progress rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProgress returns the stored position, or nil when the user never
// opened the book.
func (r *Repository) GetProgress(ctx context.Context, userID uint, book string) (*library.Position, error) {
	var row entities.ReadingProgress
	err := r.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, book).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &library.Position{
		BookID:             row.BookID,
		CurrentLocation:    row.CurrentPage,
		TotalLocations:     row.TotalPages,
		ProgressPercentage: row.ProgressPercentage,
		LastUpdated:        row.LastReadAt,
	}, nil
}

// UpsertProgress writes pos, replacing any previous row for the same
// (user_id, book_id).
func (r *Repository) UpsertProgress(ctx context.Context, userID uint, pos library.Position) error {
	lastRead := pos.LastUpdated
	if lastRead.IsZero() {
		lastRead = time.Now()
	}
	row := entities.ReadingProgress{
		UserID:             userID,
		BookID:             pos.BookID,
		CurrentPage:        pos.CurrentLocation,
		TotalPages:         pos.TotalLocations,
		ProgressPercentage: pos.ProgressPercentage,
		LastReadAt:         lastRead.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_page", "total_pages", "progress_percentage", "last_read_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// ListProgress returns every stored position of the user, most recent first.
func (r *Repository) ListProgress(ctx context.Context, userID uint) ([]entities.ReadingProgress, error) {
	var rows []entities.ReadingProgress
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("last_read_at DESC").Find(&rows).Error
	return rows, err
}
