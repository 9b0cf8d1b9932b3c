package entities

import "time"

// Each collection lives in its own table keyed by a unique (user_id, book_id)
// pair. A book may be in at most one of them for a given user; that rule is
// enforced by the library service, not the schema.

type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorites_user_book;not null" json:"user_id"`
	BookID    string    `gorm:"uniqueIndex:idx_favorites_user_book;size:36;not null" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Favorite) TableName() string { return "favorites" }

type Reading struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_reading_user_book;not null" json:"user_id"`
	BookID    string    `gorm:"uniqueIndex:idx_reading_user_book;size:36;not null" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Reading) TableName() string { return "reading" }

type Read struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_read_user_book;not null" json:"user_id"`
	BookID    string    `gorm:"uniqueIndex:idx_read_user_book;size:36;not null" json:"book_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Read) TableName() string { return "read" }

// ReadingProgress is the last reported location of a user in a book.
type ReadingProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"uniqueIndex:idx_progress_user_book;not null" json:"user_id"`
	BookID             string    `gorm:"uniqueIndex:idx_progress_user_book;size:36;not null" json:"book_id"`
	CurrentPage        int       `json:"current_page"`
	TotalPages         int       `json:"total_pages"`
	ProgressPercentage float64   `json:"progress_percentage"`
	LastReadAt         time.Time `json:"last_read_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (ReadingProgress) TableName() string { return "reading_progress" }
