package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalogue entry. IDs are UUID strings so that guest libraries,
// which only ever hold ids, can reference books before any account exists.
type Book struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Title       string    `gorm:"index;size:512;not null" json:"title"`
	Author      string    `gorm:"index;size:256;not null" json:"author"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	ISBN        string    `gorm:"index;size:20" json:"isbn,omitempty"`
	Pages       int       `json:"pages,omitempty"`
	CoverURL    string    `gorm:"size:2048" json:"cover_url,omitempty"`
	FileURL     string    `gorm:"size:2048" json:"file_url,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (b *Book) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
