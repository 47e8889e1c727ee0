package entities

import (
	"time"
)

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256" json:"name"`
	Books     []Book    `gorm:"foreignKey:AuthorID" json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"index;size:512" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	PublishDate time.Time `gorm:"index" json:"publish_date"`
	PageCount   int       `json:"page_count"`

	// Name of the cover file inside the covers directory. Empty when the
	// book has no cover. The display URL is derived, never stored.
	CoverFilename string `gorm:"size:128" json:"cover_filename,omitempty"`

	AuthorID uint   `gorm:"index" json:"author_id"`
	Author   Author `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

func (Book) TableName() string {
	return "books"
}

// HasCover reports whether a cover file is recorded for the book.
func (b *Book) HasCover() bool {
	return b.CoverFilename != ""
}
