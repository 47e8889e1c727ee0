package database

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// BookFilter holds the optional search fields of the book listing form.
// Empty fields match everything; present fields combine with AND.
// The date bounds are inclusive.
type BookFilter struct {
	Title           string
	PublishedBefore *time.Time
	PublishedAfter  *time.Time
}

func (f BookFilter) apply(q *gorm.DB) *gorm.DB {
	if title := strings.TrimSpace(f.Title); title != "" {
		pattern := "%" + escapeWildcards(title) + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) ESCAPE '\\'", pattern)
	}
	if f.PublishedBefore != nil {
		q = q.Where("publish_date <= ?", *f.PublishedBefore)
	}
	if f.PublishedAfter != nil {
		q = q.Where("publish_date >= ?", *f.PublishedAfter)
	}
	return q
}

// GetBooks retrieves books matching the filter with their authors resolved,
// newest first.
func (d *Database) GetBooks(filter BookFilter) ([]entities.Book, error) {
	var books []entities.Book
	err := filter.apply(d.DB).Preload("Author").Order("created_at DESC").Find(&books).Error
	return books, err
}

// GetRecentBooks retrieves the most recently added books, newest first.
func (d *Database) GetRecentBooks(limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := d.DB.Preload("Author").Order("created_at DESC").Limit(limit).Find(&books).Error
	return books, err
}

// GetBookByID retrieves a book with its author resolved.
func (d *Database) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := d.DB.Preload("Author").First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook inserts a new book. The author reference is validated by the
// caller; the store does not cascade or enforce it.
func (d *Database) CreateBook(book *entities.Book) error {
	return d.DB.Omit("Author").Create(book).Error
}

// UpdateBook persists changes to an existing book.
func (d *Database) UpdateBook(book *entities.Book) error {
	return d.DB.Omit("Author").Save(book).Error
}

// DeleteBook removes a book unconditionally.
func (d *Database) DeleteBook(id uint) error {
	result := d.DB.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CoverFilenames returns the cover file names referenced by any book.
// Used by the maintenance sweep to identify orphaned files on disk.
func (d *Database) CoverFilenames() ([]string, error) {
	var names []string
	err := d.DB.Model(&entities.Book{}).
		Where("cover_filename <> ''").
		Pluck("cover_filename", &names).Error
	return names, err
}
