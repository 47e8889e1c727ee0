package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// AuthorFilter holds the optional search fields of the author listing form.
// Empty fields match everything.
type AuthorFilter struct {
	Name string
}

// apply translates the filter into query predicates. Pure construction, no
// side effects; present fields combine with AND.
func (f AuthorFilter) apply(q *gorm.DB) *gorm.DB {
	if name := strings.TrimSpace(f.Name); name != "" {
		pattern := "%" + escapeWildcards(name) + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) ESCAPE '\\'", pattern)
	}
	return q
}

// GetAuthors retrieves authors matching the filter, ordered by name.
func (d *Database) GetAuthors(filter AuthorFilter) ([]entities.Author, error) {
	var authors []entities.Author
	err := filter.apply(d.DB).Order("name ASC").Find(&authors).Error
	return authors, err
}

// GetAuthorByID retrieves an author together with their books.
func (d *Database) GetAuthorByID(id uint) (*entities.Author, error) {
	var author entities.Author
	err := d.DB.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title ASC")
	}).First(&author, id).Error
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// CreateAuthor inserts a new author. Names must be unique; the comparison is
// a case-sensitive exact match.
func (d *Database) CreateAuthor(name string) (*entities.Author, error) {
	var existing entities.Author
	err := d.DB.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	author := &entities.Author{Name: name}
	if err := d.DB.Create(author).Error; err != nil {
		return nil, err
	}
	return author, nil
}

// UpdateAuthor persists changes to an existing author.
func (d *Database) UpdateAuthor(author *entities.Author) error {
	return d.DB.Save(author).Error
}

// AuthorExists reports whether an author with the given ID exists.
func (d *Database) AuthorExists(id uint) (bool, error) {
	var count int64
	err := d.DB.Model(&entities.Author{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// countBooksByAuthor returns the number of books referencing the author on
// the given handle, which may be a transaction.
func countBooksByAuthor(q *gorm.DB, id uint) (int64, error) {
	var count int64
	err := q.Model(&entities.Book{}).Where("author_id = ?", id).Count(&count).Error
	return count, err
}

// DeleteAuthor removes an author unless any book still references them.
// The reference check and the delete run in one transaction so a book
// created concurrently cannot be orphaned between the two steps.
func (d *Database) DeleteAuthor(id uint) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		count, err := countBooksByAuthor(tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAuthorHasBooks
		}

		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
