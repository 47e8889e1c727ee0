package http

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/covers"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/entities"
	"github.com/shelfmark/shelfmark/internal/session"
)

// dateLayout is the wire format of HTML date inputs.
const dateLayout = "2006-01-02"

// BookStore defines database operations for book management. Author lookups
// are included because the book forms offer an author picker and the create
// path validates the reference before writing.
type BookStore interface {
	GetBooks(filter database.BookFilter) ([]entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	CreateBook(book *entities.Book) error
	UpdateBook(book *entities.Book) error
	DeleteBook(id uint) error
	GetAuthors(filter database.AuthorFilter) ([]entities.Author, error)
	AuthorExists(id uint) (bool, error)
}

type BooksController struct {
	store    BookStore
	covers   *covers.Store
	sessions *session.Manager
}

func NewBooksController(store BookStore, coverStore *covers.Store, sessions *session.Manager) *BooksController {
	return &BooksController{store: store, covers: coverStore, sessions: sessions}
}

// bookSearch echoes the raw query values back into the search form.
type bookSearch struct {
	Title           string
	PublishedBefore string
	PublishedAfter  string
}

// List renders books matching the optional search fields. Unparseable date
// values are logged and treated as absent.
// GET /books?title=&publishedBefore=&publishedAfter=
func (bc *BooksController) List(c *gin.Context) {
	search := bookSearch{
		Title:           c.Query("title"),
		PublishedBefore: c.Query("publishedBefore"),
		PublishedAfter:  c.Query("publishedAfter"),
	}

	filter := database.BookFilter{
		Title:           search.Title,
		PublishedBefore: parseOptionalDate(search.PublishedBefore, "publishedBefore"),
		PublishedAfter:  parseOptionalDate(search.PublishedAfter, "publishedAfter"),
	}

	books, err := bc.store.GetBooks(filter)
	if err != nil {
		log.Printf("Error listing books: %v", err)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	render(c, http.StatusOK, "books/index", gin.H{
		"Books":  books,
		"Search": search,
	})
}

// New renders the book creation form.
// GET /books/new
func (bc *BooksController) New(c *gin.Context) {
	bc.renderForm(c, "books/new", &entities.Book{}, "")
}

// Create validates the submitted fields, stores the optional cover upload
// and inserts the book, redirecting to its detail page. A cover whose type
// is outside the allow-list is dropped silently; the book is still saved.
// POST /books
func (bc *BooksController) Create(c *gin.Context) {
	book, errMessage := bc.bookFromForm(c, &entities.Book{})
	if errMessage != "" {
		bc.renderForm(c, "books/new", book, errMessage)
		return
	}

	filename, err := bc.saveCoverUpload(c)
	if err != nil {
		log.Printf("Error storing cover upload: %v", err)
		bc.renderForm(c, "books/new", book, "Error storing cover image")
		return
	}
	book.CoverFilename = filename

	if err := bc.store.CreateBook(book); err != nil {
		log.Printf("Error creating book: %v", err)
		// The cover file was already written; don't leak it.
		if filename != "" {
			if rmErr := bc.covers.Remove(filename); rmErr != nil {
				log.Printf("Error removing orphaned cover %s: %v", filename, rmErr)
			}
		}
		book.CoverFilename = ""
		bc.renderForm(c, "books/new", book, "Error creating Book")
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/books/%d", book.ID))
}

// Show renders a book with its author resolved.
// GET /books/:id
func (bc *BooksController) Show(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	render(c, http.StatusOK, "books/show", gin.H{
		"Book":  book,
		"Flash": popFlash(bc.sessions, c),
	})
}

// Edit renders the book edit form.
// GET /books/:id/edit
func (bc *BooksController) Edit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	bc.renderForm(c, "books/edit", book, "")
}

// Update applies the submitted fields in place, optionally replacing the
// cover, and persists. Failures re-render the edit form with the unsaved
// edits preserved; a fetch failure redirects to the listing.
// PUT /books/:id
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	previousCover := book.CoverFilename

	book, errMessage := bc.bookFromForm(c, book)
	if errMessage != "" {
		bc.renderForm(c, "books/edit", book, errMessage)
		return
	}

	newCover, err := bc.saveCoverUpload(c)
	if err != nil {
		log.Printf("Error storing cover upload: %v", err)
		bc.renderForm(c, "books/edit", book, "Error storing cover image")
		return
	}
	if newCover != "" {
		book.CoverFilename = newCover
	}

	if err := bc.store.UpdateBook(book); err != nil {
		log.Printf("Error updating book %d: %v", id, err)
		if newCover != "" {
			if rmErr := bc.covers.Remove(newCover); rmErr != nil {
				log.Printf("Error removing orphaned cover %s: %v", newCover, rmErr)
			}
			book.CoverFilename = previousCover
		}
		bc.renderForm(c, "books/edit", book, "Error updating Book")
		return
	}

	// The replaced cover file is no longer referenced.
	if newCover != "" && previousCover != "" {
		if err := bc.covers.Remove(previousCover); err != nil {
			log.Printf("Error removing replaced cover %s: %v", previousCover, err)
		}
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/books/%d", book.ID))
}

// Delete removes a book unconditionally. A store failure sends the user
// back to the detail page with a message; a missing record is logged and
// falls back to the listing.
// DELETE /books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.GetBookByID(id)
	if err != nil {
		log.Printf("Book %d not found for deletion: %v", id, err)
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	if err := bc.store.DeleteBook(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Book %d vanished before deletion", id)
			c.Redirect(http.StatusSeeOther, "/books")
			return
		}
		log.Printf("Error deleting book %d: %v", id, err)
		flash(bc.sessions, c, "Could not remove book")
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/books/%d", id))
		return
	}

	if book.HasCover() {
		if err := bc.covers.Remove(book.CoverFilename); err != nil {
			log.Printf("Error removing cover %s: %v", book.CoverFilename, err)
		}
	}

	c.Redirect(http.StatusSeeOther, "/books")
}

// bookFromForm applies the submitted form fields onto book and validates
// them. It returns the book with the in-memory edits applied regardless of
// validity so a re-rendered form preserves the user's input.
func (bc *BooksController) bookFromForm(c *gin.Context, book *entities.Book) (*entities.Book, string) {
	book.Title = strings.TrimSpace(c.PostForm("title"))
	book.Description = strings.TrimSpace(c.PostForm("description"))

	if book.Title == "" {
		return book, "Title is required"
	}

	publishDate, err := time.Parse(dateLayout, c.PostForm("publishDate"))
	if err != nil {
		return book, "A valid publish date is required"
	}
	book.PublishDate = publishDate

	pageCount, err := strconv.Atoi(c.PostForm("pageCount"))
	if err != nil || pageCount <= 0 {
		return book, "Page count must be a positive number"
	}
	book.PageCount = pageCount

	authorID, err := strconv.ParseUint(c.PostForm("author"), 10, 32)
	if err != nil {
		return book, "An author is required"
	}
	// The store does not enforce the reference; validate it here so every
	// book points at an existing author at write time.
	exists, err := bc.store.AuthorExists(uint(authorID))
	if err != nil {
		log.Printf("Error checking author %d: %v", authorID, err)
		return book, "Error creating Book"
	}
	if !exists {
		return book, "Unknown author"
	}
	book.AuthorID = uint(authorID)

	return book, ""
}

// saveCoverUpload stores the optional cover file from the form. It returns
// the generated file name, or empty when no file was sent or its type is
// not allowed.
func (bc *BooksController) saveCoverUpload(c *gin.Context) (string, error) {
	fileHeader, err := c.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return bc.saveCover(fileHeader)
}

func (bc *BooksController) saveCover(fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return bc.covers.SaveUpload(file)
}

// renderForm renders the new/edit book form with the author picker
// populated. When the authors cannot be loaded there is no form to show, so
// fall back to the listing, as with any other store failure.
func (bc *BooksController) renderForm(c *gin.Context, name string, book *entities.Book, errMessage string) {
	authors, err := bc.store.GetAuthors(database.AuthorFilter{})
	if err != nil {
		log.Printf("Error loading authors for book form: %v", err)
		c.Redirect(http.StatusSeeOther, "/books")
		return
	}

	data := gin.H{
		"Book":    book,
		"Authors": authors,
	}
	if errMessage != "" {
		data["ErrorMessage"] = errMessage
	}
	render(c, http.StatusOK, name, data)
}

// parseOptionalDate parses a search form date, treating blank or malformed
// values as absent.
func parseOptionalDate(value, field string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		log.Printf("Ignoring malformed %s value %q", field, value)
		return nil
	}
	return &t
}
